package signal

import (
	"context"
	"sync"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const eventBuffer = 16

const (
	defaultDialTimeout  = 15 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// ClientConfig tunes the signaling socket. Zero values fall back to the
// defaults above.
type ClientConfig struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// wireMessage is the single JSON shape carried over the signaling socket,
// demultiplexed by Type. Unused fields stay empty per type.
type wireMessage struct {
	Type      string               `json:"type"`
	DeviceID  string               `json:"deviceId,omitempty"`
	Role      string               `json:"role,omitempty"`
	SDP       string               `json:"sdp,omitempty"`
	Candidate *domain.IceCandidate `json:"candidate,omitempty"`
	Message   string               `json:"message,omitempty"`
}

// Client exchanges SDP descriptions and ICE candidates with the relay
// server over one WebSocket. Inbound sequences are live-only and preserve
// receipt order.
type Client struct {
	endpoint Endpoint
	deviceID string
	role     domain.PeerRole

	dialTimeout  time.Duration
	writeTimeout time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex

	offers     chan domain.SessionDescription
	answers    chan domain.SessionDescription
	candidates chan domain.IceCandidate
	peerJoined chan domain.PeerRole
	peerLeft   chan struct{}
	errs       chan string

	logger *zap.SugaredLogger
}

var _ ports.Signaler = (*Client)(nil)

// NewClient parses and validates serverURL up front; a non-websocket scheme
// is a construction error, not a connect error.
func NewClient(serverURL, deviceID string, role domain.PeerRole, cfg ClientConfig, logger *zap.SugaredLogger) (*Client, error) {
	endpoint, err := ParseEndpoint(serverURL)
	if err != nil {
		return nil, err
	}

	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	return &Client{
		endpoint:     endpoint,
		deviceID:     deviceID,
		role:         role,
		dialTimeout:  cfg.DialTimeout,
		writeTimeout: cfg.WriteTimeout,
		done:         make(chan struct{}),
		offers:       make(chan domain.SessionDescription, eventBuffer),
		answers:      make(chan domain.SessionDescription, eventBuffer),
		candidates:   make(chan domain.IceCandidate, eventBuffer),
		peerJoined:   make(chan domain.PeerRole, eventBuffer),
		peerLeft:     make(chan struct{}, eventBuffer),
		errs:         make(chan string, eventBuffer),
		logger:       logger,
	}, nil
}

// Connect opens the socket, sends the join announcement and starts the
// read loop. Dial failures surface as *domain.SignalingError.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}

	conn, _, err := dialer.DialContext(ctx, c.endpoint.URL(), nil)
	if err != nil {
		return domain.NewSignalingError("connect", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	join := wireMessage{Type: "join", DeviceID: c.deviceID, Role: string(c.role)}
	if err := c.write(join); err != nil {
		c.Disconnect()
		return domain.NewSignalingError("join", err)
	}

	c.logger.Infow("signaling connected",
		"host", c.endpoint.Host,
		"port", c.endpoint.Port,
		"device_id", c.deviceID,
		"role", c.role,
	)

	go c.readLoop(conn)
	return nil
}

// Disconnect closes the socket. Safe to call repeatedly and concurrently.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn := c.conn
		c.connected = false
		c.mu.Unlock()

		if conn != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		}
		c.logger.Infow("signaling disconnected", "device_id", c.deviceID)
	})
}

// SendOffer transmits a local SDP offer.
func (c *Client) SendOffer(desc domain.SessionDescription) error {
	return c.write(wireMessage{Type: "offer", SDP: desc.SDP})
}

// SendAnswer transmits a local SDP answer.
func (c *Client) SendAnswer(desc domain.SessionDescription) error {
	return c.write(wireMessage{Type: "answer", SDP: desc.SDP})
}

// SendIceCandidate forwards a locally gathered candidate to the peer.
func (c *Client) SendIceCandidate(candidate domain.IceCandidate) error {
	return c.write(wireMessage{Type: "ice-candidate", Candidate: &candidate})
}

func (c *Client) Offers() <-chan domain.SessionDescription  { return c.offers }
func (c *Client) Answers() <-chan domain.SessionDescription { return c.answers }
func (c *Client) IceCandidates() <-chan domain.IceCandidate { return c.candidates }
func (c *Client) PeerJoined() <-chan domain.PeerRole        { return c.peerJoined }
func (c *Client) PeerLeft() <-chan struct{}                 { return c.peerLeft }
func (c *Client) Errors() <-chan string                     { return c.errs }

// write serializes one message onto the socket. Calling while disconnected
// returns domain.ErrNotConnected.
func (c *Client) write(msg wireMessage) error {
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return domain.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return domain.NewSignalingError("send "+msg.Type, err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()

			select {
			case <-c.done:
				// Explicit disconnect, not an error.
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.logger.Warnw("signaling read failed", "error", err)
				}
			}
			return
		}

		c.dispatch(msg)
	}
}

// dispatch routes one inbound message by its type discriminator. Sends
// block on a full buffer so receipt order is never violated; done unblocks
// them during shutdown.
func (c *Client) dispatch(msg wireMessage) {
	switch msg.Type {
	case "offer":
		select {
		case c.offers <- domain.SessionDescription{Type: domain.SDPTypeOffer, SDP: msg.SDP}:
		case <-c.done:
		}
	case "answer":
		select {
		case c.answers <- domain.SessionDescription{Type: domain.SDPTypeAnswer, SDP: msg.SDP}:
		case <-c.done:
		}
	case "ice-candidate":
		if msg.Candidate == nil {
			c.logger.Warnw("ice-candidate message without candidate body")
			return
		}
		select {
		case c.candidates <- *msg.Candidate:
		case <-c.done:
		}
	case "peer-joined":
		select {
		case c.peerJoined <- domain.PeerRole(msg.Role):
		case <-c.done:
		}
	case "peer-left":
		select {
		case c.peerLeft <- struct{}{}:
		case <-c.done:
		}
	case "error":
		c.logger.Warnw("signaling server reported error", "message", msg.Message)
		select {
		case c.errs <- msg.Message:
		case <-c.done:
		}
	default:
		c.logger.Debugw("ignoring unknown signaling message", "type", msg.Type)
	}
}
