package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"
	"github.com/andupetcu/androidremote-sub001/internal/core/channel"
	"github.com/andupetcu/androidremote-sub001/pkg/retry"
	"github.com/andupetcu/androidremote-sub001/pkg/tracing"
	"github.com/andupetcu/androidremote-sub001/pkg/validation"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	commandChannelLabel = "commands"
	videoChannelLabel   = "video"
	stateBuffer         = 16
	connEventBuffer     = 16
)

// ControllerConfig tunes the session state machine.
type ControllerConfig struct {
	// ConnectTimeout bounds one negotiation attempt up to the transport
	// reporting connected.
	ConnectTimeout time.Duration
	// DataChannelTimeout bounds the wait for a data channel after the
	// transport connects.
	DataChannelTimeout time.Duration
	// Reconnect is the backoff schedule applied after an unexpected
	// transport failure.
	Reconnect retry.Config
	// CommandRatePerSecond and CommandBurst throttle inbound command
	// execution. Zero disables throttling.
	CommandRatePerSecond float64
	CommandBurst         int
}

// DefaultControllerConfig matches the documented session defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		ConnectTimeout:       30 * time.Second,
		DataChannelTimeout:   10 * time.Second,
		Reconnect:            retry.DefaultConfig(),
		CommandRatePerSecond: 50,
		CommandBurst:         100,
	}
}

// Handlers are the external command executors. A nil handler is allowed;
// commands routed to it produce failure acks rather than silent drops.
type Handlers struct {
	Input ports.InputHandler
	Text  ports.TextInputHandler
	MDM   ports.MDMHandler
}

// attempt bundles everything owned by one connection attempt: its signaler,
// its peer connection, the channels wrapped around its data channels, and
// the tasks watching them. Tearing down an attempt cancels and waits for
// all of its tasks before the peer connection closes, so nothing belonging
// to a dying transport can race its successor.
type attempt struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	signaler ports.Signaler
	peer     ports.PeerConnection
	commands *channel.CommandChannel
	video    *channel.VideoChannel

	connEvents chan domain.ConnectionState
	commandDC  chan ports.DataChannel
	videoDC    chan ports.DataChannel
}

// SessionController owns the remote session lifecycle: one signaling
// client plus one peer connection per attempt, the command and video
// channels wired over them, and the reconnection state machine.
type SessionController struct {
	cfg       ControllerConfig
	transport ports.TransportFactory
	signaler  ports.SignalerFactory
	auth      *AuthService
	handlers  Handlers
	metrics   ports.SessionMetrics
	logger    *zap.SugaredLogger

	limiter *rate.Limiter

	mu           sync.Mutex
	state        domain.SessionState
	states       chan domain.SessionState
	current      *attempt
	bridge       *channel.VideoStreamBridge
	closing      bool
	reconnecting bool

	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	sessionWg     sync.WaitGroup

	serverURL string
	token     string
	deviceID  string
}

// NewSessionController wires the collaborators. auth may be nil to skip
// token checks; metrics must be non-nil (use ports.NopMetrics in tests).
func NewSessionController(
	cfg ControllerConfig,
	transport ports.TransportFactory,
	signaler ports.SignalerFactory,
	auth *AuthService,
	handlers Handlers,
	metrics ports.SessionMetrics,
	logger *zap.SugaredLogger,
) *SessionController {
	c := &SessionController{
		cfg:       cfg,
		transport: transport,
		signaler:  signaler,
		auth:      auth,
		handlers:  handlers,
		metrics:   metrics,
		logger:    logger,
		state:     domain.Disconnected(),
		states:    make(chan domain.SessionState, stateBuffer),
	}
	if cfg.CommandRatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.CommandRatePerSecond), cfg.CommandBurst)
	}
	return c
}

// State returns the current session state.
func (c *SessionController) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// States is the live state stream, the single source of truth for UI.
// Under a slow consumer the oldest buffered state is dropped; the latest
// state is always eventually delivered.
func (c *SessionController) States() <-chan domain.SessionState {
	return c.states
}

func (c *SessionController) setState(s domain.SessionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	c.publishState(s)
}

func (c *SessionController) publishState(s domain.SessionState) {
	c.metrics.SetSessionPhase(s.Phase)
	c.logger.Infow("session state", "state", s.String())

	for {
		select {
		case c.states <- s:
			return
		default:
			select {
			case <-c.states:
			default:
			}
		}
	}
}

// Connect establishes a session with the signaling server at serverURL.
// It is rejected unless the controller is Disconnected or Errored. The
// call blocks until the session is Connected or the attempt fails; a
// concurrent Disconnect cancels it.
func (c *SessionController) Connect(ctx context.Context, serverURL, token, deviceID string) error {
	c.mu.Lock()
	if c.state.Phase != domain.PhaseDisconnected && c.state.Phase != domain.PhaseError {
		phase := c.state.Phase
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot connect while %s", domain.ErrAlreadyConnected, phase)
	}
	c.closing = false
	c.reconnecting = false
	c.serverURL = serverURL
	c.token = token
	c.deviceID = deviceID
	c.sessionCtx, c.sessionCancel = context.WithCancel(context.Background())
	// The phase gate and the Connecting transition are one atomic step so
	// concurrent Connect calls cannot both pass the check.
	c.state = domain.Connecting()
	c.mu.Unlock()

	c.publishState(domain.Connecting())

	if c.auth != nil {
		if _, err := c.auth.ValidateToken(token, deviceID); err != nil {
			c.setState(domain.Errored(err.Error()))
			return err
		}
	}

	// A cancelled caller context aborts the in-flight attempt the same way
	// Disconnect does.
	actx, acancel := context.WithCancel(c.sessionCtx)
	stop := context.AfterFunc(ctx, acancel)
	defer stop()

	start := time.Now()
	if err := c.establish(actx, 0); err != nil {
		acancel()
		c.teardownCurrent()

		c.mu.Lock()
		closing := c.closing
		c.mu.Unlock()
		if !closing {
			// An explicit Disconnect mid-connect wins and reports
			// Disconnected, not Error.
			c.setState(domain.Errored(err.Error()))
		}
		return err
	}

	c.metrics.ObserveConnectDuration(time.Since(start))
	c.setState(domain.Connected(deviceID))
	return nil
}

// Disconnect tears the session down in the documented order: cancel every
// background task, synchronously release the peer connection, then close
// the signaling socket asynchronously.
func (c *SessionController) Disconnect() {
	c.mu.Lock()
	if c.sessionCancel == nil {
		c.mu.Unlock()
		return
	}
	c.closing = true
	cancel := c.sessionCancel
	c.mu.Unlock()

	cancel()
	c.sessionWg.Wait()
	c.teardownCurrent()

	c.setState(domain.Disconnected())
}

// StartVideoStream lazily starts pumping frames from source over the video
// data channel. It fails with domain.ErrNoActiveSession when no session is
// connected and with domain.ErrStreamAlreadyRunning when a bridge is
// already consuming.
func (c *SessionController) StartVideoStream(source ports.FrameSource) error {
	c.mu.Lock()
	if c.state.Phase != domain.PhaseConnected || c.current == nil {
		c.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	if c.bridge != nil && c.bridge.IsRunning() {
		c.mu.Unlock()
		return domain.ErrStreamAlreadyRunning
	}
	a := c.current
	c.mu.Unlock()

	video, err := c.videoChannel(a)
	if err != nil {
		return err
	}

	bridge := channel.NewVideoStreamBridge(source, video, c.metrics, c.logger)
	c.mu.Lock()
	c.bridge = bridge
	c.mu.Unlock()

	bridge.Start()
	return nil
}

// videoChannel waits for the video data channel and wraps it once.
func (c *SessionController) videoChannel(a *attempt) (*channel.VideoChannel, error) {
	c.mu.Lock()
	if a.video != nil {
		video := a.video
		c.mu.Unlock()
		return video, nil
	}
	c.mu.Unlock()

	dc, err := waitForDataChannel(a.ctx, a.videoDC, c.cfg.DataChannelTimeout)
	if err != nil {
		return nil, fmt.Errorf("video %w", domain.ErrDataChannelTimeout)
	}

	video := channel.NewVideoChannel(dc, c.metrics, c.logger)
	c.mu.Lock()
	a.video = video
	c.mu.Unlock()
	return video, nil
}

// establish runs one full connection attempt: signaling, peer connection,
// negotiation, then the bounded waits for transport connectivity and the
// command data channel. Any previous attempt is fully torn down first; the
// transport engine refuses a second live connection.
func (c *SessionController) establish(parent context.Context, attemptNo int) error {
	c.teardownCurrent()

	sctx, span := tracing.TraceConnectAttempt(parent, c.deviceID, attemptNo)
	defer span.End()

	actx, acancel := context.WithCancel(sctx)
	a := &attempt{
		ctx:        actx,
		cancel:     acancel,
		connEvents: make(chan domain.ConnectionState, connEventBuffer),
		commandDC:  make(chan ports.DataChannel, 1),
		videoDC:    make(chan ports.DataChannel, 1),
	}

	fail := func(err error) error {
		tracing.RecordError(sctx, err)
		acancel()
		return err
	}

	signaler, err := c.signaler(c.serverURL, c.deviceID, domain.RoleDevice)
	if err != nil {
		return fail(err)
	}
	a.signaler = signaler

	if err := signaler.Connect(actx); err != nil {
		return fail(err)
	}

	peer, err := c.transport.NewPeerConnection(actx)
	if err != nil {
		signaler.Disconnect()
		return fail(err)
	}
	a.peer = peer

	c.wireCallbacks(a)

	c.mu.Lock()
	c.current = a
	c.mu.Unlock()

	a.wg.Add(1)
	go c.negotiate(a)

	if err := c.waitForConnected(a); err != nil {
		return fail(err)
	}

	dc, err := waitForDataChannel(a.ctx, a.commandDC, c.cfg.DataChannelTimeout)
	if err != nil {
		return fail(domain.ErrDataChannelTimeout)
	}
	a.commands = channel.NewCommandChannel(dc, c.logger)

	a.wg.Add(2)
	go c.watchTransport(a)
	go c.commandLoop(a)

	c.logger.Infow("session established", "device_id", c.deviceID, "attempt", attemptNo)
	return nil
}

func (c *SessionController) wireCallbacks(a *attempt) {
	a.peer.OnICECandidate(func(candidate domain.IceCandidate) {
		if err := a.signaler.SendIceCandidate(candidate); err != nil {
			c.logger.Warnw("failed to forward local ICE candidate", "error", err)
		}
	})

	a.peer.OnConnectionStateChange(func(state domain.ConnectionState) {
		select {
		case a.connEvents <- state:
		default:
			c.logger.Warnw("dropping transport state event under backpressure", "state", state)
		}
	})

	a.peer.OnDataChannel(func(dc ports.DataChannel) {
		c.logger.Infow("data channel announced", "label", dc.Label())
		switch dc.Label() {
		case commandChannelLabel:
			select {
			case a.commandDC <- dc:
			default:
			}
		case videoChannelLabel:
			select {
			case a.videoDC <- dc:
			default:
			}
		default:
			c.logger.Warnw("ignoring data channel with unknown label", "label", dc.Label())
		}
	})
}

// negotiate answers remote offers and feeds remote candidates into the
// transport for as long as the attempt lives.
func (c *SessionController) negotiate(a *attempt) {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return

		case offer := <-a.signaler.Offers():
			if err := c.answerOffer(a, offer); err != nil {
				c.logger.Errorw("offer negotiation failed", "error", err)
				select {
				case a.connEvents <- domain.ConnectionFailed:
				default:
				}
			}

		case desc := <-a.signaler.Answers():
			// The device side never sends offers, so any answer is
			// unsolicited. Drained to keep the signaling read loop moving.
			c.logger.Debugw("ignoring unsolicited answer", "type", desc.Type)

		case candidate := <-a.signaler.IceCandidates():
			if err := a.peer.AddICECandidate(a.ctx, candidate); err != nil {
				c.logger.Warnw("failed to add remote ICE candidate", "error", err)
			}

		case role := <-a.signaler.PeerJoined():
			c.logger.Infow("peer joined session", "role", role)

		case <-a.signaler.PeerLeft():
			c.logger.Infow("peer left session")

		case msg := <-a.signaler.Errors():
			c.logger.Warnw("signaling error", "message", msg)
		}
	}
}

func (c *SessionController) answerOffer(a *attempt, offer domain.SessionDescription) error {
	if err := a.peer.SetRemoteDescription(a.ctx, offer); err != nil {
		return err
	}
	answer, err := a.peer.CreateAnswer(a.ctx)
	if err != nil {
		return err
	}
	if err := a.peer.SetLocalDescription(a.ctx, answer); err != nil {
		return err
	}
	return a.signaler.SendAnswer(answer)
}

// waitForConnected blocks until the transport reports connected, a
// terminal failure arrives, or the attempt times out.
func (c *SessionController) waitForConnected(a *attempt) error {
	timer := time.NewTimer(c.cfg.ConnectTimeout)
	defer timer.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return a.ctx.Err()
		case <-timer.C:
			return fmt.Errorf("transport did not connect within %s", c.cfg.ConnectTimeout)
		case state := <-a.connEvents:
			switch state {
			case domain.ConnectionConnected:
				return nil
			case domain.ConnectionFailed, domain.ConnectionClosed:
				return domain.NewTransportError("connect", fmt.Errorf("transport state %s", state))
			}
		}
	}
}

func waitForDataChannel(ctx context.Context, ch <-chan ports.DataChannel, timeout time.Duration) (ports.DataChannel, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, domain.ErrDataChannelTimeout
	case dc := <-ch:
		return dc, nil
	}
}

// watchTransport turns an unexpected disconnected/failed signal into the
// reconnect loop. Explicit Disconnect never triggers reconnection.
func (c *SessionController) watchTransport(a *attempt) {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case state := <-a.connEvents:
			if state != domain.ConnectionDisconnected && state != domain.ConnectionFailed {
				continue
			}

			c.mu.Lock()
			if c.closing || c.reconnecting {
				c.mu.Unlock()
				return
			}
			c.reconnecting = true
			c.mu.Unlock()

			c.logger.Warnw("transport lost unexpectedly", "state", state)
			c.sessionWg.Add(1)
			go c.reconnectLoop()
			return
		}
	}
}

// reconnectLoop retries establishment with exponential backoff until it
// succeeds, the attempts are exhausted, or the session is closed.
func (c *SessionController) reconnectLoop() {
	defer c.sessionWg.Done()
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	max := c.cfg.Reconnect.MaxAttempts

	for n := 1; n <= max; n++ {
		c.setState(domain.Reconnecting(n, max))
		c.metrics.IncReconnectAttempt()

		select {
		case <-c.sessionCtx.Done():
			return
		case <-time.After(retry.Delay(c.cfg.Reconnect, n)):
		}

		c.setState(domain.Connecting())

		start := time.Now()
		if err := c.establish(c.sessionCtx, n); err != nil {
			c.logger.Warnw("reconnect attempt failed", "attempt", n, "max", max, "error", err)
			continue
		}

		c.metrics.ObserveConnectDuration(time.Since(start))
		c.setState(domain.Connected(c.deviceID))
		return
	}

	c.teardownCurrent()
	c.setState(domain.Errored(fmt.Sprintf("%v: gave up after %d attempts", domain.ErrReconnectExhausted, max)))
}

// commandLoop consumes inbound envelopes, dispatches them to the handlers,
// and returns an ack per command over the same channel.
func (c *SessionController) commandLoop(a *attempt) {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case envelope := <-a.commands.Commands():
			if c.limiter != nil {
				if err := c.limiter.Wait(a.ctx); err != nil {
					return
				}
			}

			result := c.execute(a.ctx, envelope.Command)
			c.metrics.IncCommand(envelope.Command.Type, result.Success)

			ack := domain.NewAck(envelope.ID, result.Success, result.Message, result.Data)
			if err := a.commands.SendAck(ack); err != nil {
				c.logger.Warnw("failed to send ack", "command_id", envelope.ID, "error", err)
			}
		}
	}
}

// execute routes one command to its handler. Invalid commands and commands
// with no configured handler produce failure results, never drops.
func (c *SessionController) execute(ctx context.Context, cmd domain.RemoteCommand) domain.CommandResult {
	if err := validation.ValidateCommand(cmd); err != nil {
		return domain.CommandResult{Success: false, Message: err.Error()}
	}

	var result domain.CommandResult
	switch {
	case cmd.Type.IsGesture():
		if c.handlers.Input == nil {
			return domain.CommandResult{Success: false, Message: "no input handler configured"}
		}
		result = c.handlers.Input.HandleGesture(ctx, cmd)

	case cmd.Type.IsText():
		if c.handlers.Text == nil {
			return domain.CommandResult{Success: false, Message: "no text input handler configured"}
		}
		result = c.handlers.Text.HandleText(ctx, cmd)

	case cmd.Type.IsMDM():
		if c.handlers.MDM == nil {
			return domain.CommandResult{Success: false, Message: "no MDM handler configured"}
		}
		result = c.handlers.MDM.HandleAdmin(ctx, cmd)

	default:
		return domain.CommandResult{Success: false, Message: fmt.Sprintf("unknown command type %q", cmd.Type)}
	}

	// A handler interrupted by session teardown must not report success
	// for work it may not have completed.
	if ctx.Err() != nil && !result.Success {
		result.Message = "command interrupted: " + ctx.Err().Error()
	}
	return result
}

// teardownCurrent fully dismantles the live attempt: stop the video
// bridge, cancel the attempt's tasks, wait for them, close the channels,
// close the peer connection synchronously, then close signaling in the
// background. Nothing of the old transport survives into the next attempt;
// a stream restarted afterwards gets a fresh bridge over the new channel.
func (c *SessionController) teardownCurrent() {
	c.mu.Lock()
	a := c.current
	c.current = nil
	bridge := c.bridge
	c.bridge = nil
	c.mu.Unlock()

	if bridge != nil {
		bridge.Stop()
	}
	if a == nil {
		return
	}

	a.cancel()
	a.wg.Wait()

	if a.commands != nil {
		a.commands.Close()
	}
	if a.video != nil {
		a.video.Close()
	}
	if a.peer != nil {
		if err := a.peer.Close(); err != nil {
			c.logger.Warnw("peer connection close failed", "error", err)
		}
	}
	if a.signaler != nil {
		go a.signaler.Disconnect()
	}
}
