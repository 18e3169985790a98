package webrtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// EngineConfig carries the transport settings handed to pion.
type EngineConfig struct {
	ICEServers []webrtc.ICEServer
	PortRange  struct {
		Min uint16
		Max uint16
	}
}

// Engine is the process-wide peer connection factory. The underlying native
// transport state must not be double-initialized, so the engine refuses to
// create a new connection while a previous one is still live; callers close
// the old connection first.
type Engine struct {
	config EngineConfig
	api    *webrtc.API

	mu   sync.Mutex
	live *peerConnection

	logger *zap.SugaredLogger
}

var _ ports.TransportFactory = (*Engine)(nil)

// NewEngine builds the factory with the configured transport settings.
func NewEngine(config EngineConfig, logger *zap.SugaredLogger) *Engine {
	settingEngine := webrtc.SettingEngine{}
	if config.PortRange.Min > 0 && config.PortRange.Max > 0 {
		settingEngine.SetEphemeralUDPPortRange(config.PortRange.Min, config.PortRange.Max)
	}

	return &Engine{
		config: config,
		api:    webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine)),
		logger: logger,
	}
}

// NewPeerConnection creates the next peer connection. It fails with
// domain.ErrPeerConnectionActive while the previous one is not yet closed.
func (e *Engine) NewPeerConnection(ctx context.Context) (ports.PeerConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.live != nil && !e.live.closed() {
		return nil, domain.ErrPeerConnectionActive
	}

	pc, err := e.api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   e.config.ICEServers,
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlanWithFallback,
	})
	if err != nil {
		return nil, domain.NewTransportError("create peer connection", err)
	}

	wrapped := &peerConnection{pc: pc, logger: e.logger}
	e.live = wrapped
	return wrapped, nil
}

// peerConnection adapts *webrtc.PeerConnection to the ports surface.
type peerConnection struct {
	pc     *webrtc.PeerConnection
	logger *zap.SugaredLogger

	mu       sync.Mutex
	isClosed bool
}

func (p *peerConnection) closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isClosed
}

func (p *peerConnection) CreateOffer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return domain.SessionDescription{}, domain.NewTransportError("create offer", err)
	}
	return fromPion(offer), nil
}

func (p *peerConnection) CreateAnswer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, domain.NewTransportError("create answer", err)
	}
	return fromPion(answer), nil
}

func (p *peerConnection) SetLocalDescription(ctx context.Context, desc domain.SessionDescription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sd, err := toPion(desc)
	if err != nil {
		return err
	}
	if err := p.pc.SetLocalDescription(sd); err != nil {
		return domain.NewTransportError("set local description", err)
	}
	return nil
}

func (p *peerConnection) SetRemoteDescription(ctx context.Context, desc domain.SessionDescription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sd, err := toPion(desc)
	if err != nil {
		return err
	}
	if err := p.pc.SetRemoteDescription(sd); err != nil {
		return domain.NewTransportError("set remote description", err)
	}
	return nil
}

func (p *peerConnection) AddICECandidate(ctx context.Context, candidate domain.IceCandidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	init := webrtc.ICECandidateInit{Candidate: candidate.Candidate, SDPMid: candidate.SDPMid}
	if candidate.SDPMLineIndex != nil {
		idx := uint16(*candidate.SDPMLineIndex)
		init.SDPMLineIndex = &idx
	}
	if err := p.pc.AddICECandidate(init); err != nil {
		return domain.NewTransportError("add ice candidate", err)
	}
	return nil
}

func (p *peerConnection) CreateDataChannel(label string) (ports.DataChannel, error) {
	ordered := true
	dc, err := p.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, domain.NewTransportError("create data channel", err)
	}
	return newDataChannel(dc, p.logger), nil
}

func (p *peerConnection) OnICECandidate(fn func(candidate domain.IceCandidate)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return // end of gathering
		}
		init := c.ToJSON()
		candidate := domain.IceCandidate{Candidate: init.Candidate, SDPMid: init.SDPMid}
		if init.SDPMLineIndex != nil {
			idx := int(*init.SDPMLineIndex)
			candidate.SDPMLineIndex = &idx
		}
		fn(candidate)
	})
}

func (p *peerConnection) OnConnectionStateChange(fn func(state domain.ConnectionState)) {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		fn(fromPionState(state))
	})
}

func (p *peerConnection) OnDataChannel(fn func(dc ports.DataChannel)) {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(newDataChannel(dc, p.logger))
	})
}

// Close releases the connection synchronously and marks it dead so the
// engine may hand out a successor.
func (p *peerConnection) Close() error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return nil
	}
	p.isClosed = true
	p.mu.Unlock()

	if err := p.pc.Close(); err != nil {
		return domain.NewTransportError("close", err)
	}
	return nil
}

func fromPion(sd webrtc.SessionDescription) domain.SessionDescription {
	var t domain.SDPType
	switch sd.Type {
	case webrtc.SDPTypeOffer:
		t = domain.SDPTypeOffer
	case webrtc.SDPTypeAnswer:
		t = domain.SDPTypeAnswer
	case webrtc.SDPTypePranswer:
		t = domain.SDPTypePranswer
	}
	return domain.SessionDescription{Type: t, SDP: sd.SDP}
}

func toPion(desc domain.SessionDescription) (webrtc.SessionDescription, error) {
	var t webrtc.SDPType
	switch desc.Type {
	case domain.SDPTypeOffer:
		t = webrtc.SDPTypeOffer
	case domain.SDPTypeAnswer:
		t = webrtc.SDPTypeAnswer
	case domain.SDPTypePranswer:
		t = webrtc.SDPTypePranswer
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported SDP type %q", desc.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: desc.SDP}, nil
}

func fromPionState(state webrtc.PeerConnectionState) domain.ConnectionState {
	switch state {
	case webrtc.PeerConnectionStateNew:
		return domain.ConnectionNew
	case webrtc.PeerConnectionStateConnecting:
		return domain.ConnectionConnecting
	case webrtc.PeerConnectionStateConnected:
		return domain.ConnectionConnected
	case webrtc.PeerConnectionStateDisconnected:
		return domain.ConnectionDisconnected
	case webrtc.PeerConnectionStateFailed:
		return domain.ConnectionFailed
	default:
		return domain.ConnectionClosed
	}
}
