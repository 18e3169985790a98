package ports

import (
	"context"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
)

// DataChannel is one ordered byte stream multiplexed over a peer connection.
type DataChannel interface {
	Label() string
	// Send transmits a binary message; SendText a text message. Both fail
	// with domain.ErrChannelClosed when the channel is not open.
	Send(data []byte) error
	SendText(text string) error
	// OnMessage registers the inbound message callback. isText distinguishes
	// text from binary frames.
	OnMessage(fn func(data []byte, isText bool))
	OnStateChange(fn func(open bool))
	IsOpen() bool
	Close() error
}

// PeerConnection is the controller-facing surface of one transport engine
// connection. All negotiation calls may block on the engine and honor ctx.
type PeerConnection interface {
	CreateOffer(ctx context.Context) (domain.SessionDescription, error)
	CreateAnswer(ctx context.Context) (domain.SessionDescription, error)
	SetLocalDescription(ctx context.Context, desc domain.SessionDescription) error
	SetRemoteDescription(ctx context.Context, desc domain.SessionDescription) error
	AddICECandidate(ctx context.Context, candidate domain.IceCandidate) error
	CreateDataChannel(label string) (DataChannel, error)

	OnICECandidate(fn func(candidate domain.IceCandidate))
	OnConnectionStateChange(fn func(state domain.ConnectionState))
	OnDataChannel(fn func(dc DataChannel))

	// Close releases the connection's native resources synchronously. It is
	// idempotent and must complete before a successor connection is created
	// from the same factory.
	Close() error
}

// TransportFactory creates peer connections from a process-wide engine. The
// engine's native state must never be double-initialized: implementations
// refuse to create a new connection while a previous one is still live.
type TransportFactory interface {
	NewPeerConnection(ctx context.Context) (PeerConnection, error)
}
