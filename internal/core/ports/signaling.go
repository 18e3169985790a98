package ports

import (
	"context"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
)

// Signaler is the control-plane connection to the relay server. Inbound
// sequences are live-only: they never replay history to late subscribers,
// and per-source receipt order is preserved.
type Signaler interface {
	// Connect opens the socket and announces this endpoint with a join
	// message. Failure to establish the socket is a *domain.SignalingError.
	Connect(ctx context.Context) error
	// Disconnect closes the socket; safe to call repeatedly.
	Disconnect()

	// Send operations return domain.ErrNotConnected while disconnected.
	SendOffer(desc domain.SessionDescription) error
	SendAnswer(desc domain.SessionDescription) error
	SendIceCandidate(candidate domain.IceCandidate) error

	Offers() <-chan domain.SessionDescription
	Answers() <-chan domain.SessionDescription
	IceCandidates() <-chan domain.IceCandidate
	PeerJoined() <-chan domain.PeerRole
	PeerLeft() <-chan struct{}
	Errors() <-chan string
}

// SignalerFactory builds a Signaler for one connection attempt.
type SignalerFactory func(serverURL, deviceID string, role domain.PeerRole) (Signaler, error)
