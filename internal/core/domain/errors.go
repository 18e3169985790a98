package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected         = errors.New("not connected")
	ErrAlreadyConnected     = errors.New("session already active")
	ErrChannelClosed        = errors.New("channel closed")
	ErrPeerConnectionActive = errors.New("previous peer connection still active")
	ErrNoActiveSession      = errors.New("no active session")
	ErrStreamAlreadyRunning = errors.New("video stream already running")
	ErrDataChannelTimeout   = errors.New("data channel not available after timeout")
	ErrReconnectExhausted   = errors.New("reconnect attempts exhausted")
)

// SignalingError wraps a failure to establish or use the signaling socket.
type SignalingError struct {
	Op    string
	Cause error
}

func (e *SignalingError) Error() string {
	return fmt.Sprintf("signaling %s failed: %v", e.Op, e.Cause)
}

func (e *SignalingError) Unwrap() error { return e.Cause }

func NewSignalingError(op string, cause error) *SignalingError {
	return &SignalingError{Op: op, Cause: cause}
}

// TransportError wraps a failure reported by the underlying peer transport
// engine (offer/answer creation, description setting, ICE addition).
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}
