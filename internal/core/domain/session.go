package domain

import "fmt"

// SessionPhase is the lifecycle phase of a remote session.
type SessionPhase string

const (
	PhaseDisconnected SessionPhase = "disconnected"
	PhaseConnecting   SessionPhase = "connecting"
	PhaseConnected    SessionPhase = "connected"
	PhaseReconnecting SessionPhase = "reconnecting"
	PhaseError        SessionPhase = "error"
)

// SessionState is the controller-owned state published to observers. The
// non-phase fields are meaningful only for the phases that set them:
// DeviceID for Connected, Attempt/MaxAttempts for Reconnecting, Message for
// Error.
type SessionState struct {
	Phase       SessionPhase
	DeviceID    string
	Attempt     int
	MaxAttempts int
	Message     string
}

func Disconnected() SessionState {
	return SessionState{Phase: PhaseDisconnected}
}

func Connecting() SessionState {
	return SessionState{Phase: PhaseConnecting}
}

func Connected(deviceID string) SessionState {
	return SessionState{Phase: PhaseConnected, DeviceID: deviceID}
}

func Reconnecting(attempt, max int) SessionState {
	return SessionState{Phase: PhaseReconnecting, Attempt: attempt, MaxAttempts: max}
}

func Errored(message string) SessionState {
	return SessionState{Phase: PhaseError, Message: message}
}

func (s SessionState) String() string {
	switch s.Phase {
	case PhaseConnected:
		return fmt.Sprintf("connected(%s)", s.DeviceID)
	case PhaseReconnecting:
		return fmt.Sprintf("reconnecting(%d/%d)", s.Attempt, s.MaxAttempts)
	case PhaseError:
		return fmt.Sprintf("error(%s)", s.Message)
	default:
		return string(s.Phase)
	}
}

// SDPType mirrors the description types exchanged during negotiation.
type SDPType string

const (
	SDPTypeOffer    SDPType = "offer"
	SDPTypeAnswer   SDPType = "answer"
	SDPTypePranswer SDPType = "pranswer"
)

// SessionDescription is one SDP blob exchanged through signaling. Immutable
// once constructed.
type SessionDescription struct {
	Type SDPType
	SDP  string
}

// IceCandidate is a network path candidate forwarded verbatim between the
// transport and the peer. SDPMid and SDPMLineIndex are nullable on the wire.
type IceCandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid"`
	SDPMLineIndex *int    `json:"sdpMLineIndex"`
}

// ConnectionState is the transport-level peer connection state.
type ConnectionState string

const (
	ConnectionNew          ConnectionState = "new"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionFailed       ConnectionState = "failed"
	ConnectionClosed       ConnectionState = "closed"
)

// PeerRole identifies the two ends of a session on the signaling server.
type PeerRole string

const (
	RoleDevice     PeerRole = "device"
	RoleController PeerRole = "controller"
)
