package ports

import (
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
)

// SessionMetrics receives observability events from the session stack.
// Implemented by the Prometheus collector; tests use NopMetrics.
type SessionMetrics interface {
	SetSessionPhase(phase domain.SessionPhase)
	ObserveConnectDuration(d time.Duration)
	IncReconnectAttempt()
	IncCommand(commandType domain.CommandType, success bool)
	IncFrameSent()
	IncFrameDropped()
	IncDecodeError()
}

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) SetSessionPhase(domain.SessionPhase)             {}
func (NopMetrics) ObserveConnectDuration(time.Duration)            {}
func (NopMetrics) IncReconnectAttempt()                            {}
func (NopMetrics) IncCommand(domain.CommandType, bool)             {}
func (NopMetrics) IncFrameSent()                                   {}
func (NopMetrics) IncFrameDropped()                                {}
func (NopMetrics) IncDecodeError()                                 {}
