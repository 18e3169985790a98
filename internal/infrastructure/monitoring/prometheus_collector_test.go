package monitoring

import (
	"testing"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_SessionPhaseIsExclusive(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.SetSessionPhase(domain.PhaseConnected)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionPhase.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.sessionPhase.WithLabelValues("disconnected")))

	c.SetSessionPhase(domain.PhaseReconnecting)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.sessionPhase.WithLabelValues("connected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionPhase.WithLabelValues("reconnecting")))
}

func TestPrometheusCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.IncReconnectAttempt()
	c.IncReconnectAttempt()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.reconnectsTotal))

	c.IncCommand(domain.CommandTap, true)
	c.IncCommand(domain.CommandTap, false)
	c.IncCommand(domain.CommandSwipe, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("TAP", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("TAP", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("SWIPE", "success")))

	c.IncFrameSent()
	c.IncFrameDropped()
	c.IncDecodeError()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesSentTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decodeErrors))
}

func TestPrometheusCollector_RegistersAgainstInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)
	c.ObserveConnectDuration(1500 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["remoted_session_connect_duration_seconds"])

	// A second collector on its own registry must not collide.
	NewPrometheusCollector(prometheus.NewRegistry())
}
