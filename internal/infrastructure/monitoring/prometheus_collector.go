package monitoring

import (
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports session stack metrics. It registers against
// an injected Registerer so tests can use private registries.
type PrometheusCollector struct {
	sessionPhase    *prometheus.GaugeVec
	connectDuration prometheus.Histogram
	reconnectsTotal prometheus.Counter
	commandsTotal   *prometheus.CounterVec
	framesSentTotal prometheus.Counter
	framesDropped   prometheus.Counter
	decodeErrors    prometheus.Counter
}

var _ ports.SessionMetrics = (*PrometheusCollector)(nil)

func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		sessionPhase: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "remoted_session_phase",
			Help: "Current session phase (1 for the active phase, 0 otherwise)",
		}, []string{"phase"}),

		connectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "remoted_session_connect_duration_seconds",
			Help:    "Time from connect start to the session reaching connected",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "remoted_session_reconnect_attempts_total",
			Help: "Total reconnection attempts",
		}),

		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "remoted_commands_total",
			Help: "Commands processed, by type and outcome",
		}, []string{"type", "outcome"}),

		framesSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "remoted_video_frames_sent_total",
			Help: "Video frames accepted by the data channel",
		}),

		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "remoted_video_frames_dropped_total",
			Help: "Video frames dropped on send failure or backpressure",
		}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "remoted_protocol_decode_errors_total",
			Help: "Malformed protocol messages dropped",
		}),
	}
}

func (c *PrometheusCollector) SetSessionPhase(phase domain.SessionPhase) {
	for _, p := range []domain.SessionPhase{
		domain.PhaseDisconnected, domain.PhaseConnecting, domain.PhaseConnected,
		domain.PhaseReconnecting, domain.PhaseError,
	} {
		v := 0.0
		if p == phase {
			v = 1.0
		}
		c.sessionPhase.WithLabelValues(string(p)).Set(v)
	}
}

func (c *PrometheusCollector) ObserveConnectDuration(d time.Duration) {
	c.connectDuration.Observe(d.Seconds())
}

func (c *PrometheusCollector) IncReconnectAttempt() {
	c.reconnectsTotal.Inc()
}

func (c *PrometheusCollector) IncCommand(commandType domain.CommandType, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.commandsTotal.WithLabelValues(string(commandType), outcome).Inc()
}

func (c *PrometheusCollector) IncFrameSent() {
	c.framesSentTotal.Inc()
}

func (c *PrometheusCollector) IncFrameDropped() {
	c.framesDropped.Inc()
}

func (c *PrometheusCollector) IncDecodeError() {
	c.decodeErrors.Inc()
}
