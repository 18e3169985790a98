package monitoring

import (
	"encoding/json"
	"net/http"
	"time"
)

// StateReporter exposes the current session state for health reporting.
type StateReporter interface {
	State() string
}

// HealthHandler serves a JSON health summary for the agent process.
type HealthHandler struct {
	reporter  StateReporter
	startedAt time.Time
}

func NewHealthHandler(reporter StateReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter, startedAt: time.Now()}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":         "healthy",
		"session":        h.reporter.State(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
