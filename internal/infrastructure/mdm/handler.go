package mdm

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"go.uber.org/zap"
)

// Handler executes device-management commands on the host the agent runs
// on. Destructive actions (lock, reboot, wipe) and app management need
// platform integration this build does not ship, so they report failure
// acks rather than pretending to succeed.
type Handler struct {
	startedAt time.Time
	logger    *zap.SugaredLogger
}

var _ ports.MDMHandler = (*Handler)(nil)

func NewHandler(logger *zap.SugaredLogger) *Handler {
	return &Handler{startedAt: time.Now(), logger: logger}
}

func (h *Handler) HandleAdmin(ctx context.Context, cmd domain.RemoteCommand) domain.CommandResult {
	switch cmd.Type {
	case domain.CommandGetDeviceInfo:
		return h.deviceInfo()

	case domain.CommandListApps:
		// App inventory needs a package manager integration.
		return unsupported(cmd.Type)

	case domain.CommandLockDevice, domain.CommandRebootDevice, domain.CommandWipeDevice,
		domain.CommandInstallApp, domain.CommandUninstallApp:
		h.logger.Warnw("refusing privileged MDM command", "type", cmd.Type)
		return unsupported(cmd.Type)

	default:
		return domain.CommandResult{Success: false, Message: "not an MDM command: " + string(cmd.Type)}
	}
}

func (h *Handler) deviceInfo() domain.CommandResult {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return domain.CommandResult{
		Success: true,
		Data: map[string]interface{}{
			"hostname":      hostname,
			"os":            runtime.GOOS,
			"arch":          runtime.GOARCH,
			"numCpu":        runtime.NumCPU(),
			"agentUptimeMs": time.Since(h.startedAt).Milliseconds(),
		},
	}
}

func unsupported(t domain.CommandType) domain.CommandResult {
	return domain.CommandResult{Success: false, Message: string(t) + " is not supported by this agent build"}
}
