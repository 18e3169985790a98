package ports

import (
	"context"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
)

// InputHandler executes pointer gestures (tap, swipe, long-press, pinch,
// scroll) on the device surface.
type InputHandler interface {
	HandleGesture(ctx context.Context, cmd domain.RemoteCommand) domain.CommandResult
}

// TextInputHandler executes keyboard input (key presses and text typing).
type TextInputHandler interface {
	HandleText(ctx context.Context, cmd domain.RemoteCommand) domain.CommandResult
}

// MDMHandler executes device-management commands (info, lock, reboot, wipe,
// app management).
type MDMHandler interface {
	HandleAdmin(ctx context.Context, cmd domain.RemoteCommand) domain.CommandResult
}

// FrameSource produces a continuous, possibly-infinite sequence of encoded
// video frames. The channel is closed when the source ends.
type FrameSource interface {
	Frames() <-chan domain.FrameData
}
