package validation

import (
	"fmt"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
)

func coordinate(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be a normalized coordinate in [0,1], got %v", name, v)
	}
	return nil
}

func duration(ms int64) error {
	if ms <= 0 {
		return fmt.Errorf("durationMs must be > 0, got %d", ms)
	}
	return nil
}

// ValidateCommand checks a decoded command's fields before dispatch.
// Unknown tags are rejected here so the dispatcher only ever sees the
// closed variant set.
func ValidateCommand(cmd domain.RemoteCommand) error {
	switch cmd.Type {
	case domain.CommandTap:
		if err := coordinate("x", cmd.X); err != nil {
			return err
		}
		return coordinate("y", cmd.Y)

	case domain.CommandSwipe:
		for _, c := range []struct {
			name string
			v    float64
		}{
			{"startX", cmd.StartX}, {"startY", cmd.StartY},
			{"endX", cmd.EndX}, {"endY", cmd.EndY},
		} {
			if err := coordinate(c.name, c.v); err != nil {
				return err
			}
		}
		return duration(cmd.DurationMs)

	case domain.CommandLongPress:
		if err := coordinate("x", cmd.X); err != nil {
			return err
		}
		if err := coordinate("y", cmd.Y); err != nil {
			return err
		}
		return duration(cmd.DurationMs)

	case domain.CommandKeyPress:
		if cmd.KeyCode < 0 {
			return fmt.Errorf("keyCode must be >= 0, got %d", cmd.KeyCode)
		}
		return nil

	case domain.CommandTypeText:
		if cmd.Text == "" {
			return fmt.Errorf("text must not be empty")
		}
		return nil

	case domain.CommandPinch:
		if err := coordinate("centerX", cmd.CenterX); err != nil {
			return err
		}
		if err := coordinate("centerY", cmd.CenterY); err != nil {
			return err
		}
		if cmd.Scale <= 0 {
			return fmt.Errorf("scale must be > 0, got %v", cmd.Scale)
		}
		return duration(cmd.DurationMs)

	case domain.CommandScroll:
		if err := coordinate("x", cmd.X); err != nil {
			return err
		}
		return coordinate("y", cmd.Y)

	case domain.CommandInstallApp:
		if cmd.APKURL == "" {
			return fmt.Errorf("apkUrl must not be empty")
		}
		return nil

	case domain.CommandUninstallApp:
		if cmd.PackageName == "" {
			return fmt.Errorf("packageName must not be empty")
		}
		return nil

	case domain.CommandGetDeviceInfo, domain.CommandLockDevice,
		domain.CommandRebootDevice, domain.CommandWipeDevice, domain.CommandListApps:
		return nil

	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
}
