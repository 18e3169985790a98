package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandType is the wire tag of a remote command. The tags are the stable
// wire contract; renaming a Go identifier must never change a tag.
type CommandType string

const (
	CommandTap       CommandType = "TAP"
	CommandSwipe     CommandType = "SWIPE"
	CommandLongPress CommandType = "LONG_PRESS"
	CommandKeyPress  CommandType = "KEY_PRESS"
	CommandTypeText  CommandType = "TYPE_TEXT"
	CommandPinch     CommandType = "PINCH"
	CommandScroll    CommandType = "SCROLL"

	CommandGetDeviceInfo CommandType = "GET_DEVICE_INFO"
	CommandLockDevice    CommandType = "LOCK_DEVICE"
	CommandRebootDevice  CommandType = "REBOOT_DEVICE"
	CommandWipeDevice    CommandType = "WIPE_DEVICE"
	CommandListApps      CommandType = "LIST_APPS"
	CommandInstallApp    CommandType = "INSTALL_APP"
	CommandUninstallApp  CommandType = "UNINSTALL_APP"
)

// IsGesture reports whether the command is a pointer gesture.
func (t CommandType) IsGesture() bool {
	switch t {
	case CommandTap, CommandSwipe, CommandLongPress, CommandPinch, CommandScroll:
		return true
	}
	return false
}

// IsText reports whether the command is keyboard/text input.
func (t CommandType) IsText() bool {
	return t == CommandKeyPress || t == CommandTypeText
}

// IsMDM reports whether the command is a device-management action.
func (t CommandType) IsMDM() bool {
	switch t {
	case CommandGetDeviceInfo, CommandLockDevice, CommandRebootDevice,
		CommandWipeDevice, CommandListApps, CommandInstallApp, CommandUninstallApp:
		return true
	}
	return false
}

// RemoteCommand is one instance of the tagged command union. Only the fields
// belonging to Type are meaningful; serialization emits exactly those. All
// coordinates are normalized floats in [0,1] relative to the target surface.
type RemoteCommand struct {
	Type CommandType

	X float64
	Y float64

	StartX float64
	StartY float64
	EndX   float64
	EndY   float64

	DeltaX float64
	DeltaY float64

	CenterX float64
	CenterY float64
	Scale   float64

	DurationMs int64
	KeyCode    int
	Text       string

	PackageName string
	APKURL      string
}

// Constructors for the gesture variants keep call sites terse.

func Tap(x, y float64) RemoteCommand {
	return RemoteCommand{Type: CommandTap, X: x, Y: y}
}

func Swipe(startX, startY, endX, endY float64, durationMs int64) RemoteCommand {
	return RemoteCommand{Type: CommandSwipe, StartX: startX, StartY: startY, EndX: endX, EndY: endY, DurationMs: durationMs}
}

func LongPress(x, y float64, durationMs int64) RemoteCommand {
	return RemoteCommand{Type: CommandLongPress, X: x, Y: y, DurationMs: durationMs}
}

func KeyPress(keyCode int) RemoteCommand {
	return RemoteCommand{Type: CommandKeyPress, KeyCode: keyCode}
}

func TypeText(text string) RemoteCommand {
	return RemoteCommand{Type: CommandTypeText, Text: text}
}

func Pinch(centerX, centerY, scale float64, durationMs int64) RemoteCommand {
	return RemoteCommand{Type: CommandPinch, CenterX: centerX, CenterY: centerY, Scale: scale, DurationMs: durationMs}
}

func Scroll(x, y, deltaX, deltaY float64) RemoteCommand {
	return RemoteCommand{Type: CommandScroll, X: x, Y: y, DeltaX: deltaX, DeltaY: deltaY}
}

// MarshalJSON emits the discriminated wire form: the type tag plus exactly
// the fields of that variant. Zero-valued coordinates are kept (0 is a valid
// normalized coordinate).
func (c RemoteCommand) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": c.Type}

	switch c.Type {
	case CommandTap:
		m["x"], m["y"] = c.X, c.Y
	case CommandSwipe:
		m["startX"], m["startY"] = c.StartX, c.StartY
		m["endX"], m["endY"] = c.EndX, c.EndY
		m["durationMs"] = c.DurationMs
	case CommandLongPress:
		m["x"], m["y"] = c.X, c.Y
		m["durationMs"] = c.DurationMs
	case CommandKeyPress:
		m["keyCode"] = c.KeyCode
	case CommandTypeText:
		m["text"] = c.Text
	case CommandPinch:
		m["centerX"], m["centerY"] = c.CenterX, c.CenterY
		m["scale"] = c.Scale
		m["durationMs"] = c.DurationMs
	case CommandScroll:
		m["x"], m["y"] = c.X, c.Y
		m["deltaX"], m["deltaY"] = c.DeltaX, c.DeltaY
	case CommandInstallApp:
		m["apkUrl"] = c.APKURL
	case CommandUninstallApp:
		m["packageName"] = c.PackageName
	case CommandGetDeviceInfo, CommandLockDevice, CommandRebootDevice,
		CommandWipeDevice, CommandListApps:
		// Tag only.
	default:
		return nil, fmt.Errorf("cannot marshal command with unknown type %q", c.Type)
	}

	return json.Marshal(m)
}

// UnmarshalJSON reads the flat wire form. Unknown fields are ignored so the
// schema can grow without breaking old clients; an unknown type tag is kept
// as-is and rejected later at dispatch.
func (c *RemoteCommand) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        CommandType `json:"type"`
		X           float64     `json:"x"`
		Y           float64     `json:"y"`
		StartX      float64     `json:"startX"`
		StartY      float64     `json:"startY"`
		EndX        float64     `json:"endX"`
		EndY        float64     `json:"endY"`
		DeltaX      float64     `json:"deltaX"`
		DeltaY      float64     `json:"deltaY"`
		CenterX     float64     `json:"centerX"`
		CenterY     float64     `json:"centerY"`
		Scale       float64     `json:"scale"`
		DurationMs  int64       `json:"durationMs"`
		KeyCode     int         `json:"keyCode"`
		Text        string      `json:"text"`
		PackageName string      `json:"packageName"`
		APKURL      string      `json:"apkUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		return fmt.Errorf("command is missing type tag")
	}

	*c = RemoteCommand{
		Type:        raw.Type,
		X:           raw.X,
		Y:           raw.Y,
		StartX:      raw.StartX,
		StartY:      raw.StartY,
		EndX:        raw.EndX,
		EndY:        raw.EndY,
		DeltaX:      raw.DeltaX,
		DeltaY:      raw.DeltaY,
		CenterX:     raw.CenterX,
		CenterY:     raw.CenterY,
		Scale:       raw.Scale,
		DurationMs:  raw.DurationMs,
		KeyCode:     raw.KeyCode,
		Text:        raw.Text,
		PackageName: raw.PackageName,
		APKURL:      raw.APKURL,
	}
	return nil
}

// CommandEnvelope wraps one outbound command with its correlation id.
// Timestamp is epoch milliseconds.
type CommandEnvelope struct {
	ID        string        `json:"id"`
	Command   RemoteCommand `json:"command"`
	Timestamp int64         `json:"timestamp"`
}

// CommandAck is the result of executing one command. ErrorMessage and Data
// serialize as explicit nulls when absent; the wire schema requires the keys.
type CommandAck struct {
	CommandID    string                 `json:"commandId"`
	Success      bool                   `json:"success"`
	ErrorMessage *string                `json:"errorMessage"`
	Data         map[string]interface{} `json:"data"`
	Timestamp    int64                  `json:"timestamp"`
}

// NewAck builds an ack for the given envelope id; message is attached only
// on failure.
func NewAck(commandID string, success bool, message string, data map[string]interface{}) CommandAck {
	ack := CommandAck{
		CommandID: commandID,
		Success:   success,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if message != "" {
		ack.ErrorMessage = &message
	}
	return ack
}

// CommandResult is what a command executor reports back to the session.
type CommandResult struct {
	Success bool
	Message string
	Data    map[string]interface{}
}
