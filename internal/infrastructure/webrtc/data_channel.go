package webrtc

import (
	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// dataChannel adapts *webrtc.DataChannel to the ports surface.
type dataChannel struct {
	dc     *webrtc.DataChannel
	logger *zap.SugaredLogger
}

var _ ports.DataChannel = (*dataChannel)(nil)

func newDataChannel(dc *webrtc.DataChannel, logger *zap.SugaredLogger) *dataChannel {
	return &dataChannel{dc: dc, logger: logger}
}

func (d *dataChannel) Label() string {
	return d.dc.Label()
}

func (d *dataChannel) Send(data []byte) error {
	if !d.IsOpen() {
		return domain.ErrChannelClosed
	}
	if err := d.dc.Send(data); err != nil {
		return domain.NewTransportError("data channel send", err)
	}
	return nil
}

func (d *dataChannel) SendText(text string) error {
	if !d.IsOpen() {
		return domain.ErrChannelClosed
	}
	if err := d.dc.SendText(text); err != nil {
		return domain.NewTransportError("data channel send text", err)
	}
	return nil
}

func (d *dataChannel) OnMessage(fn func(data []byte, isText bool)) {
	d.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data, msg.IsString)
	})
}

func (d *dataChannel) OnStateChange(fn func(open bool)) {
	d.dc.OnOpen(func() { fn(true) })
	d.dc.OnClose(func() { fn(false) })
}

// IsOpen is true only in the open state, not while connecting or closing.
func (d *dataChannel) IsOpen() bool {
	return d.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (d *dataChannel) Close() error {
	return d.dc.Close()
}
