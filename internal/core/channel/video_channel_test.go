package channel

import (
	"testing"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestVideoChannel(t *testing.T) (*VideoChannel, *fakeDataChannel) {
	t.Helper()
	dc := newFakeDataChannel("video")
	return NewVideoChannel(dc, ports.NopMetrics{}, zap.NewNop().Sugar()), dc
}

func TestEncodeFrame_WireLayout(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x00, 0x01, 0x67}

	buf := EncodeFrame(domain.FrameData{
		Data:        payload,
		TimestampUs: 1234567890,
		IsKeyFrame:  true,
	})

	require.Len(t, buf, 1+8+len(payload))
	assert.Equal(t, byte(0x01), buf[0])
	// Big-endian 1234567890 in the eight timestamp bytes.
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x49, 0x96, 0x02, 0xD2}, buf[1:9])
	assert.Equal(t, payload, buf[9:])
}

func TestEncodeFrame_DeltaFrameFlag(t *testing.T) {
	buf := EncodeFrame(domain.FrameData{Data: []byte{0xAB}, TimestampUs: 1, IsKeyFrame: false})
	assert.Equal(t, byte(0x00), buf[0])
}

func TestDecodeFrame_RoundTrip(t *testing.T) {
	original := domain.FrameData{
		Data:        []byte{0xDE, 0xAD, 0xBE, 0xEF},
		TimestampUs: 987654321,
		IsKeyFrame:  true,
	}

	decoded, err := DecodeFrame(EncodeFrame(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeFrame_RejectsShortMessage(t *testing.T) {
	_, err := DecodeFrame([]byte{0x01, 0x00, 0x00})
	assert.Error(t, err)

	// A header with no payload is still a valid frame.
	frame, err := DecodeFrame(make([]byte, frameHeaderSize))
	require.NoError(t, err)
	assert.Empty(t, frame.Data)
}

func TestVideoChannel_SendFrame(t *testing.T) {
	vc, dc := newTestVideoChannel(t)

	ok := vc.SendFrame([]byte{0x01, 0x02}, 42, true)
	assert.True(t, ok)

	msgs := dc.sentBinary()
	require.Len(t, msgs, 1)

	frame, err := DecodeFrame(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, int64(42), frame.TimestampUs)
	assert.True(t, frame.IsKeyFrame)
	assert.Equal(t, []byte{0x01, 0x02}, frame.Data)
}

func TestVideoChannel_SendFrameAfterCloseReturnsFalse(t *testing.T) {
	vc, dc := newTestVideoChannel(t)

	require.NoError(t, vc.Close())

	assert.False(t, vc.SendFrame([]byte{0x01}, 1, false))
	assert.Empty(t, dc.sentBinary())
	assert.False(t, vc.IsOpen())
}

func TestVideoChannel_InboundFramesDecoded(t *testing.T) {
	vc, dc := newTestVideoChannel(t)

	dc.deliver(EncodeFrame(domain.FrameData{Data: []byte{0x11}, TimestampUs: 100, IsKeyFrame: true}), false)
	dc.deliver(EncodeFrame(domain.FrameData{Data: []byte{0x22}, TimestampUs: 200, IsKeyFrame: false}), false)

	first := <-vc.Frames()
	second := <-vc.Frames()
	assert.Equal(t, int64(100), first.TimestampUs)
	assert.True(t, first.IsKeyFrame)
	assert.Equal(t, int64(200), second.TimestampUs)
	assert.False(t, second.IsKeyFrame)
}

func TestVideoChannel_MalformedInboundDropped(t *testing.T) {
	vc, dc := newTestVideoChannel(t)

	dc.deliver([]byte{0x01}, false)     // too short
	dc.deliver([]byte("not video"), true) // wrong kind

	select {
	case frame := <-vc.Frames():
		t.Fatalf("unexpected frame delivered: %+v", frame)
	case <-time.After(50 * time.Millisecond):
	}
}
