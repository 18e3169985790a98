package channel

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"go.uber.org/zap"
)

// Video wire format, one data-channel message per frame (no length prefix;
// the message boundary is the frame boundary):
//
//	[flags:1][timestampUs:8 big-endian][payload:N]
//
// flags bit0 marks a keyframe.
const (
	frameHeaderSize  = 9
	flagKeyFrame     = 0x01
	videoFrameBuffer = 60
)

// VideoChannel carries the binary video-frame protocol on one data channel.
type VideoChannel struct {
	dc ports.DataChannel

	frames chan domain.FrameData

	closeOnce sync.Once
	done      chan struct{}

	logger  *zap.SugaredLogger
	metrics ports.SessionMetrics
}

func NewVideoChannel(dc ports.DataChannel, metrics ports.SessionMetrics, logger *zap.SugaredLogger) *VideoChannel {
	v := &VideoChannel{
		dc:      dc,
		frames:  make(chan domain.FrameData, videoFrameBuffer),
		done:    make(chan struct{}),
		logger:  logger,
		metrics: metrics,
	}
	dc.OnMessage(v.handleMessage)
	return v
}

// EncodeFrame serializes one frame into its wire form.
func EncodeFrame(frame domain.FrameData) []byte {
	buf := make([]byte, frameHeaderSize+len(frame.Data))
	if frame.IsKeyFrame {
		buf[0] = flagKeyFrame
	}
	binary.BigEndian.PutUint64(buf[1:frameHeaderSize], uint64(frame.TimestampUs))
	copy(buf[frameHeaderSize:], frame.Data)
	return buf
}

// DecodeFrame parses one wire message back into a frame.
func DecodeFrame(data []byte) (domain.FrameData, error) {
	if len(data) < frameHeaderSize {
		return domain.FrameData{}, fmt.Errorf("video message too short: %d bytes", len(data))
	}
	return domain.FrameData{
		IsKeyFrame:  data[0]&flagKeyFrame != 0,
		TimestampUs: int64(binary.BigEndian.Uint64(data[1:frameHeaderSize])),
		Data:        data[frameHeaderSize:],
	}, nil
}

// SendFrame transmits one encoded frame and reports whether the channel
// accepted it. A closed or backpressured channel is a false return, never
// a panic or error escape; video tolerates drops.
func (v *VideoChannel) SendFrame(data []byte, timestampUs int64, isKeyFrame bool) bool {
	if !v.IsOpen() {
		return false
	}

	payload := EncodeFrame(domain.FrameData{Data: data, TimestampUs: timestampUs, IsKeyFrame: isKeyFrame})
	if err := v.dc.Send(payload); err != nil {
		v.logger.Debugw("video frame send failed", "bytes", len(payload), "error", err)
		return false
	}
	return true
}

// Frames is the live sequence of decoded inbound frames. Frames are
// delivered in receipt order; a full buffer drops the newest frame rather
// than stalling the transport callback.
func (v *VideoChannel) Frames() <-chan domain.FrameData { return v.frames }

// IsOpen is true only while the underlying channel is in the open state.
func (v *VideoChannel) IsOpen() bool {
	select {
	case <-v.done:
		return false
	default:
	}
	return v.dc.IsOpen()
}

// Close releases the underlying data channel exactly once.
func (v *VideoChannel) Close() error {
	var err error
	v.closeOnce.Do(func() {
		close(v.done)
		err = v.dc.Close()
	})
	return err
}

func (v *VideoChannel) handleMessage(data []byte, isText bool) {
	if isText {
		v.logger.Warnw("dropping text message on video channel")
		return
	}

	frame, err := DecodeFrame(data)
	if err != nil {
		v.metrics.IncDecodeError()
		v.logger.Warnw("dropping malformed video frame", "error", err)
		return
	}

	select {
	case v.frames <- frame:
	case <-v.done:
	default:
		v.metrics.IncFrameDropped()
	}
}
