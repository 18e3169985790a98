package channel

import (
	"context"
	"sync"

	"github.com/andupetcu/androidremote-sub001/internal/core/ports"

	"go.uber.org/zap"
)

// VideoStreamBridge pumps frames from a source into one VideoChannel.
// Streaming is lossy and best effort: a failed send is counted and logged
// but never stops consumption.
type VideoStreamBridge struct {
	source ports.FrameSource
	video  *VideoChannel

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	sent    uint64
	dropped uint64

	logger  *zap.SugaredLogger
	metrics ports.SessionMetrics
}

func NewVideoStreamBridge(source ports.FrameSource, video *VideoChannel, metrics ports.SessionMetrics, logger *zap.SugaredLogger) *VideoStreamBridge {
	return &VideoStreamBridge{
		source:  source,
		video:   video,
		logger:  logger,
		metrics: metrics,
	}
}

// Start begins consuming the frame source on a background task. Calling it
// while already running is a no-op; there is never a second consumer.
func (b *VideoStreamBridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.running = true

	b.wg.Add(1)
	go b.consume(ctx)
}

// Stop cancels the background task and waits for it to finish, so frames
// emitted by the source afterwards cannot reach the channel.
func (b *VideoStreamBridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.running = false
	b.mu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	sent, dropped := b.sent, b.dropped
	b.mu.Unlock()
	b.logger.Infow("video bridge stopped", "frames_sent", sent, "frames_dropped", dropped)
}

// IsRunning reports whether the consumer task is active.
func (b *VideoStreamBridge) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *VideoStreamBridge) consume(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-b.source.Frames():
			if !ok {
				b.logger.Infow("frame source ended")
				b.mu.Lock()
				b.running = false
				b.mu.Unlock()
				return
			}

			if ctx.Err() != nil {
				return
			}

			if b.video.SendFrame(frame.Data, frame.TimestampUs, frame.IsKeyFrame) {
				b.metrics.IncFrameSent()
				b.mu.Lock()
				b.sent++
				b.mu.Unlock()
			} else {
				b.metrics.IncFrameDropped()
				b.mu.Lock()
				b.dropped++
				b.mu.Unlock()
			}
		}
	}
}
