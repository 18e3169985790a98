package domain

// FrameData is one encoded video access unit produced by an external
// encoder. TimestampUs is a monotonic presentation timestamp in
// microseconds. Frames are transient and never persisted.
type FrameData struct {
	Data        []byte
	TimestampUs int64
	IsKeyFrame  bool
}
