package channel

import (
	"sync"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"
)

// fakeDataChannel is an in-memory ports.DataChannel double. Tests inject
// inbound traffic with deliver and inspect everything the code under test
// transmitted.
type fakeDataChannel struct {
	mu        sync.Mutex
	label     string
	open      bool
	sent      [][]byte
	sentText  []string
	onMessage func(data []byte, isText bool)
	onState   func(open bool)
	sendErr   error
	closed    bool
}

var _ ports.DataChannel = (*fakeDataChannel)(nil)

func newFakeDataChannel(label string) *fakeDataChannel {
	return &fakeDataChannel{label: label, open: true}
}

func (f *fakeDataChannel) Label() string { return f.label }

func (f *fakeDataChannel) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return domain.ErrChannelClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.sent = append(f.sent, buf)
	return nil
}

func (f *fakeDataChannel) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return domain.ErrChannelClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentText = append(f.sentText, text)
	return nil
}

func (f *fakeDataChannel) OnMessage(fn func(data []byte, isText bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMessage = fn
}

func (f *fakeDataChannel) OnStateChange(fn func(open bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onState = fn
}

func (f *fakeDataChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeDataChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed = true
	return nil
}

// deliver feeds one inbound message through the registered callback, the
// way the transport would on receipt.
func (f *fakeDataChannel) deliver(data []byte, isText bool) {
	f.mu.Lock()
	fn := f.onMessage
	f.mu.Unlock()
	if fn != nil {
		fn(data, isText)
	}
}

func (f *fakeDataChannel) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sentText))
	copy(out, f.sentText)
	return out
}

func (f *fakeDataChannel) sentBinary() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeDataChannel) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeDataChannel) failSends(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}
