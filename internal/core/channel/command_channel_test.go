package channel

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCommandChannel(t *testing.T) (*CommandChannel, *fakeDataChannel) {
	t.Helper()
	dc := newFakeDataChannel("commands")
	return NewCommandChannel(dc, zap.NewNop().Sugar()), dc
}

func TestCommandChannel_SendWrapsInEnvelope(t *testing.T) {
	cc, dc := newTestCommandChannel(t)

	before := time.Now().UnixMilli()
	id, err := cc.Send(domain.Tap(0.25, 0.75))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	texts := dc.sentTexts()
	require.Len(t, texts, 1)

	var envelope domain.CommandEnvelope
	require.NoError(t, json.Unmarshal([]byte(texts[0]), &envelope))
	assert.Equal(t, id, envelope.ID)
	assert.Equal(t, domain.CommandTap, envelope.Command.Type)
	assert.Equal(t, 0.25, envelope.Command.X)
	assert.Equal(t, 0.75, envelope.Command.Y)
	assert.GreaterOrEqual(t, envelope.Timestamp, before)
}

func TestCommandChannel_SendGeneratesUniqueIDs(t *testing.T) {
	cc, _ := newTestCommandChannel(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := cc.Send(domain.Tap(0.5, 0.5))
		require.NoError(t, err)
		assert.False(t, seen[id], "correlation id %q repeated", id)
		seen[id] = true
	}
}

func TestCommandChannel_InboundEnvelope(t *testing.T) {
	cc, dc := newTestCommandChannel(t)

	dc.deliver([]byte(`{"id":"cmd-1","command":{"type":"SWIPE","startX":0.1,"startY":0.2,"endX":0.9,"endY":0.8,"durationMs":300},"timestamp":1700000000000}`), true)

	select {
	case envelope := <-cc.Commands():
		assert.Equal(t, "cmd-1", envelope.ID)
		assert.Equal(t, domain.CommandSwipe, envelope.Command.Type)
		assert.Equal(t, 0.9, envelope.Command.EndX)
		assert.Equal(t, int64(300), envelope.Command.DurationMs)
	case <-time.After(time.Second):
		t.Fatal("envelope not delivered")
	}
}

func TestCommandChannel_InboundAck(t *testing.T) {
	cc, dc := newTestCommandChannel(t)

	dc.deliver([]byte(`{"commandId":"cmd-7","success":false,"errorMessage":"device locked","data":null,"timestamp":1700000000001}`), true)

	select {
	case ack := <-cc.Acks():
		assert.Equal(t, "cmd-7", ack.CommandID)
		assert.False(t, ack.Success)
		require.NotNil(t, ack.ErrorMessage)
		assert.Equal(t, "device locked", *ack.ErrorMessage)
	case <-time.After(time.Second):
		t.Fatal("ack not delivered")
	}
}

func TestCommandChannel_AcksCorrelateOutOfOrder(t *testing.T) {
	cc, dc := newTestCommandChannel(t)

	first, err := cc.Send(domain.Tap(0.1, 0.1))
	require.NoError(t, err)
	second, err := cc.Send(domain.Tap(0.2, 0.2))
	require.NoError(t, err)

	// Acks arrive in reverse order; correlation is by id, not position.
	dc.deliver([]byte(fmt.Sprintf(`{"commandId":%q,"success":true,"errorMessage":null,"data":null,"timestamp":1}`, second)), true)
	dc.deliver([]byte(fmt.Sprintf(`{"commandId":%q,"success":true,"errorMessage":null,"data":null,"timestamp":2}`, first)), true)

	got := []string{(<-cc.Acks()).CommandID, (<-cc.Acks()).CommandID}
	assert.Equal(t, []string{second, first}, got)
}

func TestCommandChannel_MalformedMessagesDropped(t *testing.T) {
	cc, dc := newTestCommandChannel(t)

	dc.deliver([]byte(`{not json`), true)
	dc.deliver([]byte(`{"neither":"shape"}`), true)
	dc.deliver([]byte{0x01, 0x02}, false)

	// The channel survives and keeps demultiplexing.
	dc.deliver([]byte(`{"commandId":"cmd-1","success":true,"errorMessage":null,"data":null,"timestamp":1}`), true)

	select {
	case ack := <-cc.Acks():
		assert.Equal(t, "cmd-1", ack.CommandID)
	case <-time.After(time.Second):
		t.Fatal("channel stopped after malformed input")
	}
	assert.Empty(t, cc.Commands())
}

func TestCommandChannel_SendAckWireShape(t *testing.T) {
	cc, dc := newTestCommandChannel(t)

	require.NoError(t, cc.SendAck(domain.NewAck("cmd-9", true, "", nil)))

	texts := dc.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], `"commandId":"cmd-9"`)
	assert.Contains(t, texts[0], `"errorMessage":null`)
	assert.Contains(t, texts[0], `"data":null`)
}

func TestCommandChannel_CloseIsIdempotent(t *testing.T) {
	cc, dc := newTestCommandChannel(t)

	require.NoError(t, cc.Close())
	require.NoError(t, cc.Close())
	assert.True(t, dc.wasClosed())

	_, err := cc.Send(domain.Tap(0.5, 0.5))
	assert.ErrorIs(t, err, domain.ErrChannelClosed)
	assert.ErrorIs(t, cc.SendAck(domain.NewAck("x", true, "", nil)), domain.ErrChannelClosed)
}
