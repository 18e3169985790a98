package channel

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"
	"github.com/andupetcu/androidremote-sub001/pkg/utils"

	"go.uber.org/zap"
)

const commandBuffer = 32

// CommandChannel carries the JSON command protocol on one data channel.
// Outbound commands are wrapped in envelopes with unique correlation ids;
// inbound text is demultiplexed into the live command and acknowledgment
// sequences. Malformed messages are dropped with a diagnostic and never
// stop the channel.
type CommandChannel struct {
	dc ports.DataChannel

	commands chan domain.CommandEnvelope
	acks     chan domain.CommandAck

	mu        sync.Mutex
	isClosed  bool
	closeOnce sync.Once
	done      chan struct{}

	logger *zap.SugaredLogger
}

// inboundProbe distinguishes the two inbound shapes: envelopes carry
// "command", acks carry "commandId". Extra fields are tolerated so the wire
// schema can grow.
type inboundProbe struct {
	ID        string          `json:"id"`
	Command   json.RawMessage `json:"command"`
	CommandID string          `json:"commandId"`
}

func NewCommandChannel(dc ports.DataChannel, logger *zap.SugaredLogger) *CommandChannel {
	c := &CommandChannel{
		dc:       dc,
		commands: make(chan domain.CommandEnvelope, commandBuffer),
		acks:     make(chan domain.CommandAck, commandBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
	dc.OnMessage(c.handleMessage)
	return c
}

// Send wraps cmd in a freshly identified envelope, transmits it, and
// returns the correlation id for ack matching.
func (c *CommandChannel) Send(cmd domain.RemoteCommand) (string, error) {
	if c.Closed() {
		return "", domain.ErrChannelClosed
	}

	envelope := domain.CommandEnvelope{
		ID:        utils.GenerateCommandID(),
		Command:   cmd,
		Timestamp: time.Now().UnixMilli(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	if err := c.dc.SendText(string(payload)); err != nil {
		return "", err
	}

	c.logger.Debugw("command sent", "command_id", envelope.ID, "type", cmd.Type)
	return envelope.ID, nil
}

// SendAck transmits an acknowledgment on the same channel.
func (c *CommandChannel) SendAck(ack domain.CommandAck) error {
	if c.Closed() {
		return domain.ErrChannelClosed
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		return err
	}
	return c.dc.SendText(string(payload))
}

// Commands is the live sequence of inbound command envelopes.
func (c *CommandChannel) Commands() <-chan domain.CommandEnvelope { return c.commands }

// Acks is the live sequence of inbound acknowledgments.
func (c *CommandChannel) Acks() <-chan domain.CommandAck { return c.acks }

// Close releases the underlying data channel exactly once.
func (c *CommandChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.isClosed = true
		c.mu.Unlock()
		close(c.done)
		err = c.dc.Close()
	})
	return err
}

func (c *CommandChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosed
}

func (c *CommandChannel) handleMessage(data []byte, isText bool) {
	if !isText {
		c.logger.Warnw("dropping binary message on command channel", "bytes", len(data))
		return
	}

	var probe inboundProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		c.logger.Warnw("dropping malformed command message", "error", err)
		return
	}

	switch {
	case len(probe.Command) > 0:
		var envelope domain.CommandEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.logger.Warnw("dropping undecodable command envelope", "id", probe.ID, "error", err)
			return
		}
		select {
		case c.commands <- envelope:
		case <-c.done:
		}

	case probe.CommandID != "":
		var ack domain.CommandAck
		if err := json.Unmarshal(data, &ack); err != nil {
			c.logger.Warnw("dropping undecodable ack", "command_id", probe.CommandID, "error", err)
			return
		}
		select {
		case c.acks <- ack:
		case <-c.done:
		}

	default:
		c.logger.Warnw("dropping command message with unknown shape")
	}
}
