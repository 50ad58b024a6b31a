package subscription

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// PinIDHeader carries the pin identifier of the priority group holder on every
// message delivered by a pinned consumer.
const PinIDHeader = "Nats-Pin-Id"

// Msg is the view of a delivered message handed to a MessageHandler.
//
// Subject returns the application subject: the leading "{partition}." token
// added by the partitioning transform is stripped. Acknowledgement calls are
// passed through to the underlying JetStream message.
//
// A Msg wraps exactly one delivery and must not be retained after the message
// has been acknowledged.
type Msg struct {
	msg       jetstream.Msg
	subject   string
	partition int
}

// NewMsg wraps a delivered JetStream message.
//
// Subjects without a numeric partition token are exposed unchanged with
// Partition() == -1.
func NewMsg(msg jetstream.Msg) *Msg {
	subject, partition := splitPartition(msg.Subject())

	return &Msg{msg: msg, subject: subject, partition: partition}
}

func splitPartition(subject string) (string, int) {
	prefix, rest, ok := strings.Cut(subject, ".")
	if !ok {
		return subject, -1
	}

	p, err := strconv.Atoi(prefix)
	if err != nil || p < 0 {
		return subject, -1
	}

	return rest, p
}

// Subject returns the message subject without the partition prefix.
func (m *Msg) Subject() string { return m.subject }

// Partition returns the partition number the message was routed to, -1 if unknown.
func (m *Msg) Partition() int { return m.partition }

// RawSubject returns the subject as stored in the stream, including the partition prefix.
func (m *Msg) RawSubject() string { return m.msg.Subject() }

// Data returns the message body.
func (m *Msg) Data() []byte { return m.msg.Data() }

// Headers returns the message headers.
func (m *Msg) Headers() nats.Header { return m.msg.Headers() }

// Reply returns the acknowledgement subject of the message.
func (m *Msg) Reply() string { return m.msg.Reply() }

// Metadata returns the JetStream delivery metadata (sequences, delivery count, timestamp).
func (m *Msg) Metadata() (*jetstream.MsgMetadata, error) { return m.msg.Metadata() }

// PinID returns the pin identifier of the priority group holder that received
// this message, empty when the consumer is not pinned.
func (m *Msg) PinID() string {
	if h := m.msg.Headers(); h != nil {
		return h.Get(PinIDHeader)
	}

	return ""
}

// Ack acknowledges the message.
func (m *Msg) Ack() error { return m.msg.Ack() }

// DoubleAck acknowledges the message and waits for the server to confirm.
func (m *Msg) DoubleAck(ctx context.Context) error { return m.msg.DoubleAck(ctx) }

// Nak requests immediate redelivery.
func (m *Msg) Nak() error { return m.msg.Nak() }

// NakWithDelay requests redelivery after delay.
func (m *Msg) NakWithDelay(delay time.Duration) error { return m.msg.NakWithDelay(delay) }

// InProgress resets the ack deadline of the message.
func (m *Msg) InProgress() error { return m.msg.InProgress() }

// Term stops redelivery of the message.
func (m *Msg) Term() error { return m.msg.Term() }

// TermWithReason stops redelivery of the message and records reason in the advisory.
func (m *Msg) TermWithReason(reason string) error { return m.msg.TermWithReason(reason) }

// Raw returns the underlying JetStream message.
func (m *Msg) Raw() jetstream.Msg { return m.msg }
