package subscription

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// fakeMsg overrides the accessors Msg reads; acknowledgement methods are not used.
type fakeMsg struct {
	jetstream.Msg

	subject string
	data    []byte
	headers nats.Header
}

func (m *fakeMsg) Subject() string      { return m.subject }
func (m *fakeMsg) Data() []byte         { return m.data }
func (m *fakeMsg) Headers() nats.Header { return m.headers }

func TestNewMsg_StripsPartitionPrefix(t *testing.T) {
	cases := []struct {
		raw       string
		subject   string
		partition int
	}{
		{"3.orders.eu.42", "orders.eu.42", 3},
		{"0.events", "events", 0},
		{"12.a.b.c", "a.b.c", 12},
		{"orders.eu", "orders.eu", -1},
		{"events", "events", -1},
		{"-1.events", "-1.events", -1},
	}

	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			msg := NewMsg(&fakeMsg{subject: c.raw})

			require.Equal(t, c.subject, msg.Subject())
			require.Equal(t, c.partition, msg.Partition())
			require.Equal(t, c.raw, msg.RawSubject())
		})
	}
}

func TestMsg_PinIDAndData(t *testing.T) {
	h := nats.Header{}
	h.Set(PinIDHeader, "pin-123")

	msg := NewMsg(&fakeMsg{subject: "1.x", data: []byte("payload"), headers: h})

	require.Equal(t, "pin-123", msg.PinID())
	require.Equal(t, []byte("payload"), msg.Data())
	require.NotNil(t, msg.Raw())

	require.Empty(t, NewMsg(&fakeMsg{subject: "1.x"}).PinID())
}
