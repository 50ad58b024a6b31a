package subscription

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/pcgroups/internal/logging"
	"github.com/arloliu/pcgroups/internal/metrics"
)

var errConnClosed = errors.New("nats: connection closed")

// closedConnMsg is a delivered message whose acknowledgements can no longer be sent.
type closedConnMsg struct {
	jetstream.Msg
	subject string
}

func (m *closedConnMsg) Subject() string      { return m.subject }
func (m *closedConnMsg) Headers() nats.Header { return nats.Header{} }
func (m *closedConnMsg) Ack() error           { return errConnClosed }
func (m *closedConnMsg) Nak() error           { return errConnClosed }

func newDispatchPuller(h MessageHandler, out *bytes.Buffer) *Puller {
	return &Puller{
		handler: h,
		logger:  logging.NewSlogText(out, "warn"),
		metrics: metrics.NewNop(),
		ctx:     context.Background(),
	}
}

func TestPuller_DispatchLogsAckFailure(t *testing.T) {
	var out bytes.Buffer
	h := &recordingHandler{}
	p := newDispatchPuller(h, &out)

	p.dispatch(&closedConnMsg{subject: "3.orders.x"})

	require.Equal(t, []string{"orders.x"}, h.subjects)
	require.Contains(t, out.String(), "failed to ack message")
	require.Contains(t, out.String(), "subject=3.orders.x")
	require.Contains(t, out.String(), "connection closed")
}

func TestPuller_DispatchLogsNakFailure(t *testing.T) {
	var out bytes.Buffer
	p := newDispatchPuller(&recordingHandler{fail: true}, &out)

	p.dispatch(&closedConnMsg{subject: "0.orders.y"})

	require.Contains(t, out.String(), "failed to nak message")
	require.Contains(t, out.String(), "subject=0.orders.y")
}
