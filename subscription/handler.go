package subscription

import "context"

// MessageHandler defines the contract for processing messages of a consumer group member.
//
// Behavior summary:
//   - The pull loop calls Handle once per message, one message at a time.
//   - By default, when Handle returns nil the loop ACKs the message; a non-nil error NAKs it.
//   - If ManualAck is enabled in ConsumeOptions, the loop performs no disposition; the handler
//     is responsible for calling msg.Ack/Nak/Term and may call msg.InProgress() periodically
//     to extend AckWait while processing.
//
// Backpressure:
//   - The loop does not call Handle for the next message until the current Handle returns.
//     Handlers apply backpressure simply by blocking.
//
// Redelivery semantics:
//   - Failing to ACK within AckWait causes redelivery, possibly to another member after a
//     rebalance. Exactly-once is not guaranteed; design handlers to be idempotent.
//
// Example:
//
//	var h MessageHandler = MessageHandlerFunc(func(ctx context.Context, msg *Msg) error {
//	    log.Printf("partition %d: %s", msg.Partition(), msg.Subject())
//	    return nil // loop will ACK
//	})
type MessageHandler interface {
	// Handle processes a single message.
	Handle(ctx context.Context, msg *Msg) error
}

// MessageHandlerFunc is a function adapter for MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg *Msg) error

// Handle implements MessageHandler interface.
func (f MessageHandlerFunc) Handle(ctx context.Context, msg *Msg) error { return f(ctx, msg) }
