// Package subscription implements the message delivery path of a consumer group member.
//
// The package includes:
//
//   - Msg: Per-delivery view that hides the partition prefix from handlers
//   - MessageHandler: Handler contract with automatic or manual acknowledgement
//   - ConsumeOptions: Consumer tuning and the pinned priority-group consumer config
//   - Puller: Single-consumer pull loop bound to the member's priority group
//
// The coordination layer creates and deletes consumers; this package only pulls
// from a consumer it is given and reports when the consumer disappears.
package subscription
