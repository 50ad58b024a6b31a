// Package pcgroups provides partitioned consumer groups on top of NATS JetStream.
//
// A consumer group lets a bounded set of independent member processes consume
// disjoint partitions of a stream, with no central coordinator. The group
// config lives in a JetStream KV bucket; every member watches it and keeps one
// pinned priority-group consumer bound to the partitions it owns.
//
// # Group kinds
//
//   - Static groups have a fixed membership that is immutable after creation.
//     Members consume the source stream directly, which must store subjects
//     under a "{partition}." prefix.
//   - Elastic groups have dynamic membership. Creating one provisions a
//     work-queue stream "{stream}-{group}" sourced from the stream with a
//     partitioning subject transform; members rebalance live when members are
//     added or dropped.
//
// # Quick Start
//
//	js, _ := jetstream.New(nc)
//	cfg := pcgroups.DefaultConfig()
//	reg, err := pcgroups.NewRegistry(js, &cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	groups := reg.Elastic()
//	_, err = groups.Create(ctx, "orders", "billing", pcgroups.GroupConfig{
//	    MaxMembers:            4,
//	    Filter:                "orders.*",
//	    PartitioningWildcards: []int{1},
//	})
//	_, err = groups.AddMembers(ctx, "orders", "billing", "m1", "m2")
//
//	cc, err := groups.Consume(ctx, "orders", "billing", "m1",
//	    pcgroups.MessageHandlerFunc(func(ctx context.Context, msg *pcgroups.Msg) error {
//	        log.Printf("partition %d: %s", msg.Partition(), msg.Subject())
//	        return nil
//	    }))
//	defer cc.Stop()
//
// # Member lifecycle
//
// Members move through the states
//
//	Joining → Active ⇄ Rebalancing
//
// and end in Stopped (Stop called, or group deleted) or Failed (immutable config
// changed, conflict budget exhausted, watch lost). Setup errors are returned by
// Consume; once running, failures are only reported through Done and Err.
package pcgroups
