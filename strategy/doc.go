// Package strategy implements the partition assignment algorithm of consumer groups.
//
// The package includes two built-in strategies, one per membership mode:
//
//   - Balanced: Partitions are spread over the sorted, de-duplicated member list
//   - Mapped: Partitions follow the explicit member mappings of the config
//
// # Wire compatibility
//
// Members written in other languages may coordinate over the same group config,
// so the Balanced assignment must be reproduced bit-for-bit:
//
//  1. Members are de-duplicated and sorted byte-wise ascending
//  2. The list is capped to MaxMembers entries; the rest own nothing
//  3. With n members and per = MaxMembers/n, partition i < n*per belongs to
//     member (i/per)%n, and partition i >= n*per to member (i-n*per)%n
//
// Partitions are turned into consumer filter subjects of the form "{p}.>".
//
// Use PartitionsFor or PartitionFilters to evaluate a config for one member;
// they select the strategy matching the config's membership mode.
package strategy
