package strategy

import (
	"github.com/arloliu/pcgroups/types"
)

// ForConfig returns the strategy matching the membership mode of cfg, or nil
// when the config has no members yet.
func ForConfig(cfg *types.GroupConfig) types.AssignmentStrategy {
	switch cfg.Mode() {
	case types.ModeBalanced:
		return NewBalanced()
	case types.ModeMapped:
		return NewMapped()
	default:
		return nil
	}
}

// PartitionsFor returns the ascending partition numbers owned by member.
//
// An empty result means the member currently owns nothing and should not keep a consumer.
func PartitionsFor(cfg *types.GroupConfig, member string) []int {
	s := ForConfig(cfg)
	if s == nil {
		return nil
	}

	assignments, err := s.Assign(cfg)
	if err != nil {
		return nil
	}

	return assignments[member]
}

// PartitionFilters returns the consumer filter subjects ("{p}.>") of member.
//
// Example:
//
//	// MaxMembers 6, Members [m1 m2 m3]
//	strategy.PartitionFilters(&cfg, "m2") // ["2.>", "3.>"]
func PartitionFilters(cfg *types.GroupConfig, member string) []string {
	return Filters(PartitionsFor(cfg, member))
}

// Filters converts partition numbers into filter subjects.
func Filters(partitions []int) []string {
	if len(partitions) == 0 {
		return nil
	}

	filters := make([]string, len(partitions))
	for i, p := range partitions {
		filters[i] = types.PartitionFilter(p)
	}

	return filters
}
