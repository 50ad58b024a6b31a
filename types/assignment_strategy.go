package types

// AssignmentStrategy computes which partitions each member of a group owns.
//
// Every process sharing a deployment evaluates the strategy independently, so
// implementations must be deterministic: the same config always yields the same
// assignment regardless of member list order, process or runtime.
//
// Strategy implementations should:
//   - Produce disjoint partition sets covering [0, MaxMembers) when members exist
//   - Return partitions of each member in ascending order
//   - Be stateless (no side effects)
type AssignmentStrategy interface {
	// Assign calculates the partitions owned by every member of cfg.
	//
	// Parameters:
	//   - cfg: Group config carrying the partition count and membership
	//
	// Returns:
	//   - map[string][]int: Member name to owned partition numbers
	//   - error: Assignment error (e.g., no members for the strategy's mode)
	Assign(cfg *GroupConfig) (map[string][]int, error)
}
