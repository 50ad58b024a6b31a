package strategy

import (
	"slices"

	"github.com/arloliu/pcgroups/types"
)

// Balanced spreads partitions evenly over the config's member list.
type Balanced struct{}

var _ types.AssignmentStrategy = (*Balanced)(nil)

// NewBalanced creates a new balanced strategy.
//
// The strategy hands out contiguous runs of partitions to sorted members and
// distributes the remainder one by one starting from the first member, so each
// member owns either floor(k/n) or ceil(k/n) partitions.
//
// Returns:
//   - *Balanced: Initialized balanced strategy
//
// Example:
//
//	assignments, err := strategy.NewBalanced().Assign(&cfg)
func NewBalanced() *Balanced {
	return &Balanced{}
}

// Assign calculates partition assignments over cfg.Members.
//
// Parameters:
//   - cfg: Group config with a non-empty Members list
//
// Returns:
//   - map[string][]int: Member to ascending partition numbers; capped-out members map to an empty slice
//   - error: ErrNoMembers when cfg.Members is empty
//
// Example:
//
//	// MaxMembers 7, Members [m1 m2 m3]
//	// => m1: [0 1 6], m2: [2 3], m3: [4 5]
func (b *Balanced) Assign(cfg *types.GroupConfig) (map[string][]int, error) {
	members := sortedMembers(cfg.Members)
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	assignments := make(map[string][]int, len(members))
	for _, m := range members {
		assignments[m] = []int{}
	}

	if len(members) > cfg.MaxMembers {
		members = members[:cfg.MaxMembers]
	}

	for i := range cfg.MaxMembers {
		owner := members[ownerIndex(i, len(members), cfg.MaxMembers)]
		assignments[owner] = append(assignments[owner], i)
	}

	return assignments, nil
}

// ownerIndex returns the index in the capped, sorted member list owning partition i.
func ownerIndex(i, n, maxMembers int) int {
	per := maxMembers / n
	even := n * per

	if i < even {
		return (i / per) % n
	}

	return (i - even) % n
}

func sortedMembers(members []string) []string {
	out := slices.Clone(members)
	slices.Sort(out)

	return slices.Compact(out)
}
