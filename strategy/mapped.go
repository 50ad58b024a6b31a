package strategy

import (
	"slices"

	"github.com/arloliu/pcgroups/types"
)

// Mapped assigns partitions according to the config's explicit member mappings.
type Mapped struct{}

var _ types.AssignmentStrategy = (*Mapped)(nil)

// NewMapped creates a new mapping strategy.
func NewMapped() *Mapped {
	return &Mapped{}
}

// Assign returns the mapped partitions of each member in ascending order.
//
// The config is expected to be validated; overlapping or missing partitions are
// not detected here.
func (m *Mapped) Assign(cfg *types.GroupConfig) (map[string][]int, error) {
	if len(cfg.MemberMappings) == 0 {
		return nil, ErrNoMembers
	}

	assignments := make(map[string][]int, len(cfg.MemberMappings))
	for _, mapping := range cfg.MemberMappings {
		parts := append(assignments[mapping.Member], mapping.Partitions...)
		slices.Sort(parts)
		assignments[mapping.Member] = parts
	}

	return assignments, nil
}
