package strategy

import (
	"testing"

	"github.com/arloliu/pcgroups/types"
	"github.com/stretchr/testify/require"
)

func TestMapped_Assign(t *testing.T) {
	t.Run("returns mapped partitions sorted", func(t *testing.T) {
		cfg := &types.GroupConfig{
			Kind:       types.KindElastic,
			MaxMembers: 4,
			MemberMappings: []types.MemberMapping{
				{Member: "bob", Partitions: []int{3, 1}},
				{Member: "alice", Partitions: []int{2, 0}},
			},
		}

		assignments, err := NewMapped().Assign(cfg)

		require.NoError(t, err)
		require.Equal(t, []int{0, 2}, assignments["alice"])
		require.Equal(t, []int{1, 3}, assignments["bob"])
		require.Equal(t, []int{3, 1}, cfg.MemberMappings[0].Partitions, "config must not be mutated")
	})

	t.Run("returns error without mappings", func(t *testing.T) {
		_, err := NewMapped().Assign(&types.GroupConfig{MaxMembers: 1})
		require.ErrorIs(t, err, ErrNoMembers)
	})
}
