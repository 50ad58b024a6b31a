package strategy

import (
	"math/rand/v2"
	"testing"

	"github.com/arloliu/pcgroups/types"
	"github.com/stretchr/testify/require"
)

func TestPartitionFilters(t *testing.T) {
	t.Run("balanced example", func(t *testing.T) {
		cfg := balancedConfig(6, "m1", "m2", "m3")

		require.Equal(t, []string{"0.>", "1.>"}, PartitionFilters(cfg, "m1"))
		require.Equal(t, []string{"2.>", "3.>"}, PartitionFilters(cfg, "m2"))
		require.Equal(t, []string{"4.>", "5.>"}, PartitionFilters(cfg, "m3"))
	})

	t.Run("uneven example", func(t *testing.T) {
		cfg := balancedConfig(7, "m1", "m2", "m3")

		require.Equal(t, []int{0, 1, 6}, PartitionsFor(cfg, "m1"))
		require.Equal(t, []string{"0.>", "1.>", "6.>"}, PartitionFilters(cfg, "m1"))
	})

	t.Run("mapping example", func(t *testing.T) {
		cfg := &types.GroupConfig{
			Kind:                  types.KindElastic,
			MaxMembers:            4,
			Filter:                "events.*",
			PartitioningWildcards: []int{1},
			MemberMappings: []types.MemberMapping{
				{Member: "alice", Partitions: []int{0, 1}},
				{Member: "bob", Partitions: []int{2, 3}},
			},
		}
		require.NoError(t, cfg.Validate())

		require.Equal(t, []string{"0.>", "1.>"}, PartitionFilters(cfg, "alice"))
		require.Equal(t, []string{"2.>", "3.>"}, PartitionFilters(cfg, "bob"))
	})

	t.Run("unknown member gets nothing", func(t *testing.T) {
		require.Empty(t, PartitionFilters(balancedConfig(4, "a", "b"), "c"))
	})

	t.Run("empty membership gets nothing", func(t *testing.T) {
		cfg := balancedConfig(4)
		require.Nil(t, ForConfig(cfg))
		require.Empty(t, PartitionFilters(cfg, "a"))
	})
}

func TestPartitionFilters_Deterministic(t *testing.T) {
	members := []string{"delta", "alpha", "echo", "charlie", "bravo"}
	cfg := balancedConfig(13, members...)

	want := make(map[string][]string, len(members))
	for _, m := range members {
		want[m] = PartitionFilters(cfg, m)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		shuffled := append([]string(nil), members...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		permuted := balancedConfig(13, shuffled...)
		for _, m := range members {
			require.Equal(t, want[m], PartitionFilters(permuted, m))
		}
	}
}

func TestFilters(t *testing.T) {
	require.Nil(t, Filters(nil))
	require.Equal(t, []string{"0.>", "10.>"}, Filters([]int{0, 10}))
}
