package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func elasticConfig() GroupConfig {
	return GroupConfig{
		Kind:                  KindElastic,
		MaxMembers:            4,
		Filter:                "orders.*.*",
		PartitioningWildcards: []int{2},
	}
}

func TestGroupConfig_Validate(t *testing.T) {
	t.Run("accepts minimal elastic config", func(t *testing.T) {
		cfg := elasticConfig()
		require.NoError(t, cfg.Validate())
		require.Equal(t, ModeEmpty, cfg.Mode())
	})

	t.Run("accepts static config with members", func(t *testing.T) {
		cfg := GroupConfig{Kind: KindStatic, MaxMembers: 2, Filter: "events.>", Members: []string{"m1", "m2"}}
		require.NoError(t, cfg.Validate())
		require.Equal(t, ModeBalanced, cfg.Mode())
	})

	t.Run("rejects zero max members", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.MaxMembers = 0

		err := cfg.Validate()
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidGroupConfig)

		var verr *ConfigValidationError
		require.True(t, errors.As(err, &verr))
		require.Contains(t, verr.Reason, "max_members")
	})

	t.Run("rejects members and mappings together", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.Members = []string{"a"}
		cfg.MemberMappings = []MemberMapping{{Member: "a", Partitions: []int{0, 1, 2, 3}}}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects elastic filter without wildcard", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.Filter = "orders.created"
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects partitioning wildcard out of range", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.PartitioningWildcards = []int{3}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)

		cfg.PartitioningWildcards = []int{0}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects duplicate partitioning wildcards", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.PartitioningWildcards = []int{1, 1}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects too many partitioning wildcards", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.Filter = "orders.*"
		cfg.PartitioningWildcards = []int{1, 2}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects static buffer limits", func(t *testing.T) {
		cfg := GroupConfig{Kind: KindStatic, MaxMembers: 2, Filter: "events.>", MaxBufferedMsgs: 10}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects invalid member names", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.Members = []string{"bad.name"}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("accepts full mapping coverage", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.MemberMappings = []MemberMapping{
			{Member: "alice", Partitions: []int{0, 1}},
			{Member: "bob", Partitions: []int{2, 3}},
		}
		require.NoError(t, cfg.Validate())
		require.Equal(t, ModeMapped, cfg.Mode())
	})

	t.Run("rejects out of range partition and gap", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.MemberMappings = []MemberMapping{
			{Member: "alice", Partitions: []int{0, 1}},
			{Member: "bob", Partitions: []int{2, 4}},
		}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects coverage gap", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.MemberMappings = []MemberMapping{
			{Member: "alice", Partitions: []int{0, 1}},
			{Member: "bob", Partitions: []int{2}},
		}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects duplicate partition across mappings", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.MemberMappings = []MemberMapping{
			{Member: "alice", Partitions: []int{0, 1}},
			{Member: "bob", Partitions: []int{1, 2, 3}},
		}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})

	t.Run("rejects duplicate mapped member", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.MemberMappings = []MemberMapping{
			{Member: "alice", Partitions: []int{0, 1}},
			{Member: "alice", Partitions: []int{2, 3}},
		}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidGroupConfig)
	})
}

func TestGroupConfig_MarshalUnmarshal(t *testing.T) {
	t.Run("elastic config keeps every field", func(t *testing.T) {
		cfg := elasticConfig()
		cfg.MaxBufferedMsgs = 1000
		cfg.MaxBufferedBytes = 1 << 20
		cfg.MemberMappings = []MemberMapping{
			{Member: "bob", Partitions: []int{3, 2}},
			{Member: "alice", Partitions: []int{0, 1}},
		}
		cfg.Revision = 7

		data, err := cfg.Marshal()
		require.NoError(t, err)
		require.NotContains(t, string(data), "Revision")
		require.Contains(t, string(data), `"max_buffered_msg":1000`)

		decoded, err := UnmarshalGroupConfig(KindElastic, data, 7)
		require.NoError(t, err)
		require.Equal(t, cfg, decoded)
	})

	t.Run("static config omits elastic fields", func(t *testing.T) {
		cfg := GroupConfig{Kind: KindStatic, MaxMembers: 2, Filter: "events.>", Members: []string{"m1", "m2"}}

		data, err := cfg.Marshal()
		require.NoError(t, err)
		require.JSONEq(t, `{"max_members":2,"filter":"events.>","members":["m1","m2"]}`, string(data))

		decoded, err := UnmarshalGroupConfig(KindStatic, data, 1)
		require.NoError(t, err)
		require.True(t, cfg.Equal(&decoded))
		require.Equal(t, uint64(1), decoded.Revision)
	})

	t.Run("decodes payload written by other implementations", func(t *testing.T) {
		payload := `{"max_members":2,"filter":"foo.*","partitioning_wildcards":[1],"member_mappings":[{"member":"m1","partitions":[0]},{"member":"m2","partitions":[1]}]}`

		cfg, err := UnmarshalGroupConfig(KindElastic, []byte(payload), 3)
		require.NoError(t, err)
		require.Equal(t, ModeMapped, cfg.Mode())
		require.Equal(t, []int{1}, cfg.PartitioningWildcards)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		_, err := UnmarshalGroupConfig(KindElastic, []byte("{"), 1)
		require.ErrorIs(t, err, ErrInvalidGroupConfig)
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		_, err := UnmarshalGroupConfig(KindElastic, []byte(`{"max_members":0,"filter":"foo.*"}`), 1)
		require.ErrorIs(t, err, ErrInvalidGroupConfig)
	})
}

func TestGroupConfig_Equality(t *testing.T) {
	base := elasticConfig()
	base.Members = []string{"a", "b"}

	t.Run("revision is ignored", func(t *testing.T) {
		other := base.Clone()
		other.Revision = 42
		require.True(t, base.Equal(&other))
	})

	t.Run("immutable field change detected", func(t *testing.T) {
		other := base.Clone()
		other.MaxMembers = 8
		require.False(t, base.ImmutableEqual(&other))
		require.True(t, base.MembershipEqual(&other))

		other = base.Clone()
		other.PartitioningWildcards = []int{1}
		require.False(t, base.ImmutableEqual(&other))
	})

	t.Run("membership change detected", func(t *testing.T) {
		other := base.Clone()
		other.Members = append(other.Members, "c")
		require.True(t, base.ImmutableEqual(&other))
		require.False(t, base.MembershipEqual(&other))
		require.NotEqual(t, base.MembershipFingerprint(), other.MembershipFingerprint())
	})

	t.Run("fingerprint is stable", func(t *testing.T) {
		other := base.Clone()
		require.Equal(t, base.MembershipFingerprint(), other.MembershipFingerprint())
	})
}

func TestGroupConfig_Clone(t *testing.T) {
	cfg := elasticConfig()
	cfg.MemberMappings = []MemberMapping{{Member: "a", Partitions: []int{0, 1, 2, 3}}}
	cfg.Revision = 5

	clone := cfg.Clone()
	require.True(t, cfg.Equal(&clone))
	require.Equal(t, cfg.Revision, clone.Revision)

	clone.MemberMappings[0].Partitions[0] = 99
	clone.PartitioningWildcards[0] = 1
	require.Equal(t, 0, cfg.MemberMappings[0].Partitions[0])
	require.Equal(t, []int{2}, cfg.PartitioningWildcards)
}

func TestGroupConfig_Members(t *testing.T) {
	cfg := elasticConfig()
	cfg.Members = []string{"b", "a", "b"}

	require.Equal(t, []string{"b", "a"}, cfg.AllMembers())
	require.True(t, cfg.HasMember("a"))
	require.False(t, cfg.HasMember("c"))
}

func TestGroupConfig_PartitioningTransform(t *testing.T) {
	cfg := elasticConfig()
	require.Equal(t, "{{Partition(4,2)}}.orders.{{Wildcard(1)}}.{{Wildcard(2)}}", cfg.PartitioningTransform())

	cfg = GroupConfig{Kind: KindElastic, MaxMembers: 10, Filter: "a.*.b.*.>", PartitioningWildcards: []int{2, 1}}
	require.Equal(t, "{{Partition(10,2,1)}}.a.{{Wildcard(1)}}.b.{{Wildcard(2)}}.>", cfg.PartitioningTransform())
}

func TestCountWildcards(t *testing.T) {
	require.Equal(t, 0, CountWildcards("foo.bar"))
	require.Equal(t, 1, CountWildcards("foo.*"))
	require.Equal(t, 2, CountWildcards("*.bar.*.>"))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "static", KindStatic.String())
	require.Equal(t, "elastic", KindElastic.String())
	require.Equal(t, "unknown", Kind(9).String())
}
