package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/zeebo/xxh3"
)

// Kind discriminates the two consumer group variants.
type Kind int

const (
	// KindStatic groups have fixed membership; the config is immutable after creation.
	KindStatic Kind = iota

	// KindElastic groups have dynamic membership and a backing work-distribution stream.
	KindElastic
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindElastic:
		return "elastic"
	default:
		return "unknown"
	}
}

// Mode describes which membership representation a config uses.
type Mode int

const (
	// ModeEmpty means no members are configured yet.
	ModeEmpty Mode = iota

	// ModeBalanced means partitions are spread over a sorted member list.
	ModeBalanced

	// ModeMapped means partitions are explicitly mapped to members.
	ModeMapped
)

// MemberMapping assigns an explicit set of partitions to a member.
type MemberMapping struct {
	Member     string `json:"member"`
	Partitions []int  `json:"partitions"`
}

// GroupConfig is the configuration of a partitioned consumer group.
//
// Field names of the JSON encoding are shared with other implementations of the
// protocol and must not change. Revision is the KV revision the config was read
// at and is never serialized.
type GroupConfig struct {
	// Kind selects static or elastic semantics. Not serialized: the KV bucket
	// a config lives in determines its kind.
	Kind Kind `json:"-"`

	// MaxMembers is the total partition count. Immutable.
	MaxMembers int `json:"max_members"`

	// Filter is the subject filter of the group. Immutable.
	Filter string `json:"filter"`

	// PartitioningWildcards are 1-based indexes of the '*' tokens of Filter used
	// to compute the partition (elastic only). Immutable.
	PartitioningWildcards []int `json:"partitioning_wildcards,omitempty"`

	// MaxBufferedMsgs bounds the work-distribution stream, 0 means unbounded (elastic only). Immutable.
	MaxBufferedMsgs int64 `json:"max_buffered_msg,omitempty"`

	// MaxBufferedBytes bounds the work-distribution stream, 0 means unbounded (elastic only). Immutable.
	MaxBufferedBytes int64 `json:"max_buffered_bytes,omitempty"`

	// Members is the balanced membership. Mutually exclusive with MemberMappings.
	Members []string `json:"members,omitempty"`

	// MemberMappings is the explicit membership. Mutually exclusive with Members.
	MemberMappings []MemberMapping `json:"member_mappings,omitempty"`

	Revision uint64 `json:"-"`
}

// Mode returns the membership representation in use.
func (c *GroupConfig) Mode() Mode {
	switch {
	case len(c.MemberMappings) > 0:
		return ModeMapped
	case len(c.Members) > 0:
		return ModeBalanced
	default:
		return ModeEmpty
	}
}

// Validate checks every config invariant.
//
// Must be called after every deserialization and before every persist.
//
// Returns:
//   - error: *ConfigValidationError describing the first violation, nil if valid
func (c *GroupConfig) Validate() error {
	if c.MaxMembers < 1 {
		return invalidf("max_members must be >= 1, got %d", c.MaxMembers)
	}

	if len(c.Members) > 0 && len(c.MemberMappings) > 0 {
		return invalidf("members and member_mappings are mutually exclusive")
	}

	switch c.Kind {
	case KindElastic:
		if err := c.validateElastic(); err != nil {
			return err
		}
	case KindStatic:
		if len(c.PartitioningWildcards) > 0 {
			return invalidf("partitioning_wildcards is only supported by elastic groups")
		}
		if c.MaxBufferedMsgs != 0 || c.MaxBufferedBytes != 0 {
			return invalidf("buffer limits are only supported by elastic groups")
		}
	default:
		return invalidf("unknown group kind %d", c.Kind)
	}

	for _, m := range c.Members {
		if err := ValidateName(m); err != nil {
			return invalidf("member %q: %v", m, err)
		}
	}

	return c.validateMappings()
}

func (c *GroupConfig) validateElastic() error {
	if c.Filter == "" {
		return invalidf("filter is required")
	}

	wildcards := CountWildcards(c.Filter)
	if wildcards == 0 {
		return invalidf("filter %q must contain at least one '*' wildcard", c.Filter)
	}

	if len(c.PartitioningWildcards) < 1 || len(c.PartitioningWildcards) > wildcards {
		return invalidf("partitioning_wildcards must have between 1 and %d entries, got %d",
			wildcards, len(c.PartitioningWildcards))
	}

	seen := make(map[int]struct{}, len(c.PartitioningWildcards))
	for _, idx := range c.PartitioningWildcards {
		if idx < 1 || idx > wildcards {
			return invalidf("partitioning wildcard index %d out of range [1, %d]", idx, wildcards)
		}
		if _, dup := seen[idx]; dup {
			return invalidf("partitioning wildcard index %d is duplicated", idx)
		}
		seen[idx] = struct{}{}
	}

	if c.MaxBufferedMsgs < 0 || c.MaxBufferedBytes < 0 {
		return invalidf("buffer limits must be >= 0")
	}

	return nil
}

func (c *GroupConfig) validateMappings() error {
	if len(c.MemberMappings) == 0 {
		return nil
	}

	members := make(map[string]struct{}, len(c.MemberMappings))
	partitions := make(map[int]struct{}, c.MaxMembers)

	for _, mapping := range c.MemberMappings {
		if err := ValidateName(mapping.Member); err != nil {
			return invalidf("member %q: %v", mapping.Member, err)
		}
		if _, dup := members[mapping.Member]; dup {
			return invalidf("member %q is mapped more than once", mapping.Member)
		}
		members[mapping.Member] = struct{}{}

		for _, p := range mapping.Partitions {
			if p < 0 || p >= c.MaxMembers {
				return invalidf("partition %d of member %q out of range [0, %d)", p, mapping.Member, c.MaxMembers)
			}
			if _, dup := partitions[p]; dup {
				return invalidf("partition %d is mapped more than once", p)
			}
			partitions[p] = struct{}{}
		}
	}

	if len(partitions) != c.MaxMembers {
		return invalidf("member mappings cover %d of %d partitions", len(partitions), c.MaxMembers)
	}

	return nil
}

// Marshal encodes the config into its wire representation.
func (c *GroupConfig) Marshal() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal group config: %w", err)
	}

	return data, nil
}

// UnmarshalGroupConfig decodes and validates a config read from the KV store.
//
// Parameters:
//   - kind: Group kind, derived from the bucket the entry was read from
//   - data: JSON payload
//   - revision: KV revision of the entry
//
// Returns:
//   - GroupConfig: Decoded config with Kind and Revision set
//   - error: Decode or validation error
func UnmarshalGroupConfig(kind Kind, data []byte, revision uint64) (GroupConfig, error) {
	var cfg GroupConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return GroupConfig{}, invalidf("malformed payload: %v", err)
	}
	cfg.Kind = kind
	cfg.Revision = revision

	if err := cfg.Validate(); err != nil {
		return GroupConfig{}, err
	}

	return cfg, nil
}

// ImmutableEqual reports whether all fields that may never change after creation match.
func (c *GroupConfig) ImmutableEqual(o *GroupConfig) bool {
	return c.Kind == o.Kind &&
		c.MaxMembers == o.MaxMembers &&
		c.Filter == o.Filter &&
		slices.Equal(c.PartitioningWildcards, o.PartitioningWildcards) &&
		c.MaxBufferedMsgs == o.MaxBufferedMsgs &&
		c.MaxBufferedBytes == o.MaxBufferedBytes
}

// MembershipEqual reports whether members and member mappings match, order included.
func (c *GroupConfig) MembershipEqual(o *GroupConfig) bool {
	if !slices.Equal(c.Members, o.Members) {
		return false
	}

	return slices.EqualFunc(c.MemberMappings, o.MemberMappings, func(a, b MemberMapping) bool {
		return a.Member == b.Member && slices.Equal(a.Partitions, b.Partitions)
	})
}

// Equal reports structural equality of everything except Revision.
func (c *GroupConfig) Equal(o *GroupConfig) bool {
	return c.ImmutableEqual(o) && c.MembershipEqual(o)
}

// MembershipFingerprint returns a short digest of the membership, used in logs
// and as a cheap change check.
func (c *GroupConfig) MembershipFingerprint() uint64 {
	h := xxh3.New()
	for _, m := range c.Members {
		_, _ = h.WriteString(m)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1})
	for _, mm := range c.MemberMappings {
		_, _ = h.WriteString(mm.Member)
		for _, p := range mm.Partitions {
			_, _ = h.WriteString(strconv.Itoa(p))
			_, _ = h.Write([]byte{','})
		}
		_, _ = h.Write([]byte{0})
	}

	return h.Sum64()
}

// Clone returns a deep copy of the config.
func (c *GroupConfig) Clone() GroupConfig {
	var out GroupConfig
	// copier only fails on mismatched kinds, impossible for identical types
	_ = copier.CopyWithOption(&out, c, copier.Option{DeepCopy: true})

	return out
}

// AllMembers returns the distinct member names of the config, in config order.
func (c *GroupConfig) AllMembers() []string {
	var names []string
	seen := make(map[string]struct{})

	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, m := range c.Members {
		add(m)
	}
	for _, mm := range c.MemberMappings {
		add(mm.Member)
	}

	return names
}

// HasMember reports whether name is part of the configured membership.
func (c *GroupConfig) HasMember(name string) bool {
	return slices.Contains(c.AllMembers(), name)
}

// PartitioningTransform returns the subject transform destination used by the
// work-distribution stream of an elastic group.
//
// Each '*' token of Filter is replaced by its {{Wildcard(n)}} capture and the
// result is prefixed with the partition function over the partitioning wildcards.
//
// Example:
//
//	Filter "orders.*.*", MaxMembers 4, PartitioningWildcards [2]
//	=> "{{Partition(4,2)}}.orders.{{Wildcard(1)}}.{{Wildcard(2)}}"
func (c *GroupConfig) PartitioningTransform() string {
	indexes := make([]string, len(c.PartitioningWildcards))
	for i, wc := range c.PartitioningWildcards {
		indexes[i] = strconv.Itoa(wc)
	}

	tokens := strings.Split(c.Filter, ".")
	n := 0
	for i, tok := range tokens {
		if tok == "*" {
			n++
			tokens[i] = fmt.Sprintf("{{Wildcard(%d)}}", n)
		}
	}

	return fmt.Sprintf("{{Partition(%d,%s)}}.%s", c.MaxMembers, strings.Join(indexes, ","), strings.Join(tokens, "."))
}

// CountWildcards returns the number of '*' tokens in a subject filter.
func CountWildcards(filter string) int {
	n := 0
	for _, tok := range strings.Split(filter, ".") {
		if tok == "*" {
			n++
		}
	}

	return n
}
