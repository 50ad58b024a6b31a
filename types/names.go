package types

import (
	"errors"
	"strconv"
	"strings"
)

// Default KV bucket names holding consumer group configs.
const (
	DefaultStaticBucket  = "static-consumer-groups"
	DefaultElasticBucket = "elastic-consumer-groups"
)

var errInvalidName = errors.New("name must be non-empty and must not contain whitespace, '.', '*', '>', '/' or '\\'")

// ValidateName checks that a stream, group or member name can be used as part of
// a JetStream stream or consumer name and of a KV key.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n.*>/\\") {
		return errInvalidName
	}

	return nil
}

// GroupKey returns the KV key of a group config: "{stream}.{group}".
func GroupKey(stream, group string) string {
	return stream + "." + group
}

// SplitGroupKey is the inverse of GroupKey. ok is false when key does not
// belong to stream.
func SplitGroupKey(stream, key string) (group string, ok bool) {
	group, ok = strings.CutPrefix(key, stream+".")
	if !ok || group == "" {
		return "", false
	}

	return group, true
}

// WorkStreamName returns the name of an elastic group's work-distribution stream.
func WorkStreamName(stream, group string) string {
	return stream + "-" + group
}

// StaticConsumerName returns the durable consumer name of a static group member.
func StaticConsumerName(group, member string) string {
	return group + "-" + member
}

// ElasticConsumerName returns the durable consumer name of an elastic group member.
//
// Elastic members use their name directly since each group has its own work stream.
func ElasticConsumerName(member string) string {
	return member
}

// ConsumerName returns the durable consumer name of a member for the given kind.
func ConsumerName(kind Kind, group, member string) string {
	if kind == KindStatic {
		return StaticConsumerName(group, member)
	}

	return ElasticConsumerName(member)
}

// PartitionFilter returns the filter subject selecting one partition: "{p}.>".
func PartitionFilter(partition int) string {
	return strconv.Itoa(partition) + ".>"
}
