package pcgroups

import (
	"github.com/arloliu/pcgroups/subscription"
	"github.com/arloliu/pcgroups/types"
)

// Re-export types from the types and subscription packages.
//
// Internal packages depend on types, never on the root package; the aliases
// give users a single import for the common API.
type (
	State         = types.State
	Kind          = types.Kind
	Mode          = types.Mode
	GroupConfig   = types.GroupConfig
	MemberMapping = types.MemberMapping
)

// Re-export interfaces.
type (
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
	AssignmentStrategy = types.AssignmentStrategy
)

// Re-export message delivery types.
type (
	Msg                = subscription.Msg
	MessageHandler     = subscription.MessageHandler
	MessageHandlerFunc = subscription.MessageHandlerFunc
	ConsumeOptions     = subscription.ConsumeOptions
)

// Re-export State constants.
const (
	StateJoining     = types.StateJoining
	StateActive      = types.StateActive
	StateRebalancing = types.StateRebalancing
	StateStopped     = types.StateStopped
	StateFailed      = types.StateFailed
)

// Re-export Kind and Mode constants.
const (
	KindStatic  = types.KindStatic
	KindElastic = types.KindElastic

	ModeEmpty    = types.ModeEmpty
	ModeBalanced = types.ModeBalanced
	ModeMapped   = types.ModeMapped
)
