package types

// State represents the coordination state of a consuming group member.
//
// States follow this progression:
//
//	StateJoining → StateActive ⇄ StateRebalancing
//
// StateStopped and StateFailed are terminal.
type State int

const (
	// StateJoining is the initial state while the member creates its consumer.
	StateJoining State = iota

	// StateActive indicates steady state: consuming, or idle without partitions.
	StateActive

	// StateRebalancing indicates the member is switching to a new partition set.
	StateRebalancing

	// StateStopped indicates a clean shutdown (stop requested or group deleted).
	StateStopped

	// StateFailed indicates the member terminated with an error.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateJoining:
		return "Joining"
	case StateActive:
		return "Active"
	case StateRebalancing:
		return "Rebalancing"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
