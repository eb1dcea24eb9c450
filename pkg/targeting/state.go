package targeting

// State is the targeting state published to the robot each frame.
// The ordinal values are part of the telemetry contract.
type State int

const (
	// Searching means no valid target this frame.
	Searching State = 0
	// Acquiring means a valid pair was found but no offset was computed.
	Acquiring State = 1
	// Locked means distance and offset were both computed this frame.
	Locked State = 2
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Acquiring:
		return "acquiring"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	return s >= Searching && s <= Locked
}
