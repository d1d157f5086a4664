package gate

// PhysicalState is the barrier position inferred from the sensor pair.
// The zero value is StateUnknown so an unset state never reads as a position.
type PhysicalState uint8

const (
	// StateUnknown covers both sensors active (wiring fault) and none active (mid-travel).
	StateUnknown PhysicalState = iota
	// StateClosed means only the "closed" sensor sees the barrier.
	StateClosed
	// StateOpen means only the "open" sensor sees the barrier.
	StateOpen
)

// String returns the lower-case name used in logs and status payloads.
func (s PhysicalState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Reading is one sample of both proximity sensors. Each flag is true when the
// barrier is physically adjacent to that sensor, after any electrical inversion.
type Reading struct {
	ClosedActive bool
	OpenActive   bool
}

// Classify maps a sensor pair onto a physical state. Every reading that is
// inconsistent with exactly one barrier position yields StateUnknown.
func Classify(closedActive, openActive bool) PhysicalState {
	switch {
	case closedActive && !openActive:
		return StateClosed
	case !closedActive && openActive:
		return StateOpen
	default:
		return StateUnknown
	}
}

// State classifies the reading.
func (r Reading) State() PhysicalState {
	return Classify(r.ClosedActive, r.OpenActive)
}
