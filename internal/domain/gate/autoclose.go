package gate

import "time"

// AutoCloseTimer is the dwell timer armed while the barrier is observed open.
type AutoCloseTimer struct {
	Armed   bool
	ArmedAt time.Time
}

// Remaining returns the time left before the timer is due, saturating at zero.
func (t AutoCloseTimer) Remaining(now time.Time, delay time.Duration) time.Duration {
	if !t.Armed {
		return 0
	}

	return max(delay-now.Sub(t.ArmedAt), 0)
}

// ObserveTransition arms the timer on an edge into StateOpen and disarms it on
// an edge into StateClosed. Edges into StateUnknown leave it untouched.
func ObserveTransition(t AutoCloseTimer, from, to PhysicalState, now time.Time) AutoCloseTimer {
	if from == to {
		return t
	}

	switch to {
	case StateOpen:
		return AutoCloseTimer{Armed: true, ArmedAt: now}
	case StateClosed:
		return AutoCloseTimer{}
	default:
		return t
	}
}

// AutoCloseDue reports whether the timer should fire: armed, barrier observed
// open, nothing in flight and the dwell delay elapsed.
func AutoCloseDue(t AutoCloseTimer, observed PhysicalState, op Operation, now time.Time, delay time.Duration) bool {
	if !t.Armed || observed != StateOpen || op.InFlight() {
		return false
	}

	return now.Sub(t.ArmedAt) >= delay
}
