package gate

import "time"

// OperationKind is the direction of a commanded barrier movement.
type OperationKind uint8

const (
	// OperationNone means no deadline is being tracked.
	OperationNone OperationKind = iota
	// OperationOpening expects the barrier to reach StateOpen.
	OperationOpening
	// OperationClosing expects the barrier to reach StateClosed.
	OperationClosing
)

// String returns the lower-case name used in logs, metrics and status payloads.
func (k OperationKind) String() string {
	switch k {
	case OperationOpening:
		return "opening"
	case OperationClosing:
		return "closing"
	default:
		return "idle"
	}
}

// Target returns the terminal state an operation of this kind waits for.
func (k OperationKind) Target() PhysicalState {
	switch k {
	case OperationOpening:
		return StateOpen
	case OperationClosing:
		return StateClosed
	default:
		return StateUnknown
	}
}

// Trigger names what caused a relay pulse.
type Trigger string

const (
	// TriggerCommand is an explicit open or close request.
	TriggerCommand Trigger = "command"
	// TriggerAutoClose is the autonomous re-close after the dwell period.
	TriggerAutoClose Trigger = "auto_close"
)

// Timings are the process-wide deadlines of the lifecycle.
type Timings struct {
	OpeningTimeout time.Duration
	ClosingTimeout time.Duration
	AutoCloseDelay time.Duration
}

// TimeoutFor returns the deadline of the given operation kind.
func (t Timings) TimeoutFor(kind OperationKind) time.Duration {
	switch kind {
	case OperationOpening:
		return t.OpeningTimeout
	case OperationClosing:
		return t.ClosingTimeout
	default:
		return 0
	}
}

// Operation is at most one in-flight commanded movement.
type Operation struct {
	// ID correlates log lines and audit events of one operation instance.
	ID string
	// Kind is OperationNone when nothing is in flight.
	Kind OperationKind
	// StartedAt is the monotonic start time.
	StartedAt time.Time
	// Expected is the terminal state that completes the operation.
	Expected PhysicalState
	// AlertRaised is set once the deadline passed; meaningful only while in flight.
	AlertRaised bool
	// AlertAcknowledged hides a raised alert without re-arming it.
	AlertAcknowledged bool
}

// AlertActive reports whether a raised alert is still visible to callers.
func (o Operation) AlertActive() bool {
	return o.InFlight() && o.AlertRaised && !o.AlertAcknowledged
}

// InFlight reports whether a deadline is being tracked.
func (o Operation) InFlight() bool {
	return o.Kind != OperationNone
}

// Elapsed returns the time since start, zero when idle.
func (o Operation) Elapsed(now time.Time) time.Duration {
	if !o.InFlight() {
		return 0
	}

	return now.Sub(o.StartedAt)
}

// Remaining returns the time left before the deadline, saturating at zero.
func (o Operation) Remaining(now time.Time, timings Timings) time.Duration {
	if !o.InFlight() {
		return 0
	}

	return max(timings.TimeoutFor(o.Kind)-o.Elapsed(now), 0)
}

// StartOperation returns a fresh operation that replaces whatever was in flight.
// The alert flags always start cleared.
func StartOperation(id string, kind OperationKind, expected PhysicalState, now time.Time) Operation {
	return Operation{
		ID:        id,
		Kind:      kind,
		StartedAt: now,
		Expected:  expected,
	}
}

// Complete resets the operation once the observed state equals its expected
// terminal state. Completion depends on observation only, never on time.
func Complete(op Operation, observed PhysicalState) (Operation, bool) {
	if !op.InFlight() || observed != op.Expected {
		return op, false
	}

	return Operation{}, true
}

// CheckTimeout raises the alert the first time the deadline is reached.
// The operation stays in flight; the returned flag is true only on the tick
// that raised the alert.
func CheckTimeout(op Operation, now time.Time, timings Timings) (Operation, bool) {
	if !op.InFlight() || op.AlertRaised {
		return op, false
	}

	if op.Elapsed(now) < timings.TimeoutFor(op.Kind) {
		return op, false
	}

	op.AlertRaised = true

	return op, true
}

// Alert describes an operation that missed its deadline.
type Alert struct {
	Operation Operation
	Elapsed   time.Duration
	Timeout   time.Duration
}
