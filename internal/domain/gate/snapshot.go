package gate

import "time"

// Status is the single word reported to callers.
type Status string

const (
	StatusOpening Status = "opening"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
	StatusOpen    Status = "open"
	StatusUnknown Status = "unknown"
)

// StatusOf gives an in-flight operation priority over the physical state.
func StatusOf(op Operation, state PhysicalState) Status {
	switch op.Kind {
	case OperationOpening:
		return StatusOpening
	case OperationClosing:
		return StatusClosing
	}

	switch state {
	case StateClosed:
		return StatusClosed
	case StateOpen:
		return StatusOpen
	default:
		return StatusUnknown
	}
}

// Snapshot is a read-only view of the monitor for status reporting.
// Optional durations are nil when they do not apply.
type Snapshot struct {
	Status    Status
	Reading   Reading
	State     PhysicalState
	Observed  PhysicalState
	Operation Operation
	AutoClose AutoCloseTimer

	OperationElapsed          *time.Duration
	OperationTimeoutRemaining *time.Duration
	AlertActive               bool
	AutoCloseEnabled          bool
	AutoCloseRemaining        *time.Duration
}

// NewSnapshot assembles the status view from the current reading and the
// monitor-owned lifecycle values.
func NewSnapshot(
	reading Reading,
	observed PhysicalState,
	op Operation,
	timer AutoCloseTimer,
	now time.Time,
	timings Timings,
) Snapshot {
	state := reading.State()

	s := Snapshot{
		Status:           StatusOf(op, state),
		Reading:          reading,
		State:            state,
		Observed:         observed,
		Operation:        op,
		AutoClose:        timer,
		AlertActive:      op.AlertActive(),
		AutoCloseEnabled: timer.Armed,
	}

	if op.InFlight() {
		elapsed := op.Elapsed(now)
		remaining := op.Remaining(now, timings)
		s.OperationElapsed = &elapsed
		s.OperationTimeoutRemaining = &remaining
	}

	if timer.Armed && state == StateOpen && !op.InFlight() {
		remaining := timer.Remaining(now, timings.AutoCloseDelay)
		s.AutoCloseRemaining = &remaining
	}

	return s
}

// Fields renders the snapshot as the status document served to clients.
// Durations are whole milliseconds.
func (s *Snapshot) Fields() map[string]any {
	fields := map[string]any{
		"status":             string(s.Status),
		"sensor_closed":      s.Reading.ClosedActive,
		"sensor_open":        s.Reading.OpenActive,
		"alert_active":       s.AlertActive,
		"auto_close_enabled": s.AutoCloseEnabled,
	}

	if s.OperationElapsed != nil {
		fields["operation_time"] = s.OperationElapsed.Milliseconds()
	}

	if s.OperationTimeoutRemaining != nil {
		fields["timeout_remaining"] = s.OperationTimeoutRemaining.Milliseconds()
	}

	if s.AutoCloseRemaining != nil {
		fields["auto_close_remaining"] = s.AutoCloseRemaining.Milliseconds()
	}

	return fields
}
