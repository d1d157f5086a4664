package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/oshokin/gate-controller/internal/domain/gate"
	"github.com/oshokin/gate-controller/internal/logger"
)

// Sensors reads both proximity sensors.
type Sensors interface {
	ReadSensors() (gate.Reading, error)
}

// Relay issues one fixed-width activation pulse. It blocks for the whole pulse
// and reports nothing: the actuator has no feedback channel.
type Relay interface {
	TriggerRelay()
}

// Recorder receives lifecycle measurements.
type Recorder interface {
	SetPhysicalState(state gate.PhysicalState)
	SetOperationInFlight(inFlight bool)
	IncRelayPulse(trigger gate.Trigger)
	IncAlert(kind gate.OperationKind)
	IncOperationCompleted(kind gate.OperationKind)
	IncAutoClose()
	ObserveTick(d time.Duration)
}

// Notifier is told about events that leave the process, such as alerts and
// autonomous actions.
type Notifier interface {
	AlertRaised(ctx context.Context, alert gate.Alert)
	AutoClosed(ctx context.Context, op gate.Operation)
}

// Config holds the immutable timings the monitor is constructed with.
type Config struct {
	Timings gate.Timings
}

// Monitor tracks the barrier lifecycle. See the package documentation for the
// concurrency contract.
type Monitor struct {
	// cfg holds the deadlines and the auto-close delay.
	cfg Config
	// sensors and relay are the hardware collaborators.
	sensors Sensors
	relay   Relay
	// clock supplies monotonic time.
	clock clockwork.Clock
	// recorder and notifier observe the lifecycle.
	recorder Recorder
	notifier Notifier
	// newID generates operation identifiers.
	newID func() string

	// observed is the physical state seen by the previous tick.
	observed gate.PhysicalState
	// reading is the sensor sample taken by the previous tick.
	reading gate.Reading
	// op is the in-flight operation, zero when idle.
	op gate.Operation
	// autoClose is the dwell timer.
	autoClose gate.AutoCloseTimer
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Monitor) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithNotifier attaches a notifier for alerts and auto-close events.
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithIDGenerator replaces the operation ID source.
func WithIDGenerator(newID func() string) Option {
	return func(m *Monitor) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// New creates an idle monitor. Call Begin before the first Tick.
func New(cfg Config, sensors Sensors, relay Relay, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		sensors:  sensors,
		relay:    relay,
		clock:    clockwork.NewRealClock(),
		recorder: nopRecorder{},
		notifier: nopNotifier{},
		newID:    uuid.NewString,
		observed: gate.StateUnknown,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Begin seeds the observed state from the current sensors without treating it
// as a transition, so booting with the barrier open does not arm auto-close.
func (m *Monitor) Begin(ctx context.Context) {
	m.reading = m.read(ctx)
	m.observed = m.reading.State()
	m.recorder.SetPhysicalState(m.observed)
	m.recorder.SetOperationInFlight(false)

	logger.InfoKV(ctx, "Initial gate state", "state", m.observed.String())
}

// Tick runs one full evaluation pass: classify, handle a transition, check
// completion, check the deadline, check auto-close. Completion is evaluated
// before the deadline so a barrier arriving late still clears its operation.
func (m *Monitor) Tick(ctx context.Context) {
	started := m.clock.Now()

	m.reading = m.read(ctx)
	state := m.reading.State()
	now := m.clock.Now()

	if state != m.observed {
		m.handleStateChange(ctx, m.observed, state, now)
		m.observed = state
	}

	m.checkCompletion(ctx, state, now)
	m.checkTimeout(ctx, now)
	m.checkAutoClose(ctx, state, now)

	m.recorder.ObserveTick(m.clock.Since(started))
}

// StartOperation begins tracking a commanded movement, unconditionally
// replacing any operation in flight and clearing its alert.
func (m *Monitor) StartOperation(ctx context.Context, kind gate.OperationKind, expected gate.PhysicalState) gate.Operation {
	if m.op.InFlight() {
		logger.InfoKV(ctx, "Operation preempted",
			"operation_id", m.op.ID,
			"operation", m.op.Kind.String(),
			"by", kind.String(),
		)
	}

	m.op = gate.StartOperation(m.newID(), kind, expected, m.clock.Now())
	m.recorder.SetOperationInFlight(true)

	logger.InfoKV(ctx, "Gate operation initiated, timeout monitoring started",
		"operation_id", m.op.ID,
		"operation", kind.String(),
		"expected", expected.String(),
		"timeout", m.cfg.Timings.TimeoutFor(kind),
	)

	return m.op
}

// CommandOpen pulses the relay and starts an opening operation unless the
// barrier already reads open. It reports whether anything was done.
func (m *Monitor) CommandOpen(ctx context.Context) bool {
	return m.command(ctx, gate.OperationOpening)
}

// CommandClose pulses the relay and starts a closing operation unless the
// barrier already reads closed. It reports whether anything was done.
func (m *Monitor) CommandClose(ctx context.Context) bool {
	return m.command(ctx, gate.OperationClosing)
}

// ClearAlert acknowledges a raised alert. The operation stays in flight and the
// alert is not raised again for it. This is the only way an alert stops
// reading active before the operation completes or is replaced.
func (m *Monitor) ClearAlert(ctx context.Context) bool {
	if !m.op.AlertActive() {
		return false
	}

	m.op.AlertAcknowledged = true

	logger.InfoKV(ctx, "Alert cleared", "operation_id", m.op.ID, "operation", m.op.Kind.String())

	return true
}

// Snapshot returns the status view built from a fresh sensor reading.
func (m *Monitor) Snapshot(ctx context.Context) gate.Snapshot {
	reading := m.read(ctx)

	return gate.NewSnapshot(reading, m.observed, m.op, m.autoClose, m.clock.Now(), m.cfg.Timings)
}

// Operation returns the in-flight operation, zero when idle.
func (m *Monitor) Operation() gate.Operation {
	return m.op
}

// AutoClose returns the auto-close timer.
func (m *Monitor) AutoClose() gate.AutoCloseTimer {
	return m.autoClose
}

// Observed returns the physical state seen by the last tick.
func (m *Monitor) Observed() gate.PhysicalState {
	return m.observed
}

func (m *Monitor) command(ctx context.Context, kind gate.OperationKind) bool {
	target := kind.Target()

	state := m.read(ctx).State()
	if state == target {
		logger.InfoKV(ctx, "Gate already in requested state", "state", state.String())

		return false
	}

	m.pulse(ctx, gate.TriggerCommand)
	m.StartOperation(ctx, kind, target)

	return true
}

// handleStateChange arms or disarms auto-close on the edge.
func (m *Monitor) handleStateChange(ctx context.Context, from, to gate.PhysicalState, now time.Time) {
	logger.InfoKV(ctx, "State change detected", "from", from.String(), "to", to.String())
	m.recorder.SetPhysicalState(to)

	wasArmed := m.autoClose.Armed

	m.autoClose = gate.ObserveTransition(m.autoClose, from, to, now)

	switch {
	case to == gate.StateOpen:
		logger.InfoKV(ctx, "Auto-close timer started", "delay", m.cfg.Timings.AutoCloseDelay)
	case wasArmed && !m.autoClose.Armed:
		logger.Info(ctx, "Auto-close timer cancelled")
	}
}

// checkCompletion ends the operation once the expected state is observed.
func (m *Monitor) checkCompletion(ctx context.Context, state gate.PhysicalState, now time.Time) {
	previous := m.op

	next, done := gate.Complete(m.op, state)
	if !done {
		return
	}

	m.op = next
	m.recorder.SetOperationInFlight(false)
	m.recorder.IncOperationCompleted(previous.Kind)

	logger.InfoKV(ctx, "Operation completed successfully",
		"operation_id", previous.ID,
		"operation", previous.Kind.String(),
		"elapsed", previous.Elapsed(now),
	)
}

func (m *Monitor) checkTimeout(ctx context.Context, now time.Time) {
	next, raised := gate.CheckTimeout(m.op, now, m.cfg.Timings)
	if !raised {
		return
	}

	m.op = next

	alert := gate.Alert{
		Operation: next,
		Elapsed:   next.Elapsed(now),
		Timeout:   m.cfg.Timings.TimeoutFor(next.Kind),
	}

	m.recorder.IncAlert(next.Kind)

	logger.WarnKV(ctx, "ALERT: gate did not complete within timeout",
		"operation_id", next.ID,
		"operation", next.Kind.String(),
		"elapsed", alert.Elapsed,
		"timeout", alert.Timeout,
	)

	m.notifier.AlertRaised(ctx, alert)
}

// checkAutoClose fires the relay once per arming: the timer is disarmed in the
// same step as the pulse, even if the barrier never moves.
func (m *Monitor) checkAutoClose(ctx context.Context, state gate.PhysicalState, now time.Time) {
	if !gate.AutoCloseDue(m.autoClose, state, m.op, now, m.cfg.Timings.AutoCloseDelay) {
		return
	}

	logger.InfoKV(ctx, "Auto-close triggered", "delay", m.cfg.Timings.AutoCloseDelay)

	m.autoClose = gate.AutoCloseTimer{}
	m.pulse(ctx, gate.TriggerAutoClose)
	op := m.StartOperation(ctx, gate.OperationClosing, gate.StateClosed)

	m.recorder.IncAutoClose()
	m.notifier.AutoClosed(ctx, op)
}

func (m *Monitor) pulse(ctx context.Context, trigger gate.Trigger) {
	logger.DebugKV(ctx, "Relay pulse", "trigger", string(trigger))
	m.relay.TriggerRelay()
	m.recorder.IncRelayPulse(trigger)
}

// read samples the sensors. A failed read is logged and reported as no sensor
// active, which classifies as unknown.
func (m *Monitor) read(ctx context.Context) gate.Reading {
	reading, err := m.sensors.ReadSensors()
	if err != nil {
		logger.ErrorKV(ctx, "Sensor read failed", "error", err)

		return gate.Reading{}
	}

	return reading
}
