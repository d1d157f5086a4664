package monitor

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/gate-controller/internal/domain/gate"
)

var errTestSensor = errors.New("test sensor error")

var testTimings = gate.Timings{
	OpeningTimeout: 15 * time.Second,
	ClosingTimeout: 20 * time.Second,
	AutoCloseDelay: 3 * time.Minute,
}

var (
	readingClosed  = gate.Reading{ClosedActive: true}
	readingOpen    = gate.Reading{OpenActive: true}
	readingNeither = gate.Reading{}
	readingBoth    = gate.Reading{ClosedActive: true, OpenActive: true}
)

// fakeSensors returns a settable reading.
type fakeSensors struct {
	// reading is returned by every read.
	reading gate.Reading
	// err, when set, is returned instead of the reading.
	err error
}

// ReadSensors returns the configured reading or error.
func (f *fakeSensors) ReadSensors() (gate.Reading, error) {
	if f.err != nil {
		return gate.Reading{}, f.err
	}

	return f.reading, nil
}

// fakeRelay counts pulses without blocking.
type fakeRelay struct {
	pulses int
}

// TriggerRelay records one pulse.
func (f *fakeRelay) TriggerRelay() { f.pulses++ }

// recordingNotifier keeps every notification.
type recordingNotifier struct {
	alerts     []gate.Alert
	autoClosed []gate.Operation
}

func (r *recordingNotifier) AlertRaised(_ context.Context, alert gate.Alert) {
	r.alerts = append(r.alerts, alert)
}

func (r *recordingNotifier) AutoClosed(_ context.Context, op gate.Operation) {
	r.autoClosed = append(r.autoClosed, op)
}

// recordingRecorder counts recorder calls that tests assert on.
type recordingRecorder struct {
	nopRecorder

	pulses    map[gate.Trigger]int
	completed map[gate.OperationKind]int
	alerts    map[gate.OperationKind]int
	autoClose int
	ticks     int
	state     gate.PhysicalState
	inFlight  bool
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{
		pulses:    make(map[gate.Trigger]int),
		completed: make(map[gate.OperationKind]int),
		alerts:    make(map[gate.OperationKind]int),
	}
}

func (r *recordingRecorder) SetPhysicalState(s gate.PhysicalState)      { r.state = s }
func (r *recordingRecorder) SetOperationInFlight(v bool)                { r.inFlight = v }
func (r *recordingRecorder) IncRelayPulse(t gate.Trigger)               { r.pulses[t]++ }
func (r *recordingRecorder) IncAlert(k gate.OperationKind)              { r.alerts[k]++ }
func (r *recordingRecorder) IncOperationCompleted(k gate.OperationKind) { r.completed[k]++ }
func (r *recordingRecorder) IncAutoClose()                              { r.autoClose++ }
func (r *recordingRecorder) ObserveTick(time.Duration)                  { r.ticks++ }

// harness bundles a monitor with its fakes.
type harness struct {
	m        *Monitor
	sensors  *fakeSensors
	relay    *fakeRelay
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
	recorder *recordingRecorder
}

// newHarness builds a monitor whose sensors start at the given reading and calls Begin.
func newHarness(t *testing.T, initial gate.Reading) *harness {
	t.Helper()

	h := &harness{
		sensors:  &fakeSensors{reading: initial},
		relay:    new(fakeRelay),
		clock:    clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		notifier: new(recordingNotifier),
		recorder: newRecordingRecorder(),
	}

	seq := 0
	h.m = New(
		Config{Timings: testTimings},
		h.sensors,
		h.relay,
		WithClock(h.clock),
		WithNotifier(h.notifier),
		WithRecorder(h.recorder),
		WithIDGenerator(func() string {
			seq++

			return "op-" + strconv.Itoa(seq)
		}),
	)
	h.m.Begin(context.Background())

	return h
}

// set changes the sensor reading.
func (h *harness) set(r gate.Reading) { h.sensors.reading = r }

// tick advances the clock by d and runs one tick.
func (h *harness) tick(d time.Duration) {
	h.clock.Advance(d)
	h.m.Tick(context.Background())
}

// TestMonitor_InitialState verifies a fresh monitor is idle with nothing armed.
func TestMonitor_InitialState(t *testing.T) {
	t.Parallel()

	h := newHarness(t, readingClosed)

	require.False(t, h.m.Operation().InFlight())
	require.False(t, h.m.AutoClose().Armed)
	require.Equal(t, gate.StateClosed, h.m.Observed())

	s := h.m.Snapshot(context.Background())
	require.Equal(t, gate.StatusClosed, s.Status)
	require.False(t, s.AlertActive)
	require.False(t, s.AutoCloseEnabled)
}

// TestMonitor_BeginOpenDoesNotArm ensures booting with the barrier open is not a transition.
func TestMonitor_BeginOpenDoesNotArm(t *testing.T) {
	t.Parallel()

	h := newHarness(t, readingOpen)
	h.tick(testTimings.AutoCloseDelay * 2)

	require.False(t, h.m.AutoClose().Armed)
	require.Zero(t, h.relay.pulses)
}

// TestMonitor_ScenarioOpenCompletes walks a closed barrier through a commanded open.
func TestMonitor_ScenarioOpenCompletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingClosed)

	require.Equal(t, gate.StatusClosed, h.m.Snapshot(ctx).Status)

	require.True(t, h.m.CommandOpen(ctx))
	require.Equal(t, 1, h.relay.pulses)
	require.Equal(t, gate.OperationOpening, h.m.Operation().Kind)
	require.Equal(t, gate.StatusOpening, h.m.Snapshot(ctx).Status)

	// Mid-travel.
	h.set(readingNeither)
	h.tick(2 * time.Second)
	require.Equal(t, gate.OperationOpening, h.m.Operation().Kind)

	h.set(readingOpen)
	h.tick(3 * time.Second)

	require.False(t, h.m.Operation().InFlight())

	s := h.m.Snapshot(ctx)
	require.Equal(t, gate.StatusOpen, s.Status)
	require.True(t, s.AutoCloseEnabled)
	require.NotNil(t, s.AutoCloseRemaining)
	require.Equal(t, testTimings.AutoCloseDelay, *s.AutoCloseRemaining)
	require.Nil(t, s.OperationElapsed)

	require.Equal(t, 1, h.recorder.completed[gate.OperationOpening])
	require.Equal(t, 1, h.recorder.pulses[gate.TriggerCommand])
	require.Equal(t, gate.StateOpen, h.recorder.state)
	require.False(t, h.recorder.inFlight)
}

// TestMonitor_ScenarioStuckRaisesAlert verifies a stuck opening raises one alert and stays in flight.
func TestMonitor_ScenarioStuckRaisesAlert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingNeither)

	h.m.StartOperation(ctx, gate.OperationOpening, gate.StateOpen)

	h.tick(testTimings.OpeningTimeout - time.Millisecond)
	require.False(t, h.m.Snapshot(ctx).AlertActive)

	h.tick(2 * time.Millisecond)

	s := h.m.Snapshot(ctx)
	require.True(t, s.AlertActive)
	require.Equal(t, gate.StatusOpening, s.Status)
	require.Equal(t, gate.OperationOpening, h.m.Operation().Kind)
	require.Len(t, h.notifier.alerts, 1)
	require.Equal(t, testTimings.OpeningTimeout, h.notifier.alerts[0].Timeout)

	// Edge-triggered: further ticks do not re-raise.
	h.tick(time.Second)
	h.tick(time.Minute)
	require.Len(t, h.notifier.alerts, 1)
	require.Equal(t, 1, h.recorder.alerts[gate.OperationOpening])
	require.True(t, h.m.Snapshot(ctx).AlertActive)

	// No retry pulse was issued.
	require.Zero(t, h.relay.pulses)

	// Reaching the target clears the alert.
	h.set(readingOpen)
	h.tick(time.Second)
	require.False(t, h.m.Snapshot(ctx).AlertActive)
	require.False(t, h.m.Operation().InFlight())
}

// TestMonitor_ScenarioAutoCloseFiresOnce verifies the dwell timer fires exactly once.
func TestMonitor_ScenarioAutoCloseFiresOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingClosed)

	h.set(readingOpen)
	h.tick(time.Second)
	require.True(t, h.m.AutoClose().Armed)

	h.tick(testTimings.AutoCloseDelay - time.Millisecond)
	require.Zero(t, h.relay.pulses)

	h.tick(time.Millisecond)

	require.Equal(t, 1, h.relay.pulses)
	require.Equal(t, gate.OperationClosing, h.m.Operation().Kind)
	require.Equal(t, gate.StateClosed, h.m.Operation().Expected)

	s := h.m.Snapshot(ctx)
	require.False(t, s.AutoCloseEnabled)
	require.Equal(t, gate.StatusClosing, s.Status)
	require.Len(t, h.notifier.autoClosed, 1)
	require.Equal(t, 1, h.recorder.autoClose)
	require.Equal(t, 1, h.recorder.pulses[gate.TriggerAutoClose])

	// The barrier does not move: no second fire.
	h.tick(testTimings.AutoCloseDelay)
	h.tick(testTimings.AutoCloseDelay)
	require.Equal(t, 1, h.relay.pulses)
	require.Len(t, h.notifier.autoClosed, 1)
}

// TestMonitor_CompletionWinsOverTimeout ensures completion is detected before the deadline check.
func TestMonitor_CompletionWinsOverTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingOpen)

	require.True(t, h.m.CommandClose(ctx))

	h.set(readingClosed)
	h.tick(testTimings.ClosingTimeout + time.Second)

	require.False(t, h.m.Operation().InFlight())
	require.False(t, h.m.Snapshot(ctx).AlertActive)
	require.Empty(t, h.notifier.alerts)
	require.Equal(t, 1, h.recorder.completed[gate.OperationClosing])
}

// TestMonitor_CommandIdempotent ensures a command at the target state is a no-op.
func TestMonitor_CommandIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	h := newHarness(t, readingOpen)
	require.False(t, h.m.CommandOpen(ctx))
	require.Zero(t, h.relay.pulses)
	require.False(t, h.m.Operation().InFlight())

	h = newHarness(t, readingClosed)
	require.False(t, h.m.CommandClose(ctx))
	require.Zero(t, h.relay.pulses)

	// Unknown is never a target.
	h = newHarness(t, readingBoth)
	require.True(t, h.m.CommandClose(ctx))
	require.Equal(t, 1, h.relay.pulses)
}

// TestMonitor_CommandPreempts verifies a new command replaces the in-flight operation and its alert.
func TestMonitor_CommandPreempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingNeither)

	require.True(t, h.m.CommandOpen(ctx))
	first := h.m.Operation()

	h.tick(testTimings.OpeningTimeout)
	require.True(t, h.m.Operation().AlertRaised)

	require.True(t, h.m.CommandClose(ctx))

	second := h.m.Operation()
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, gate.OperationClosing, second.Kind)
	require.False(t, second.AlertRaised)
	require.Equal(t, h.clock.Now(), second.StartedAt)
	require.Equal(t, 2, h.relay.pulses)
}

// TestMonitor_CompletesWithoutTransition ensures completion is evaluated on every tick.
func TestMonitor_CompletesWithoutTransition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingOpen)

	h.m.StartOperation(ctx, gate.OperationOpening, gate.StateOpen)
	h.tick(testTimings.OpeningTimeout * 2)

	require.False(t, h.m.Operation().InFlight())
	require.Empty(t, h.notifier.alerts)
}

// TestMonitor_NoAutoCloseWhileInFlight ensures an armed timer waits for the operation to finish.
func TestMonitor_NoAutoCloseWhileInFlight(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingClosed)

	h.set(readingOpen)
	h.tick(time.Second)
	require.True(t, h.m.AutoClose().Armed)

	// An operation expecting a state that never comes keeps the timer from firing.
	h.m.StartOperation(ctx, gate.OperationOpening, gate.StateUnknown)
	h.tick(testTimings.AutoCloseDelay * 2)

	require.Zero(t, h.relay.pulses)
	require.True(t, h.m.AutoClose().Armed)
	require.Equal(t, gate.OperationOpening, h.m.Operation().Kind)
}

// TestMonitor_ClosedDisarms ensures closing the barrier cancels a pending auto-close.
func TestMonitor_ClosedDisarms(t *testing.T) {
	t.Parallel()

	h := newHarness(t, readingClosed)

	h.set(readingOpen)
	h.tick(time.Second)

	h.set(readingNeither)
	h.tick(time.Second)
	require.True(t, h.m.AutoClose().Armed)

	h.set(readingClosed)
	h.tick(time.Second)
	require.False(t, h.m.AutoClose().Armed)

	h.tick(testTimings.AutoCloseDelay)
	require.Zero(t, h.relay.pulses)
}

// TestMonitor_SensorErrorIsUnknown ensures a failed read classifies as unknown and never completes.
func TestMonitor_SensorErrorIsUnknown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingOpen)

	h.sensors.err = errTestSensor
	h.tick(time.Second)
	require.Equal(t, gate.StateUnknown, h.m.Observed())
	require.Equal(t, gate.StatusUnknown, h.m.Snapshot(ctx).Status)

	h.sensors.err = nil
	h.tick(time.Second)
	require.Equal(t, gate.StateOpen, h.m.Observed())
	require.True(t, h.m.AutoClose().Armed)
}

// TestMonitor_ClearAlert acknowledges an alert without ending the operation.
func TestMonitor_ClearAlert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, readingNeither)

	require.False(t, h.m.ClearAlert(ctx))

	h.m.StartOperation(ctx, gate.OperationClosing, gate.StateClosed)
	h.tick(testTimings.ClosingTimeout)
	require.True(t, h.m.ClearAlert(ctx))

	require.False(t, h.m.Snapshot(ctx).AlertActive)
	require.Equal(t, gate.OperationClosing, h.m.Operation().Kind)

	// Already raised once for this instance: not raised again.
	h.tick(time.Minute)
	require.Len(t, h.notifier.alerts, 1)
	require.False(t, h.m.Snapshot(ctx).AlertActive)

	// A fresh operation can raise its own alert.
	h.m.StartOperation(ctx, gate.OperationClosing, gate.StateClosed)
	require.False(t, h.m.Operation().AlertAcknowledged)
	require.Equal(t, 2, h.recorder.ticks)
}
