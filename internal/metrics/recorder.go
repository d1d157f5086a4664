package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/gate-controller/internal/domain/gate"
)

const namespace = "gate"

// Recorder implements the monitor recorder on top of Prometheus collectors.
// All methods are safe on a nil receiver.
type Recorder struct {
	registry            *prom.Registry
	physicalState       prom.Gauge
	operationInFlight   prom.Gauge
	relayPulses         *prom.CounterVec
	alerts              *prom.CounterVec
	operationsCompleted *prom.CounterVec
	autoCloses          prom.Counter
	tickDuration        prom.Histogram
	commands            *prom.CounterVec
}

// NewRecorder registers the gate collectors on reg, or on a fresh registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &Recorder{
		registry: reg,
		physicalState: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "physical_state",
			Help:      "Last observed barrier state (0 unknown, 1 closed, 2 open)",
		}),
		operationInFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "operation_in_flight",
			Help:      "1 while an opening or closing operation is tracked",
		}),
		relayPulses: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "relay_pulses_total",
			Help:      "Relay activations by trigger",
		}, []string{"trigger"}),
		alerts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Operations that missed their deadline",
		}, []string{"operation"}),
		operationsCompleted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "operations_completed_total",
			Help:      "Operations that reached their expected state",
		}, []string{"operation"}),
		autoCloses: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "auto_close_total",
			Help:      "Autonomous closings after the dwell period",
		}),
		tickDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of one monitor evaluation pass",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Open and close commands by action and outcome",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(
		r.physicalState,
		r.operationInFlight,
		r.relayPulses,
		r.alerts,
		r.operationsCompleted,
		r.autoCloses,
		r.tickDuration,
		r.commands,
	)

	return r
}

// Registry returns the registry the collectors are registered on.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}

	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// SetPhysicalState records the classified barrier position.
func (r *Recorder) SetPhysicalState(state gate.PhysicalState) {
	if r == nil {
		return
	}

	r.physicalState.Set(float64(state))
}

// SetOperationInFlight sets the in-flight gauge to 1 or 0.
func (r *Recorder) SetOperationInFlight(inFlight bool) {
	if r == nil {
		return
	}

	v := 0.0
	if inFlight {
		v = 1
	}

	r.operationInFlight.Set(v)
}

// IncRelayPulse counts one relay activation by what triggered it.
func (r *Recorder) IncRelayPulse(trigger gate.Trigger) {
	if r == nil {
		return
	}

	r.relayPulses.WithLabelValues(string(trigger)).Inc()
}

// IncAlert counts a timed-out operation.
func (r *Recorder) IncAlert(kind gate.OperationKind) {
	if r == nil {
		return
	}

	r.alerts.WithLabelValues(kind.String()).Inc()
}

// IncOperationCompleted counts an operation that reached its target.
func (r *Recorder) IncOperationCompleted(kind gate.OperationKind) {
	if r == nil {
		return
	}

	r.operationsCompleted.WithLabelValues(kind.String()).Inc()
}

// IncAutoClose counts auto-close firings.
func (r *Recorder) IncAutoClose() {
	if r == nil {
		return
	}

	r.autoCloses.Inc()
}

// ObserveTick records how long one monitor tick took.
func (r *Recorder) ObserveTick(d time.Duration) {
	if r == nil {
		return
	}

	r.tickDuration.Observe(d.Seconds())
}

// IncCommand counts a transport command; outcome is "started", "noop", "unauthorized" or "cleared".
func (r *Recorder) IncCommand(action, outcome string) {
	if r == nil {
		return
	}

	r.commands.WithLabelValues(action, outcome).Inc()
}
