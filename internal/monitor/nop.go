package monitor

import (
	"context"
	"time"

	"github.com/oshokin/gate-controller/internal/domain/gate"
)

type nopRecorder struct{}

func (nopRecorder) SetPhysicalState(gate.PhysicalState)      {}
func (nopRecorder) SetOperationInFlight(bool)                {}
func (nopRecorder) IncRelayPulse(gate.Trigger)               {}
func (nopRecorder) IncAlert(gate.OperationKind)              {}
func (nopRecorder) IncOperationCompleted(gate.OperationKind) {}
func (nopRecorder) IncAutoClose()                            {}
func (nopRecorder) ObserveTick(time.Duration)                {}

type nopNotifier struct{}

func (nopNotifier) AlertRaised(context.Context, gate.Alert)    {}
func (nopNotifier) AutoClosed(context.Context, gate.Operation) {}
