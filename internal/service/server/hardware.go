package server

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/domain/gate"
	"github.com/oshokin/gate-controller/internal/hardware"
	"github.com/oshokin/gate-controller/internal/monitor"
)

// gateHardware is a relay plus sensor backend that holds OS resources.
type gateHardware interface {
	monitor.Sensors
	monitor.Relay
	Close() error
}

// openHardware builds the configured backend. The simulated barrier starts
// closed.
func openHardware(ctx context.Context, settings *config.Config, clock clockwork.Clock) (gateHardware, error) {
	hw := settings.Hardware

	switch hw.Driver {
	case config.DriverSimulated:
		return hardware.NewSimulator(clock, hw.SimulatedTravel, settings.Gate.RelayPulse, gate.StateClosed), nil
	case config.DriverRPIO:
		driver, err := hardware.OpenRPIO(ctx, hardware.RPIOConfig{
			RelayPin:         hw.RelayPin,
			ClosedSensorPin:  hw.ClosedSensorPin,
			OpenSensorPin:    hw.OpenSensorPin,
			SensorsActiveLow: *hw.SensorsActiveLow,
			RelayActiveHigh:  *hw.RelayActiveHigh,
			RelayPulse:       settings.Gate.RelayPulse,
		})
		if err != nil {
			return nil, err
		}

		return driver, nil
	default:
		return nil, fmt.Errorf("unsupported hardware driver %q", hw.Driver)
	}
}
