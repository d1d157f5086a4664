package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stianeikeland/go-rpio/v4"

	"github.com/oshokin/gate-controller/internal/logger"
)

// RPIOConfig holds the BCM pin assignment and polarities.
type RPIOConfig struct {
	RelayPin         int
	ClosedSensorPin  int
	OpenSensorPin    int
	SensorsActiveLow bool
	RelayActiveHigh  bool
	RelayPulse       time.Duration
}

// RPIO drives the relay and reads the sensors through /dev/gpiomem.
type RPIO struct {
	*Pulser
	*SensorPair
}

// OpenRPIO maps the GPIO registers and configures the pins: relay as a released
// output, sensors as inputs with the pull matching their polarity.
func OpenRPIO(ctx context.Context, cfg RPIOConfig) (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	relay := rpio.Pin(cfg.RelayPin)
	relay.Output()

	closed := rpio.Pin(cfg.ClosedSensorPin)
	open := rpio.Pin(cfg.OpenSensorPin)

	for _, pin := range []rpio.Pin{closed, open} {
		pin.Input()

		if cfg.SensorsActiveLow {
			pin.PullUp()
		} else {
			pin.PullDown()
		}
	}

	driver := &RPIO{
		Pulser:     NewPulser(relay, cfg.RelayActiveHigh, cfg.RelayPulse, clockwork.NewRealClock()),
		SensorPair: NewSensorPair(closed, open, cfg.SensorsActiveLow),
	}

	logger.InfoKV(ctx, "GPIO initialised",
		"relay_pin", cfg.RelayPin,
		"closed_sensor_pin", cfg.ClosedSensorPin,
		"open_sensor_pin", cfg.OpenSensorPin,
		"sensors_active_low", cfg.SensorsActiveLow,
	)

	return driver, nil
}

// Close releases the relay and unmaps the GPIO registers.
func (r *RPIO) Close() error {
	r.release()

	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio: %w", err)
	}

	return nil
}
