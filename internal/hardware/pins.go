package hardware

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stianeikeland/go-rpio/v4"

	"github.com/oshokin/gate-controller/internal/domain/gate"
)

// OutputPin is a digital output. rpio.Pin satisfies it.
type OutputPin interface {
	High()
	Low()
}

// InputPin is a digital input. rpio.Pin satisfies it.
type InputPin interface {
	Read() rpio.State
}

// Pulser energizes a relay for a fixed width and then releases it.
type Pulser struct {
	// pin drives the relay coil.
	pin OutputPin
	// activeHigh is true when a high level energizes the relay.
	activeHigh bool
	// width is how long the relay stays energized.
	width time.Duration
	// clock provides Sleep.
	clock clockwork.Clock
	// mu keeps at most one pulse in flight.
	mu sync.Mutex
}

// NewPulser wraps pin. The relay is released immediately.
func NewPulser(pin OutputPin, activeHigh bool, width time.Duration, clock clockwork.Clock) *Pulser {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	p := &Pulser{
		pin:        pin,
		activeHigh: activeHigh,
		width:      width,
		clock:      clock,
	}
	p.release()

	return p
}

// TriggerRelay energizes the relay, blocks for the pulse width and releases it.
// A started pulse always runs to completion.
func (p *Pulser) TriggerRelay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.energize()
	p.clock.Sleep(p.width)
	p.release()
}

func (p *Pulser) energize() {
	if p.activeHigh {
		p.pin.High()
	} else {
		p.pin.Low()
	}
}

func (p *Pulser) release() {
	if p.activeHigh {
		p.pin.Low()
	} else {
		p.pin.High()
	}
}

// SensorPair reads the "closed" and "open" proximity sensors.
type SensorPair struct {
	closed InputPin
	open   InputPin
	// activeLow is true for pull-up wiring: a near barrier pulls the pin low.
	activeLow bool
}

// NewSensorPair wraps both inputs with the given polarity.
func NewSensorPair(closed, open InputPin, activeLow bool) *SensorPair {
	return &SensorPair{
		closed:    closed,
		open:      open,
		activeLow: activeLow,
	}
}

// ReadSensors samples both pins and corrects the electrical inversion.
func (s *SensorPair) ReadSensors() (gate.Reading, error) {
	return gate.Reading{
		ClosedActive: s.active(s.closed),
		OpenActive:   s.active(s.open),
	}, nil
}

func (s *SensorPair) active(pin InputPin) bool {
	high := pin.Read() == rpio.High
	if s.activeLow {
		return !high
	}

	return high
}
