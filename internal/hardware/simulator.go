package hardware

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/oshokin/gate-controller/internal/domain/gate"
)

// DefaultTravelTime is how long the simulated barrier takes end to end.
const DefaultTravelTime = 5 * time.Second

// direction of simulated travel.
type direction int

const (
	stopped direction = 0
	opening direction = 1
	closing direction = -1
)

// Simulator models a single-button barrier opener in memory. A pulse starts
// travel from an end stop, stops a moving barrier and reverses a stopped one.
type Simulator struct {
	// clock drives travel and pulse width.
	clock clockwork.Clock
	// travel is the end-to-end travel time.
	travel time.Duration
	// pulse is how long TriggerRelay blocks.
	pulse time.Duration

	// mu protects the fields below; tests poke the model from other goroutines.
	mu sync.Mutex
	// position is the travelled time away from the closed end stop.
	position time.Duration
	// moving is the current direction, lastMove the previous non-zero one.
	moving   direction
	lastMove direction
	// movedAt is when position was last brought up to date.
	movedAt time.Time
	// jammed makes the motor ignore pulses.
	jammed bool
	// fault reports both sensors active.
	fault bool
	// pulses counts relay activations.
	pulses int
}

// NewSimulator creates a stationary barrier at the given end stop.
// StateUnknown places it halfway.
func NewSimulator(clock clockwork.Clock, travel, pulse time.Duration, initial gate.PhysicalState) *Simulator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if travel <= 0 {
		travel = DefaultTravelTime
	}

	s := &Simulator{
		clock:    clock,
		travel:   travel,
		pulse:    pulse,
		movedAt:  clock.Now(),
		lastMove: closing,
	}

	switch initial {
	case gate.StateOpen:
		s.position = travel
		s.lastMove = opening
	case gate.StateUnknown:
		s.position = travel / 2
	case gate.StateClosed:
	}

	return s
}

// TriggerRelay applies one pulse to the motor and blocks for the pulse width.
func (s *Simulator) TriggerRelay() {
	s.mu.Lock()

	s.advance()
	s.pulses++

	if !s.jammed {
		switch {
		case s.moving != stopped:
			s.moving = stopped
		case s.position <= 0:
			s.start(opening)
		case s.position >= s.travel:
			s.start(closing)
		default:
			s.start(-s.lastMove)
		}
	}

	s.mu.Unlock()

	if s.pulse > 0 {
		s.clock.Sleep(s.pulse)
	}
}

// ReadSensors reports which end stop the barrier is at.
func (s *Simulator) ReadSensors() (gate.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance()

	if s.fault {
		return gate.Reading{ClosedActive: true, OpenActive: true}, nil
	}

	return gate.Reading{
		ClosedActive: s.position <= 0,
		OpenActive:   s.position >= s.travel,
	}, nil
}

// Jam makes the motor ignore pulses, emulating a stuck barrier.
func (s *Simulator) Jam(jammed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance()
	s.jammed = jammed

	if jammed {
		s.moving = stopped
	}
}

// SetFault makes both sensors read active, emulating a wiring fault.
func (s *Simulator) SetFault(fault bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fault = fault
}

// Pulses returns how many times the relay was triggered.
func (s *Simulator) Pulses() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pulses
}

// Close satisfies the driver lifecycle; the simulator holds no resources.
func (s *Simulator) Close() error {
	return nil
}

func (s *Simulator) start(d direction) {
	s.moving = d
	s.lastMove = d
}

// advance brings position up to the current clock reading.
func (s *Simulator) advance() {
	now := s.clock.Now()
	delta := now.Sub(s.movedAt)
	s.movedAt = now

	if s.moving == stopped || delta <= 0 {
		return
	}

	s.position += time.Duration(s.moving) * delta

	switch {
	case s.position <= 0:
		s.position = 0
		s.moving = stopped
	case s.position >= s.travel:
		s.position = s.travel
		s.moving = stopped
	}
}
