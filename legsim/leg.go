// Package legsim simulates the robot's leg sets. Each leg has an upper and a lower motor
// whose angles move toward their targets at the requested speed.
package legsim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// MaxSpeed keeps the robot steady while moving, in degrees per second.
	MaxSpeed     = 125.0
	DefaultSpeed = MaxSpeed / 2
)

var (
	ErrNotConnected = errors.New("legsim: motors not connected")
	ErrOutOfRange   = errors.New("legsim: value out of range")
	ErrSpeed        = errors.New("legsim: speed out of range")
)

// Geometry holds the measured angles of one kind of leg. Zero degrees is folded up.
type Geometry struct {
	UprightUpper float64 // Max upright position
	UprightLower float64
	LiftUpper    float64 // Relative to the upright angles
	LiftLower    float64
}

var (
	FrontGeometry = Geometry{UprightUpper: 80, UprightLower: 120, LiftUpper: 60, LiftLower: 40}
	BackGeometry  = Geometry{UprightUpper: 60, UprightLower: 120}
)

// Leg is one simulated leg.
type Leg struct {
	name      string
	geo       Geometry
	timeScale float64 // Multiplies simulated movement time, 0 moves instantly

	mu        sync.Mutex
	connected bool
	upper     float64
	lower     float64
}

func NewLeg(name string, geo Geometry, timeScale float64) *Leg {
	return &Leg{name: name, geo: geo, timeScale: timeScale}
}

func (l *Leg) Name() string {
	return l.name
}

func (l *Leg) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = true
	return nil
}

func (l *Leg) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	return nil
}

// Angles returns the current upper and lower motor angles.
func (l *Leg) Angles() (upper, lower float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.upper, l.lower
}

// Reset folds the leg up until both motors stall, then zeroes the angles.
func (l *Leg) Reset() error {
	return l.move(0, 0, DefaultSpeed)
}

// StandUp bends the leg to pct percent of its upright position.
func (l *Leg) StandUp(pct, speed float64) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: %g%%", ErrOutOfRange, pct)
	}
	return l.move(l.geo.UprightUpper*pct/100, l.geo.UprightLower*pct/100, speed)
}

// LiftUp raises the paw by pct percent of the lift range, starting from upright.
func (l *Leg) LiftUp(pct, speed float64) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: %g%%", ErrOutOfRange, pct)
	}
	return l.move(l.geo.UprightUpper+l.geo.LiftUpper*pct/100, l.geo.UprightLower+l.geo.LiftLower*pct/100, speed)
}

// move runs both motors so they finish at the same time: the motor with the longer way
// runs at speed, the other one proportionally slower.
func (l *Leg) move(upper, lower, speed float64) error {
	if speed <= 0 || speed > MaxSpeed {
		return fmt.Errorf("%w: %g", ErrSpeed, speed)
	}
	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return fmt.Errorf("%s: %w", l.name, ErrNotConnected)
	}
	longest := math.Max(math.Abs(upper-l.upper), math.Abs(lower-l.lower))
	l.mu.Unlock()

	if l.timeScale > 0 && longest > 0 {
		time.Sleep(time.Duration(longest / speed * l.timeScale * float64(time.Second)))
	}

	l.mu.Lock()
	l.upper, l.lower = upper, lower
	l.mu.Unlock()
	return nil
}

func (l *Leg) String() string {
	upper, lower := l.Angles()
	return fmt.Sprintf("<leg %s upper=%g lower=%g>", l.name, upper, lower)
}
