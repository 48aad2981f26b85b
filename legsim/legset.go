package legsim

import (
	"fmt"

	"ev3-dog/task"
)

// LegSet is a right and a left leg moved together.
type LegSet struct {
	name  string
	Right *Leg
	Left  *Leg
}

func NewLegSet(name string, geo Geometry, timeScale float64) *LegSet {
	return &LegSet{
		name:  name,
		Right: NewLeg(name+"-right", geo, timeScale),
		Left:  NewLeg(name+"-left", geo, timeScale),
	}
}

// NewFrontLegs returns the leg set mounted on the front brick.
func NewFrontLegs(timeScale float64) *LegSet {
	return NewLegSet("front-legs", FrontGeometry, timeScale)
}

// NewBackLegs returns the leg set driven by the controller brick.
func NewBackLegs(timeScale float64) *LegSet {
	return NewLegSet("back-legs", BackGeometry, timeScale)
}

func (s *LegSet) Name() string {
	return s.name
}

func (s *LegSet) Connect() error {
	if err := s.Right.Connect(); err != nil {
		return err
	}
	return s.Left.Connect()
}

func (s *LegSet) Disconnect() error {
	if err := s.Right.Disconnect(); err != nil {
		return err
	}
	return s.Left.Disconnect()
}

// Reset folds both legs at once.
func (s *LegSet) Reset() error {
	var g task.Group
	g.Add(s.Right.Reset)
	g.Add(s.Left.Reset)
	return g.Run()
}

// StandUp bends both legs to pct percent of upright at once.
func (s *LegSet) StandUp(pct, speed float64) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: %g%%", ErrOutOfRange, pct)
	}
	var g task.Group
	g.Add(func() error { return s.Right.StandUp(pct, speed) })
	g.Add(func() error { return s.Left.StandUp(pct, speed) })
	return g.Run()
}

// LiftPaw lifts the leg on side ("right" or "left").
func (s *LegSet) LiftPaw(side string, pct, speed float64) error {
	switch side {
	case "right":
		return s.Right.LiftUp(pct, speed)
	case "left":
		return s.Left.LiftUp(pct, speed)
	}
	return fmt.Errorf("%w: side %q", ErrOutOfRange, side)
}

// Positions reports the motor angles by leg name.
func (s *LegSet) Positions() map[string][2]float64 {
	out := make(map[string][2]float64, 2)
	for _, leg := range []*Leg{s.Right, s.Left} {
		upper, lower := leg.Angles()
		out[leg.Name()] = [2]float64{upper, lower}
	}
	return out
}

func (s *LegSet) String() string {
	return fmt.Sprintf("<legset %s %s %s>", s.name, s.Right, s.Left)
}
