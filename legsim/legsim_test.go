package legsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLegSetStandUp(t *testing.T) {
	legs := NewFrontLegs(0)
	require.ErrorIs(t, legs.StandUp(50, DefaultSpeed), ErrNotConnected)

	require.NoError(t, legs.Connect())
	require.NoError(t, legs.StandUp(50, DefaultSpeed))
	upper, lower := legs.Right.Angles()
	require.Equal(t, 40.0, upper)
	require.Equal(t, 60.0, lower)

	require.NoError(t, legs.Reset())
	upper, lower = legs.Left.Angles()
	require.Zero(t, upper)
	require.Zero(t, lower)
}

func TestLegSetRejectsRanges(t *testing.T) {
	legs := NewBackLegs(0)
	require.NoError(t, legs.Connect())
	require.ErrorIs(t, legs.StandUp(101, DefaultSpeed), ErrOutOfRange)
	require.ErrorIs(t, legs.StandUp(10, MaxSpeed+1), ErrSpeed)
	require.ErrorIs(t, legs.LiftPaw("middle", 10, DefaultSpeed), ErrOutOfRange)
}

func TestLegsMoveTogether(t *testing.T) {
	// 120 degrees at 120 deg/s with a 0.1 scale takes about 100ms per leg.
	legs := NewFrontLegs(0.1)
	require.NoError(t, legs.Connect())

	start := time.Now()
	require.NoError(t, legs.StandUp(100, 120))
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	require.Less(t, elapsed, 190*time.Millisecond, "legs moved one after the other")
}

func TestLiftPawAndString(t *testing.T) {
	legs := NewFrontLegs(0)
	require.NoError(t, legs.Connect())
	require.NoError(t, legs.LiftPaw("left", 50, DefaultSpeed))
	require.Equal(t, [2]float64{110, 140}, legs.Positions()["front-legs-left"])
	require.Equal(t, "<legset front-legs <leg front-legs-right upper=0 lower=0> <leg front-legs-left upper=110 lower=140>>", legs.String())
}
