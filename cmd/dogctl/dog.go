package main

import (
	"context"
	"errors"
	"fmt"

	"ev3-dog/client"
	"ev3-dog/legsim"
	"ev3-dog/task"
)

// Dog drives the back legs locally and the front legs through the front brick.
type Dog struct {
	front *client.Client
	back  *legsim.LegSet
	speed float64
}

func NewDog(front *client.Client, back *legsim.LegSet, speed float64) *Dog {
	return &Dog{front: front, back: back, speed: speed}
}

func (d *Dog) frontLegs() client.Proxy {
	return d.front.Attr("legs")
}

func (d *Dog) Connect(ctx context.Context) error {
	if err := d.front.Connect(ctx); err != nil {
		return fmt.Errorf("front: %w", err)
	}
	return d.back.Connect()
}

// Disconnect folds the dog down before letting the front brick go.
func (d *Dog) Disconnect() error {
	err := d.StandUp(0)
	err = errors.Join(err, d.front.Disconnect(), d.back.Disconnect())
	return err
}

// Reset folds all four legs at once.
func (d *Dog) Reset() error {
	var g task.Group
	g.Add(d.frontLegs().Attr("Reset").Task())
	g.Add(d.back.Reset)
	return g.Run()
}

// StandUp raises front and back to pct percent together.
func (d *Dog) StandUp(pct float64) error {
	var g task.Group
	g.Add(d.frontLegs().Attr("StandUp").Task(pct, d.speed))
	g.Add(func() error { return d.back.StandUp(pct, d.speed) })
	return g.Run()
}

// Sit puts the front all the way up and the back all the way down.
func (d *Dog) Sit() error {
	var g task.Group
	g.Add(d.frontLegs().Attr("StandUp").Task(100.0, d.speed))
	g.Add(func() error { return d.back.StandUp(0, d.speed) })
	return g.Run()
}

// LiftPaw lifts one front paw.
func (d *Dog) LiftPaw(side string, pct float64) error {
	_, err := d.frontLegs().Attr("LiftPaw").Call(side, pct, d.speed)
	return err
}
