// Package task runs local or remote calls concurrently behind a fan-out/fan-in barrier.
//
//	var g task.Group
//	g.Add(front.Attr("StandUp").Task(50.0))
//	g.Add(back.StandUp)
//	err := g.Run() // first failure, after every task finished
package task

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var ErrNotStarted = errors.New("task: joined before start")

var lastID atomic.Uint64

// FaultError is a panic recovered from a task's function.
type FaultError struct {
	TaskID uint64
	Value  any
	Stack  []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.TaskID, e.Value)
}

// Task runs one function in its own goroutine.
type Task struct {
	id    uint64
	fn    func() error
	once  sync.Once
	start atomic.Bool
	done  chan struct{}
	err   error // Written before done is closed
}

func New(fn func() error) *Task {
	return &Task{
		id:   lastID.Add(1),
		fn:   fn,
		done: make(chan struct{}),
	}
}

func (t *Task) ID() uint64 {
	return t.id
}

// Start launches the task. Later calls do nothing.
func (t *Task) Start() {
	t.once.Do(func() {
		t.start.Store(true)
		go t.run()
	})
}

func (t *Task) run() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.err = &FaultError{TaskID: t.id, Value: r, Stack: debug.Stack()}
		}
	}()
	t.err = t.fn()
}

// Done is closed when the task's function returned or panicked.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Join blocks until the task finished and returns its outcome.
func (t *Task) Join() error {
	if !t.start.Load() {
		return ErrNotStarted
	}
	<-t.done
	return t.err
}
