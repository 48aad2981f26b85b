package task

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"ev3-dog/telemetry"
)

// Group is an ordered set of tasks joined together. The zero value is ready to use.
type Group struct {
	// Logger receives one debug line per failed task. Nil means slog.Default().
	Logger *slog.Logger

	mu      sync.Mutex
	tasks   []*Task
	started bool
}

// Add appends fn to the group. Once the group has started, the task starts right away.
func (g *Group) Add(fn func() error) *Task {
	t := New(fn)
	g.mu.Lock()
	g.tasks = append(g.tasks, t)
	started := g.started
	g.mu.Unlock()
	if started {
		t.Start()
	}
	return t
}

// Start launches every task in insertion order.
func (g *Group) Start() {
	g.mu.Lock()
	g.started = true
	tasks := append([]*Task(nil), g.tasks...)
	g.mu.Unlock()
	for _, t := range tasks {
		t.Start()
	}
}

// Join waits for every task and returns the first failure to occur, or nil.
func (g *Group) Join() error {
	g.mu.Lock()
	tasks := append([]*Task(nil), g.tasks...)
	g.mu.Unlock()

	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var eg errgroup.Group
	for _, t := range tasks {
		t := t
		eg.Go(func() error {
			err := t.Join()
			if err != nil {
				logger.Debug("task failed", telemetry.LabelTask.L(t.ID()), telemetry.LabelError.L(err))
			}
			return err
		})
	}
	return eg.Wait()
}

// Run starts the group and joins it.
func (g *Group) Run() error {
	g.Start()
	return g.Join()
}

// Len reports how many tasks were added.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}
