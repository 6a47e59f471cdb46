package common

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Give the timed executor a task and a timeout.
// Call the execute function from time to time.
// If the function gets called when the timeout has been reached,
// the provided task will execute. If not, the call will do nothing
type TimedExecutor struct {
	name      string
	stopwatch Stopwatch
	task      func(ctx context.Context)
}

// Create a timed executor provided a timeout and a task
func NewTimedExecutor(name string, timeout time.Duration, task func(ctx context.Context)) TimedExecutor {
	return TimedExecutor{name: name, stopwatch: NewStopwatch(timeout), task: task}
}

// Execute the task if the timeout has been reached, else do nothing.
// Returns true when the task ran.
func (te *TimedExecutor) Execute(ctx context.Context) bool {
	stopped, _ := te.stopwatch.Stopped()
	if !stopped {
		return false
	}
	te.stopwatch.Start()
	log.Debug().Str("executor", te.name).Msg("Running timed task")
	te.task(ctx)
	return true
}

// Run calls Execute every cycle until the context is done.
// The first call happens immediately.
func (te *TimedExecutor) Run(ctx context.Context, cycle time.Duration) {
	for {
		te.Execute(ctx)
		select {
		case <-ctx.Done():
			log.Debug().Str("executor", te.name).Msg("Timed executor stopped")
			return
		case <-time.After(cycle):
		}
	}
}
