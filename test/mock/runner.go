package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.srvlab.io/whiskey/vfatvol/pkg/proc"
)

// MockRunner is a mock implementation of proc.Runner for testing.
// It returns scripted exit statuses and records every command.
type MockRunner struct {
	mu sync.Mutex

	// Exit statuses consumed one per Run call
	statuses []int
	// Returned once the script is exhausted
	defaultStatus int

	runErr   error
	injector *ErrorInjector
	timing   *TimingSimulator

	calls []proc.Command
}

// NewMockRunner creates a runner that exits 0 unless scripted otherwise
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// NewMockRunnerFromConfig creates a runner with error injection and timing
// simulation driven by config
func NewMockRunnerFromConfig(config MockConfig) *MockRunner {
	r := NewMockRunner()
	r.injector = NewErrorInjector(config)
	r.timing = NewTimingSimulator(config)
	return r
}

// Run implements proc.Runner
func (r *MockRunner) Run(ctx context.Context, cmd proc.Command) (int, error) {
	r.mu.Lock()
	// Copy so later mutation by the caller cannot rewrite history
	recorded := cmd
	recorded.Args = append([]string(nil), cmd.Args...)
	r.calls = append(r.calls, recorded)

	status := r.defaultStatus
	if len(r.statuses) > 0 {
		status = r.statuses[0]
		r.statuses = r.statuses[1:]
	}
	err := r.runErr
	if err == nil && r.injector != nil {
		err = r.injector.ShouldFailRun(cmd.Path)
	}
	timing := r.timing
	r.mu.Unlock()

	if err != nil {
		return -1, err
	}

	if timing != nil {
		runCtx := ctx
		if cmd.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
			defer cancel()
		}
		if ctxErr := timing.SimulateTool(runCtx); ctxErr != nil {
			return -1, fmt.Errorf("%w: %s: %w", proc.ErrTimeout, cmd.Path, ctxErr)
		}
	}

	return status, nil
}

// Script sets the exit statuses returned by successive Run calls
func (r *MockRunner) Script(statuses ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, statuses...)
}

// SetDefaultStatus sets the exit status returned once the script runs out
func (r *MockRunner) SetDefaultStatus(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultStatus = status
}

// SetRunError makes every Run call fail with err
func (r *MockRunner) SetRunError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runErr = err
}

// Calls returns the commands run so far
func (r *MockRunner) Calls() []proc.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]proc.Command, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Reset clears all state for test isolation
func (r *MockRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = nil
	r.defaultStatus = 0
	r.runErr = nil
	r.calls = nil
	if r.injector != nil {
		r.injector.Reset()
	}
}

// TaskRunnerFunc adapts a function to proc.TaskRunner
type TaskRunnerFunc func(ctx context.Context, timeout time.Duration, task proc.Task) error

// RunTask implements proc.TaskRunner
func (f TaskRunnerFunc) RunTask(ctx context.Context, timeout time.Duration, task proc.Task) error {
	return f(ctx, timeout, task)
}

// FailingTaskRunner returns a task runner that never starts the task
func FailingTaskRunner(err error) proc.TaskRunner {
	return TaskRunnerFunc(func(context.Context, time.Duration, proc.Task) error {
		return err
	})
}

// InlineTaskRunner runs tasks on the calling goroutine and records timeouts
type InlineTaskRunner struct {
	mu       sync.Mutex
	timeouts []time.Duration
}

// RunTask implements proc.TaskRunner
func (r *InlineTaskRunner) RunTask(ctx context.Context, timeout time.Duration, task proc.Task) error {
	r.mu.Lock()
	r.timeouts = append(r.timeouts, timeout)
	r.mu.Unlock()
	return task()
}

// Timeouts returns the timeout passed to each RunTask call
func (r *InlineTaskRunner) Timeouts() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.timeouts...)
}
