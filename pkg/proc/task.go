package proc

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"
)

// Task is a unit of privileged work
type Task func() error

// TaskRunner runs tasks in an isolated, deadline-bounded worker
type TaskRunner interface {
	// RunTask runs task and returns its error.
	// Returns ErrTimeout if the deadline passes before task returns, and
	// ErrLaunch if the worker could not be started or died abnormally.
	RunTask(ctx context.Context, timeout time.Duration, task Task) error
}

// GoroutineRunner runs each task on its own goroutine.
// A task that outlives its deadline is abandoned; its result is discarded.
type GoroutineRunner struct{}

// NewTaskRunner creates the default TaskRunner
func NewTaskRunner() TaskRunner {
	return GoroutineRunner{}
}

// RunTask implements TaskRunner
func (GoroutineRunner) RunTask(ctx context.Context, timeout time.Duration, task Task) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: context already done: %w", ErrLaunch, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Buffered so an abandoned worker can still deliver and exit.
	resultCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				klog.Errorf("Task panicked: %v", r)
				resultCh <- fmt.Errorf("%w: task panicked: %v", ErrLaunch, r)
			}
		}()
		resultCh <- task()
	}()

	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		klog.Warningf("Abandoning task after %v: %v", timeout, ctx.Err())
		return fmt.Errorf("%w after %v: %w", ErrTimeout, timeout, ctx.Err())
	}
}
