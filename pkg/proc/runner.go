package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	selinux "github.com/opencontainers/selinux/go-selinux"
	"k8s.io/klog/v2"
)

// Runner executes external tools
type Runner interface {
	// Run executes cmd to completion and returns its exit status.
	// A child killed by a signal reports 128+signal, like a shell would.
	// Returns ErrTimeout if cmd.Timeout elapsed or ctx ended first,
	// and ErrLaunch if the child could not be started.
	Run(ctx context.Context, cmd Command) (int, error)
}

// MaxOutputBytes caps the tool output kept for logging. Media-derived
// output beyond the cap is counted and dropped.
const MaxOutputBytes = 16 * 1024

// ExecRunner implements Runner with os/exec
type ExecRunner struct {
	execCommand   func(ctx context.Context, name string, args ...string) *exec.Cmd
	startCmd      func(cmd *exec.Cmd) error
	labelsEnabled func() bool
	setExecLabel  func(label string) error
}

// NewExecRunner creates a Runner backed by os/exec and SELinux exec labels
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		execCommand:   exec.CommandContext,
		startCmd:      (*exec.Cmd).Start,
		labelsEnabled: selinux.GetEnabled,
		setExecLabel:  selinux.SetExecLabel,
	}
}

// cappedBuffer keeps the first limit bytes written to it and counts the rest
type cappedBuffer struct {
	buf     bytes.Buffer
	limit   int
	dropped int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room < 0 {
		room = 0
	}
	if len(p) <= room {
		return b.buf.Write(p)
	}
	b.buf.Write(p[:room])
	b.dropped += len(p) - room
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if b.dropped == 0 {
		return b.buf.String()
	}
	return fmt.Sprintf("%s... [%d bytes truncated]", b.buf.String(), b.dropped)
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	klog.V(4).Infof("Executing %s (label: %q, timeout: %v)", c, c.SecurityLabel, c.Timeout)

	cmd := r.execCommand(ctx, c.Path, c.Args...)
	// exec.Cmd serialises writes when Stdout and Stderr are the same writer
	output := &cappedBuffer{limit: MaxOutputBytes}
	cmd.Stdout = output
	cmd.Stderr = output

	startTime := time.Now()
	if err := r.start(cmd, c.SecurityLabel); err != nil {
		return -1, fmt.Errorf("%w: %s: %v", ErrLaunch, c.Path, err)
	}

	err := cmd.Wait()
	duration := time.Since(startTime)
	klog.V(5).Infof("%s finished in %v, output: %s", c.Path, duration, output.String())

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("%w after %v: %s: %w", ErrTimeout, duration.Round(time.Millisecond), c.Path, ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				return 128 + int(ws.Signal()), nil
			}
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("%w: %s: %v", ErrLaunch, c.Path, err)
	}

	return 0, nil
}

// start starts cmd, applying label as the exec label of the child.
// The exec label is a per-thread attribute, so labelled starts happen on a
// dedicated goroutine locked to its own thread. The caller's thread never
// carries the label.
func (r *ExecRunner) start(cmd *exec.Cmd, label string) error {
	if label == "" || !r.labelsEnabled() {
		return r.startCmd(cmd)
	}

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		if err := r.setExecLabel(label); err != nil {
			runtime.UnlockOSThread()
			errCh <- fmt.Errorf("failed to set exec label %q: %w", label, err)
			return
		}

		startErr := r.startCmd(cmd)

		if err := r.setExecLabel(""); err != nil {
			// Returning while still locked makes the runtime terminate the
			// thread, so the label cannot leak into a later start.
			klog.Warningf("Failed to reset exec label after starting %s, discarding thread: %v", cmd.Path, err)
			errCh <- startErr
			return
		}
		runtime.UnlockOSThread()
		errCh <- startErr
	}()
	return <-errCh
}
