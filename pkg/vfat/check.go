package vfat

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/proc"
	"git.srvlab.io/whiskey/vfatvol/pkg/security"
)

// MaxRechecks is how many times the check tool is rerun after it reports
// that it modified the filesystem. The tool runs at most MaxRechecks+1 times.
const MaxRechecks = 3

// Check tool exit statuses
const (
	checkOK         = 0
	checkIncomplete = 1
	checkNotFAT     = 2
	checkModified   = 4
	checkNoFS       = 8
)

// errRecheck marks a pass that modified the filesystem
var errRecheck = errors.New("filesystem modified")

func (v *Volume) checkCommand(source string) proc.Command {
	return proc.Command{
		Path:          v.config.FsckPath,
		Args:          []string{"-p", "-f", "-y", source},
		SecurityLabel: v.config.UntrustedContext,
		Timeout:       v.config.CheckTimeout,
	}
}

// Check runs the check tool against source in auto-repair mode.
// A pass that modified the filesystem is followed by another pass, up to
// MaxRechecks times. Passes never overlap.
func (v *Volume) Check(ctx context.Context, source string) error {
	if err := v.validatePaths("check", map[string]string{"source": source}); err != nil {
		return err
	}

	start := time.Now()
	v.audit.LogCheck(source, 0, security.OutcomeUnknown, nil, 0)

	cmd := v.checkCommand(source)
	passes := 0
	operation := func() error {
		passes++
		klog.V(4).Infof("Filesystem check pass %d: %s", passes, cmd)

		status, err := v.runner.Run(ctx, cmd)
		if err != nil {
			return backoff.Permanent(err)
		}
		if status == checkModified {
			if passes <= MaxRechecks {
				klog.Warningf("Filesystem %s modified - rechecking (pass %d)", source, passes+1)
			}
			return errRecheck
		}
		return backoff.Permanent(interpretCheck(source, status))
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, MaxRechecks))
	err = checkError(source, err)

	if err == nil {
		klog.V(2).Infof("Filesystem check of %s completed OK after %d pass(es)", source, passes)
	}
	if v.metrics != nil {
		v.metrics.RecordCheckPasses(passes)
	}
	v.audit.LogCheck(source, passes, outcome(err), err, time.Since(start))
	return v.record("check", start, err)
}

// interpretCheck maps a check tool exit status other than "modified" to an error
func interpretCheck(source string, status int) error {
	switch status {
	case checkOK:
		return nil
	case checkIncomplete:
		klog.Errorf("Failed to check filesystem %s", source)
		return toolError(source, status, unix.EIO)
	case checkNotFAT:
		klog.Errorf("Filesystem check of %s failed (not a FAT filesystem)", source)
		return toolError(source, status, unix.ENODATA)
	case checkNoFS:
		klog.Errorf("Filesystem check of %s failed (no filesystem)", source)
		return toolError(source, status, unix.ENODATA)
	default:
		klog.Errorf("Filesystem check of %s failed (unknown exit code %d)", source, status)
		return toolError(source, status, unix.EIO)
	}
}

func toolError(source string, status int, errno unix.Errno) *Error {
	e := newError("check", source, KindTool, errno, nil)
	e.Code = status
	return e
}

// checkError converts runner and retry failures to *Error
func checkError(source string, err error) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return e
	case errors.Is(err, errRecheck):
		klog.Errorf("Failing check of %s after too many rechecks", source)
		return newError("check", source, KindRecheckExhausted, unix.EIO, err)
	case errors.Is(err, proc.ErrTimeout):
		klog.Errorf("Filesystem check of %s timed out", source)
		return newError("check", source, KindTimeout, unix.ETIMEDOUT, err)
	default:
		klog.Errorf("Filesystem check of %s failed due to launch error: %v", source, err)
		return newError("check", source, KindLaunch, unix.EIO, err)
	}
}
