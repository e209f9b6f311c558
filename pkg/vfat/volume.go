package vfat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/mount"
	"git.srvlab.io/whiskey/vfatvol/pkg/observability"
	"git.srvlab.io/whiskey/vfatvol/pkg/proc"
	"git.srvlab.io/whiskey/vfatvol/pkg/security"
	"git.srvlab.io/whiskey/vfatvol/pkg/utils"
)

// Volume runs check, mount and format operations against FAT block devices
type Volume struct {
	config Config

	runner  proc.Runner
	tasks   proc.TaskRunner
	mounter mount.Mounter

	isMountPoint func(ctx context.Context, path string) (bool, error)

	now    func() time.Time
	access func(path string, mode uint32) error

	metrics *observability.Metrics
	audit   *security.Logger
}

// Option configures a Volume
type Option func(*Volume)

// WithRunner sets the external tool runner
func WithRunner(r proc.Runner) Option {
	return func(v *Volume) { v.runner = r }
}

// WithTaskRunner sets the worker used to bound the mount call
func WithTaskRunner(t proc.TaskRunner) Option {
	return func(v *Volume) { v.tasks = t }
}

// WithMounter sets the mount syscall implementation
func WithMounter(m mount.Mounter) Option {
	return func(v *Volume) { v.mounter = m }
}

// WithMountPointCheck sets the mount table lookup used before a remount
func WithMountPointCheck(check func(ctx context.Context, path string) (bool, error)) Option {
	return func(v *Volume) { v.isMountPoint = check }
}

// WithClock sets the time source used for the mount UTC offset
func WithClock(now func() time.Time) Option {
	return func(v *Volume) { v.now = now }
}

// WithAccess sets the access(2) implementation used by the support probe
func WithAccess(access func(path string, mode uint32) error) Option {
	return func(v *Volume) { v.access = access }
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(v *Volume) { v.metrics = m }
}

// WithAuditLogger sets the security audit logger
func WithAuditLogger(l *security.Logger) Option {
	return func(v *Volume) { v.audit = l }
}

// New creates a Volume from config
func New(config Config, opts ...Option) (*Volume, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v := &Volume{
		config:       config,
		runner:       proc.NewExecRunner(),
		tasks:        proc.NewTaskRunner(),
		mounter:      mount.NewMounter(),
		isMountPoint: mount.IsMountPoint,
		now:          time.Now,
		access:       unix.Access,
		audit:        security.GetLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}

	klog.V(4).Infof("Volume configured: fsck=%s mkfs=%s fstype=%s label=%q check timeout=%v mount timeout=%v",
		config.FsckPath, config.MkfsPath, config.FSType, config.UntrustedContext,
		config.CheckTimeout, config.MountTimeout)
	return v, nil
}

// Config returns the configuration the Volume was built with
func (v *Volume) Config() Config {
	return v.config
}

// validatePaths rejects unsafe paths before any privileged work and audits the attempt
func (v *Volume) validatePaths(op string, paths map[string]string) error {
	for _, param := range []string{"source", "target"} {
		path, ok := paths[param]
		if !ok {
			continue
		}
		err := utils.ValidatePath(path)
		if err == nil {
			continue
		}

		klog.Errorf("Rejecting %s: invalid %s %q: %v", op, param, path, err)
		details := map[string]string{"parameter": param, "value": path, "operation": op}
		switch {
		case errors.Is(err, utils.ErrPathTraversal):
			v.audit.LogSecurityViolation(security.EventPathTraversalAttempt, "Path traversal attempt", details)
		case errors.Is(err, utils.ErrDangerousCharacter):
			v.audit.LogSecurityViolation(security.EventCommandInjectionAttempt, "Command injection attempt", details)
		default:
			v.audit.LogValidationFailure(param, path, err.Error())
		}
		return newError(op, paths["source"], KindInvalid, unix.EINVAL, err)
	}
	return nil
}

// record reports the outcome of op to metrics and returns err unchanged
func (v *Volume) record(op string, start time.Time, err error) error {
	if v.metrics == nil {
		return err
	}
	status := observability.StatusSuccess
	if err != nil {
		status = "error"
		var e *Error
		if errors.As(err, &e) {
			status = e.Kind.String()
		}
	}
	v.metrics.RecordVolumeOp(op, status, time.Since(start))
	return err
}

// outcome maps an operation error to an audit outcome
func outcome(err error) security.EventOutcome {
	if err != nil {
		return security.OutcomeFailure
	}
	return security.OutcomeSuccess
}
