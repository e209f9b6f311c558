package vfat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/proc"
	"git.srvlab.io/whiskey/vfatvol/pkg/security"
)

// lostDirMode is the permission LOST.DIR is created with
const lostDirMode = 0755

// MountPolicy describes how a volume is mounted. It is passed by value.
type MountPolicy struct {
	ReadOnly   bool
	Remount    bool
	Executable bool

	OwnerUID int
	OwnerGID int

	// PermMask is applied as both fmask and dmask
	PermMask uint32

	// CreateLost creates the lost-cluster recovery directory after mounting
	CreateLost bool
}

// BuildMountFlags returns the mount(2) flags for policy
func BuildMountFlags(policy MountPolicy) uintptr {
	flags := uintptr(unix.MS_NODEV | unix.MS_NOSUID | unix.MS_DIRSYNC | unix.MS_NOATIME)
	if !policy.Executable {
		flags |= unix.MS_NOEXEC
	}
	if policy.ReadOnly {
		flags |= unix.MS_RDONLY
	}
	if policy.Remount {
		flags |= unix.MS_REMOUNT
	}
	return flags
}

// BuildMountOptions returns the vfat mount data string for policy.
// The UTC offset lets the driver convert on-disk local timestamps; it is
// fixed for the life of the mount.
func BuildMountOptions(policy MountPolicy, utcOffsetMinutes int) string {
	return fmt.Sprintf("utf8,uid=%d,gid=%d,fmask=%#o,dmask=%#o,shortname=mixed,time_offset=%d",
		policy.OwnerUID, policy.OwnerGID, policy.PermMask, policy.PermMask, utcOffsetMinutes)
}

// Mount mounts source on target according to policy.
// The mount runs in a worker bounded by the configured mount timeout. A
// medium that refuses writes is retried once read-only.
func (v *Volume) Mount(ctx context.Context, source, target string, policy MountPolicy) error {
	if err := v.validatePaths("mount", map[string]string{"source": source, "target": target}); err != nil {
		return err
	}

	start := time.Now()
	v.audit.LogMount(source, target, policy.ReadOnly, security.OutcomeUnknown, nil, 0)

	data := BuildMountOptions(policy, utcOffsetMinutes(v.now()))
	flags := BuildMountFlags(policy)
	klog.V(4).Infof("Mounting %s on %s (flags: %#x, options: %s)", source, target, flags, data)

	// Written by the worker, which may outlive this call after a timeout
	var fellBack atomic.Bool
	checkCtx, cancel := context.WithTimeout(ctx, v.config.MountTimeout)
	defer cancel()
	err := v.tasks.RunTask(ctx, v.config.MountTimeout, func() error {
		if policy.Remount {
			v.warnIfNotMounted(checkCtx, target)
		}
		ro, err := v.doMount(source, target, flags, data, policy.CreateLost)
		fellBack.Store(ro)
		return err
	})
	err = mountError(source, err)

	readOnly := policy.ReadOnly
	if err == nil {
		readOnly = readOnly || fellBack.Load()
		klog.V(2).Infof("Mounted %s on %s (read-only: %v)", source, target, readOnly)
	} else {
		klog.Errorf("Failed to mount %s on %s: %v", source, target, err)
	}
	v.audit.LogMount(source, target, readOnly, outcome(err), err, time.Since(start))
	return v.record("mount", start, err)
}

// warnIfNotMounted logs a remount of a target that is not a mount point.
// The mount syscall itself reports the failure.
func (v *Volume) warnIfNotMounted(ctx context.Context, target string) {
	mounted, err := v.isMountPoint(ctx, target)
	if err != nil {
		klog.V(4).Infof("Could not determine mount state of %s: %v", target, err)
	} else if !mounted {
		klog.Warningf("Remount requested but %s is not mounted", target)
	}
}

// doMount performs the mount with the read-only fallback and prepares the
// recovery directory. It reports whether the fallback was taken.
func (v *Volume) doMount(source, target string, flags uintptr, data string, createLost bool) (bool, error) {
	fallback := false
	err := v.mounter.Mount(source, target, v.config.FSType, flags, data)
	if errors.Is(err, unix.EROFS) && flags&unix.MS_RDONLY == 0 {
		klog.Errorf("%s appears to be a read only filesystem - retrying mount RO", source)
		v.audit.LogReadOnlyFallback(source, target)
		if v.metrics != nil {
			v.metrics.RecordReadOnlyFallback()
		}

		fallback = true
		if err = v.mounter.Mount(source, target, v.config.FSType, flags|unix.MS_RDONLY, data); err != nil {
			return fallback, newError("mount", source, KindReadOnlyFallback, Errno(err), err)
		}
	} else if err != nil {
		return fallback, newError("mount", source, KindMount, Errno(err), err)
	}

	if createLost {
		v.ensureLostDir(target)
	}
	return fallback, nil
}

// ensureLostDir creates the recovery directory at the volume root if absent.
// The check tool does not create it. Failure is logged and not returned.
func (v *Volume) ensureLostDir(target string) {
	lostPath := filepath.Join(target, v.config.LostDirName)
	if _, err := os.Lstat(lostPath); err == nil {
		return
	}

	err := os.Mkdir(lostPath, lostDirMode)
	if err != nil {
		klog.Errorf("Unable to create %s: %v", lostPath, err)
	} else {
		klog.V(4).Infof("Created %s", lostPath)
	}
	if v.metrics != nil {
		v.metrics.RecordLostDir(err)
	}
}

// mountError converts task runner failures to *Error
func mountError(source string, err error) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return e
	case errors.Is(err, proc.ErrTimeout):
		return newError("mount", source, KindTimeout, unix.ETIMEDOUT, err)
	case errors.Is(err, proc.ErrLaunch):
		return newError("mount", source, KindLaunch, unix.EIO, err)
	default:
		return newError("mount", source, KindMount, Errno(err), err)
	}
}
