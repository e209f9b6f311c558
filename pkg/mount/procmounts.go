package mount

import (
	"context"
	"fmt"
	"time"

	"github.com/moby/sys/mountinfo"
	"k8s.io/klog/v2"
)

const (
	// ProcmountsTimeout is the maximum time to wait for /proc/self/mountinfo parsing
	ProcmountsTimeout = 10 * time.Second
)

// MountInfo represents a single mount point entry from /proc/self/mountinfo
type MountInfo struct {
	// Source is the device or source path
	Source string

	// Target is the mount point path
	Target string

	// FSType is the filesystem type
	FSType string

	// Options are the per-mount options (rw, noexec, ...)
	Options string

	// VFSOptions are the per-superblock options (uid=, fmask=, time_offset=, ...)
	VFSOptions string
}

// ConvertMobyMount converts moby/sys/mountinfo.Info to our MountInfo type
func ConvertMobyMount(m *mountinfo.Info) MountInfo {
	return MountInfo{
		Source:     m.Source,
		Target:     m.Mountpoint,
		FSType:     m.FSType,
		Options:    m.Options,
		VFSOptions: m.VFSOptions,
	}
}

// withTimeout runs fn on a goroutine and gives up after ProcmountsTimeout.
// Reading mountinfo can hang behind a wedged filesystem.
func withTimeout[T any](ctx context.Context, what string, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, ProcmountsTimeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := fn()
		resultCh <- result{value: value, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%s timed out after %v: %w", what, ProcmountsTimeout, ctx.Err())
	}
}

// IsMountPoint reports whether path is a mount point
func IsMountPoint(ctx context.Context, path string) (bool, error) {
	klog.V(4).Infof("Checking if %s is a mount point", path)
	return withTimeout(ctx, "mount point check", func() (bool, error) {
		return mountinfo.Mounted(path)
	})
}

// GetMountInfo returns the mount table entry for target
func GetMountInfo(ctx context.Context, target string) (*MountInfo, error) {
	mounts, err := withTimeout(ctx, "procmounts parsing", func() ([]*mountinfo.Info, error) {
		return mountinfo.GetMounts(mountinfo.SingleEntryFilter(target))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get mounts: %w", err)
	}

	if len(mounts) == 0 {
		return nil, fmt.Errorf("mount point not found: %s", target)
	}

	// The last entry is the one visible at target when mounts are stacked.
	info := ConvertMobyMount(mounts[len(mounts)-1])
	klog.V(4).Infof("Found mount info for %s: source=%s, fstype=%s, options=%s",
		target, info.Source, info.FSType, info.Options)
	return &info, nil
}

// GetMountsBySource returns all mount table entries whose source is device
func GetMountsBySource(ctx context.Context, device string) ([]MountInfo, error) {
	mounts, err := withTimeout(ctx, "procmounts parsing", func() ([]*mountinfo.Info, error) {
		return mountinfo.GetMounts(func(m *mountinfo.Info) (skip, stop bool) {
			return m.Source != device, false
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get mounts: %w", err)
	}

	result := make([]MountInfo, 0, len(mounts))
	for _, m := range mounts {
		result = append(result, ConvertMobyMount(m))
	}
	klog.V(5).Infof("Found %d mounts of %s", len(result), device)
	return result, nil
}
