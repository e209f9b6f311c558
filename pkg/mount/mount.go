package mount

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// Mounter performs mount(2) and umount(2) calls
type Mounter interface {
	// Mount attaches source to target. Errors wrap the unix.Errno from the kernel.
	Mount(source, target, fsType string, flags uintptr, data string) error

	// Unmount detaches target. It is a no-op when target is not a mount point.
	Unmount(ctx context.Context, target string, flags int) error
}

// mounter implements Mounter with direct system calls
type mounter struct {
	mount        func(source, target, fsType string, flags uintptr, data string) error
	unmount      func(target string, flags int) error
	isMountPoint func(ctx context.Context, path string) (bool, error)
}

// NewMounter creates a new syscall-backed mounter
func NewMounter() Mounter {
	return &mounter{
		mount:        unix.Mount,
		unmount:      unix.Unmount,
		isMountPoint: IsMountPoint,
	}
}

// Mount attaches source to target with the given flags and filesystem data
func (m *mounter) Mount(source, target, fsType string, flags uintptr, data string) error {
	klog.V(4).Infof("mount(%s, %s, %s, %#x, %q)", source, target, fsType, flags, data)

	if err := m.mount(source, target, fsType, flags, data); err != nil {
		return fmt.Errorf("mount %s on %s: %w", source, target, err)
	}

	klog.V(4).Infof("Mounted %s on %s", source, target)
	return nil
}

// Unmount detaches target
func (m *mounter) Unmount(ctx context.Context, target string, flags int) error {
	klog.V(2).Infof("Unmounting %s", target)

	mounted, err := m.isMountPoint(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to check if mounted: %w", err)
	}

	if !mounted {
		klog.V(2).Infof("Path %s is not mounted, nothing to unmount", target)
		return nil
	}

	if err := m.unmount(target, flags); err != nil {
		return fmt.Errorf("umount %s: %w", target, err)
	}

	klog.V(2).Infof("Successfully unmounted %s", target)
	return nil
}
