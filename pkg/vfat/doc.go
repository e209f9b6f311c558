// Package vfat drives the lifecycle of a FAT filesystem volume on a block
// device: probing tool and kernel support, checking and repairing the
// filesystem, mounting it with policy-driven options, and formatting it.
//
// Media handled here is untrusted. The check tool runs under a restricted
// security label with a deadline, and the mount runs in a deadline-bounded
// worker so a wedged device cannot hang the caller.
//
// Every failing operation returns a *Error carrying a Kind and a POSIX errno:
//
//	err := v.Check(ctx, "/dev/block/vold/public:179,1")
//	if errors.Is(err, unix.ENODATA) {
//	    // not a FAT filesystem
//	}
//
// A Volume holds configuration and collaborators only. It keeps no state
// between calls, so one Volume may serve many devices concurrently. Callers
// must not run two operations against the same device at once.
package vfat
