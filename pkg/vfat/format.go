package vfat

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/proc"
	"git.srvlab.io/whiskey/vfatvol/pkg/security"
)

// formatCommand builds the format tool invocation. A zero sector count lets
// the tool size the filesystem from the device.
func (v *Volume) formatCommand(source string, numSectors uint64) proc.Command {
	args := []string{"-O", "android", "-A"}
	if numSectors != 0 {
		args = append(args, "-s", strconv.FormatUint(numSectors, 10))
	}
	args = append(args, source)

	// Format targets a trusted device: no label, no deadline
	return proc.Command{Path: v.config.MkfsPath, Args: args}
}

// Format creates a fresh FAT filesystem on source
func (v *Volume) Format(ctx context.Context, source string, numSectors uint64) error {
	if err := v.validatePaths("format", map[string]string{"source": source}); err != nil {
		return err
	}

	start := time.Now()
	v.audit.LogFormat(source, numSectors, security.OutcomeUnknown, nil, 0)

	cmd := v.formatCommand(source, numSectors)
	klog.V(4).Infof("Formatting: %s", cmd)

	var err error
	status, runErr := v.runner.Run(ctx, cmd)
	switch {
	case errors.Is(runErr, proc.ErrTimeout):
		klog.Errorf("Filesystem format of %s abandoned: %v", source, runErr)
		err = newError("format", source, KindTimeout, unix.ETIMEDOUT, runErr)
	case runErr != nil:
		klog.Errorf("Filesystem format of %s failed due to launch error: %v", source, runErr)
		err = newError("format", source, KindLaunch, unix.EIO, runErr)
	case status != 0:
		klog.Errorf("Format of %s failed (unknown exit code %d)", source, status)
		e := newError("format", source, KindTool, unix.EIO, nil)
		e.Code = status
		err = e
	default:
		klog.V(2).Infof("Filesystem %s formatted OK", source)
	}

	v.audit.LogFormat(source, numSectors, outcome(err), err, time.Since(start))
	return v.record("format", start, err)
}
