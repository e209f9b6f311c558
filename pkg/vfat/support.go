package vfat

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// IsSupported reports whether both tools are executable and the kernel
// supports the filesystem type. It never fails; problems read as false.
func (v *Volume) IsSupported() bool {
	supported := v.toolExecutable(v.config.MkfsPath) &&
		v.toolExecutable(v.config.FsckPath) &&
		IsFilesystemSupported(v.config.ProcFilesystems, v.config.FSType)

	klog.V(2).Infof("Support probe for %s: %v", v.config.FSType, supported)
	if v.metrics != nil {
		v.metrics.RecordSupportProbe(supported)
	}
	return supported
}

func (v *Volume) toolExecutable(path string) bool {
	if err := v.access(path, unix.X_OK); err != nil {
		klog.V(4).Infof("Tool %s not executable: %v", path, err)
		return false
	}
	return true
}

// IsFilesystemSupported reports whether fsType is listed in procFilesystems.
// Lines look like "nodev\tsysfs" or "\tvfat"; the type is the last field.
func IsFilesystemSupported(procFilesystems, fsType string) bool {
	f, err := os.Open(procFilesystems)
	if err != nil {
		klog.V(4).Infof("Cannot read %s: %v", procFilesystems, err)
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[len(fields)-1] == fsType {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		klog.V(4).Infof("Error reading %s: %v", procFilesystems, err)
	}
	return false
}
