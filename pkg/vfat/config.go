package vfat

import (
	"fmt"
	"path/filepath"
	"time"
)

const (
	// DefaultFsckPath is the Android location of the FAT check tool
	DefaultFsckPath = "/system/bin/fsck_msdos"

	// DefaultMkfsPath is the Android location of the FAT format tool
	DefaultMkfsPath = "/system/bin/newfs_msdos"

	// DefaultFSType is the kernel filesystem type name
	DefaultFSType = "vfat"

	// DefaultUntrustedContext is the SELinux label for tools touching untrusted media
	DefaultUntrustedContext = "u:r:fsck_untrusted:s0"

	// DefaultCheckTimeout bounds one pass of the check tool
	DefaultCheckTimeout = 45 * time.Second

	// DefaultMountTimeout bounds the mount worker
	DefaultMountTimeout = 20 * time.Second

	// DefaultProcFilesystems lists filesystems the kernel supports
	DefaultProcFilesystems = "/proc/filesystems"

	// DefaultLostDirName is the lost-cluster recovery directory at the volume root
	DefaultLostDirName = "LOST.DIR"
)

// Config holds the immutable settings a Volume is built from
type Config struct {
	// FsckPath is the absolute path of the check tool
	FsckPath string `koanf:"fsckPath" json:"fsckPath" yaml:"fsckPath"`

	// MkfsPath is the absolute path of the format tool
	MkfsPath string `koanf:"mkfsPath" json:"mkfsPath" yaml:"mkfsPath"`

	// FSType is passed to mount(2) and looked up in ProcFilesystems
	FSType string `koanf:"fsType" json:"fsType" yaml:"fsType"`

	// UntrustedContext is the exec label for the check tool. Empty disables labelling.
	UntrustedContext string `koanf:"untrustedContext" json:"untrustedContext" yaml:"untrustedContext"`

	CheckTimeout time.Duration `koanf:"checkTimeout" json:"checkTimeout" yaml:"checkTimeout"`
	MountTimeout time.Duration `koanf:"mountTimeout" json:"mountTimeout" yaml:"mountTimeout"`

	ProcFilesystems string `koanf:"procFilesystems" json:"procFilesystems" yaml:"procFilesystems"`
	LostDirName     string `koanf:"lostDirName" json:"lostDirName" yaml:"lostDirName"`
}

// DefaultConfig returns the settings used on Android devices
func DefaultConfig() Config {
	return Config{
		FsckPath:         DefaultFsckPath,
		MkfsPath:         DefaultMkfsPath,
		FSType:           DefaultFSType,
		UntrustedContext: DefaultUntrustedContext,
		CheckTimeout:     DefaultCheckTimeout,
		MountTimeout:     DefaultMountTimeout,
		ProcFilesystems:  DefaultProcFilesystems,
		LostDirName:      DefaultLostDirName,
	}
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if !filepath.IsAbs(c.FsckPath) {
		return fmt.Errorf("fsckPath must be absolute: %q", c.FsckPath)
	}
	if !filepath.IsAbs(c.MkfsPath) {
		return fmt.Errorf("mkfsPath must be absolute: %q", c.MkfsPath)
	}
	if c.FSType == "" {
		return fmt.Errorf("fsType cannot be empty")
	}
	if c.CheckTimeout <= 0 {
		return fmt.Errorf("checkTimeout must be positive: %v", c.CheckTimeout)
	}
	if c.MountTimeout <= 0 {
		return fmt.Errorf("mountTimeout must be positive: %v", c.MountTimeout)
	}
	if !filepath.IsAbs(c.ProcFilesystems) {
		return fmt.Errorf("procFilesystems must be absolute: %q", c.ProcFilesystems)
	}
	if c.LostDirName == "" || c.LostDirName != filepath.Base(c.LostDirName) ||
		c.LostDirName == "." || c.LostDirName == ".." {
		return fmt.Errorf("lostDirName must be a single path element: %q", c.LostDirName)
	}
	return nil
}
