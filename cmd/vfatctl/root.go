package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/config"
	"git.srvlab.io/whiskey/vfatvol/pkg/mount"
	"git.srvlab.io/whiskey/vfatvol/pkg/observability"
	"git.srvlab.io/whiskey/vfatvol/pkg/utils"
	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
)

// options is shared by every subcommand
type options struct {
	configPath  string
	metricsFile string
	mountRoot   string

	fsckPath         string
	mkfsPath         string
	untrustedContext string
	checkTimeout     time.Duration
	mountTimeout     time.Duration

	out     io.Writer
	metrics *observability.Metrics
	volume  *vfat.Volume
	mounter mount.Mounter

	// newVolume is replaced in tests
	newVolume func(vfat.Config, ...vfat.Option) (*vfat.Volume, error)
}

// invalidError marks bad command-line input or configuration, reported as EINVAL
type invalidError struct{ err error }

func (e invalidError) Error() string { return e.err.Error() }
func (e invalidError) Unwrap() error { return e.err }

// exactArgs is cobra.ExactArgs with the failure reported as invalid input
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return invalidError{err}
		}
		return nil
	}
}

// overrides maps config keys to the flags that can set them
var overrides = []struct {
	flag string
	key  string
}{
	{"fsck-path", "fsckPath"},
	{"mkfs-path", "mkfsPath"},
	{"untrusted-context", "untrustedContext"},
	{"check-timeout", "checkTimeout"},
	{"mount-timeout", "mountTimeout"},
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "vfatctl",
		Short:         "Check, mount and format FAT volumes on removable media",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return invalidError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Path to a YAML or JSON config file")
	pf.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the command runs")
	pf.StringVar(&o.mountRoot, "mount-root", "", "Refuse mount and unmount targets outside this directory")
	pf.StringVar(&o.fsckPath, "fsck-path", vfat.DefaultFsckPath, "Path of the FAT check tool")
	pf.StringVar(&o.mkfsPath, "mkfs-path", vfat.DefaultMkfsPath, "Path of the FAT format tool")
	pf.StringVar(&o.untrustedContext, "untrusted-context", vfat.DefaultUntrustedContext,
		"SELinux label the check tool runs under (empty disables labelling)")
	pf.DurationVar(&o.checkTimeout, "check-timeout", vfat.DefaultCheckTimeout, "Timeout for one check pass")
	pf.DurationVar(&o.mountTimeout, "mount-timeout", vfat.DefaultMountTimeout, "Timeout for the mount worker")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	pf.AddGoFlagSet(klogFlags)

	root.AddCommand(
		newProbeCmd(o),
		newCheckCmd(o),
		newMountCmd(o),
		newFormatCmd(o),
		newStatusCmd(o),
		newUnmountCmd(o),
	)
	return root
}

// setup loads configuration and builds the Volume. Flags that were set
// explicitly take precedence over the config file.
func (o *options) setup(cmd *cobra.Command) error {
	loader, err := config.NewLoader()
	if err != nil {
		return invalidError{err}
	}
	if o.configPath != "" {
		if err := loader.LoadFile(o.configPath); err != nil {
			return invalidError{err}
		}
	}

	values := map[string]interface{}{
		"fsckPath":         o.fsckPath,
		"mkfsPath":         o.mkfsPath,
		"untrustedContext": o.untrustedContext,
		"checkTimeout":     o.checkTimeout,
		"mountTimeout":     o.mountTimeout,
	}
	for _, ov := range overrides {
		if !cmd.Flags().Changed(ov.flag) {
			continue
		}
		if err := loader.Set(ov.key, values[ov.key]); err != nil {
			return invalidError{fmt.Errorf("failed to apply --%s: %w", ov.flag, err)}
		}
	}

	c, err := loader.Config()
	if err != nil {
		return invalidError{err}
	}
	klog.V(5).Infof("Effective config:\n%s", loader.Print())

	if o.metricsFile != "" {
		o.metrics = observability.NewMetrics()
	}
	o.volume, err = o.newVolume(c, vfat.WithMetrics(o.metrics))
	if err != nil {
		return invalidError{err}
	}
	return nil
}

// checkTarget applies --mount-root to a mount or unmount target
func (o *options) checkTarget(target string) error {
	if o.mountRoot == "" {
		return nil
	}
	if err := utils.ValidatePathWithBase(target, o.mountRoot); err != nil {
		return invalidError{err}
	}
	return nil
}

// exitCode maps err to the process exit status: the errno value of the failure
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ie invalidError
	if errors.As(err, &ie) {
		return int(unix.EINVAL)
	}
	return int(vfat.Errno(err))
}

// Execute runs the command line in args and returns the exit status
func Execute(ctx context.Context, args []string) int {
	o := &options{out: os.Stdout, mounter: mount.NewMounter(), newVolume: vfat.New}
	return execute(ctx, o, args)
}

func execute(ctx context.Context, o *options, args []string) int {
	root := newRootCmd(o)
	root.SetArgs(args)
	root.SetOut(o.out)

	err := root.ExecuteContext(ctx)
	if o.metrics != nil && o.metricsFile != "" {
		if werr := o.metrics.WriteTextfile(o.metricsFile); werr != nil {
			klog.Errorf("Failed to write metrics to %s: %v", o.metricsFile, werr)
		}
	}
	if err != nil {
		klog.Errorf("%v", err)
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return exitCode(err)
}
