package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"git.srvlab.io/whiskey/vfatvol/pkg/mount"
	"git.srvlab.io/whiskey/vfatvol/pkg/utils"
	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
)

func newProbeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report whether the tools and kernel support FAT volumes",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			supported := o.volume.IsSupported()
			fmt.Fprintf(cmd.OutOrStdout(), "supported: %v\n", supported)
			if !supported {
				return unix.ENOTSUP
			}
			return nil
		},
	}
}

func newCheckCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <device>",
		Short: "Check and repair the filesystem on a device",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.volume.Check(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: clean\n", args[0])
			return nil
		},
	}
}

// octalMask is a pflag.Value holding a permission mask written in octal
type octalMask uint32

func (m *octalMask) String() string { return fmt.Sprintf("%04o", uint32(*m)) }
func (m *octalMask) Type() string   { return "octal" }

func (m *octalMask) Set(s string) error {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid octal mask %q", s)
	}
	if v > 0777 {
		return fmt.Errorf("mask %q has bits outside 0777", s)
	}
	*m = octalMask(v)
	return nil
}

func newMountCmd(o *options) *cobra.Command {
	var (
		policy vfat.MountPolicy
		mask   = octalMask(0007)
	)

	cmd := &cobra.Command{
		Use:   "mount <device> <target>",
		Short: "Mount a FAT volume",
		Long: `Mount a FAT volume with nodev, nosuid, dirsync and noatime.
A medium that refuses writes is mounted read-only instead.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.checkTarget(args[1]); err != nil {
				return err
			}
			policy.PermMask = uint32(mask)
			if err := o.volume.Mount(cmd.Context(), args[0], args[1], policy); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mounted %s on %s\n", args[0], args[1])
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&policy.ReadOnly, "read-only", false, "Mount read-only")
	f.BoolVar(&policy.Remount, "remount", false, "Change the flags of an existing mount")
	f.BoolVar(&policy.Executable, "executable", false, "Allow executing files from the volume")
	f.IntVar(&policy.OwnerUID, "uid", 0, "Owner of all files")
	f.IntVar(&policy.OwnerGID, "gid", 0, "Group of all files")
	f.Var(&mask, "mask", "Permission mask applied to files and directories (octal)")
	f.BoolVar(&policy.CreateLost, "create-lost", false, "Create the lost-cluster directory at the volume root")
	return cmd
}

func newFormatCmd(o *options) *cobra.Command {
	var sectors uint64

	cmd := &cobra.Command{
		Use:   "format <device>",
		Short: "Create a new FAT filesystem on a device",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.volume.Format(cmd.Context(), args[0], sectors); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "formatted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().Uint64Var(&sectors, "sectors", 0, "Filesystem size in sectors (0 lets the tool use the whole device)")
	return cmd
}

func newStatusCmd(o *options) *cobra.Command {
	var bySource bool

	cmd := &cobra.Command{
		Use:   "status <target|device>",
		Short: "Show the mount table entry for a mount point, or every mount of a device",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.ValidatePath(args[0]); err != nil {
				return invalidError{err}
			}
			out := cmd.OutOrStdout()

			if bySource {
				mounts, err := mount.GetMountsBySource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(mounts) == 0 {
					fmt.Fprintf(out, "%s: not mounted\n", args[0])
					return unix.ENOENT
				}
				for _, m := range mounts {
					printMount(cmd, m)
				}
				return nil
			}

			info, err := mount.GetMountInfo(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintf(out, "%s: not mounted\n", args[0])
				return fmt.Errorf("%w: %v", unix.ENOENT, err)
			}
			printMount(cmd, *info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&bySource, "by-source", false, "Treat the argument as a device and list all of its mounts")
	return cmd
}

func printMount(cmd *cobra.Command, m mount.MountInfo) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s on %s type %s (%s) [%s]\n",
		m.Source, m.Target, m.FSType, m.Options, m.VFSOptions)
}

func newUnmountCmd(o *options) *cobra.Command {
	var lazy bool

	cmd := &cobra.Command{
		Use:   "unmount <target>",
		Short: "Unmount a volume; a target that is not mounted is left alone",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.ValidatePath(args[0]); err != nil {
				return invalidError{err}
			}
			if err := o.checkTarget(args[0]); err != nil {
				return err
			}
			flags := 0
			if lazy {
				flags = unix.MNT_DETACH
			}
			if err := o.mounter.Unmount(cmd.Context(), args[0], flags); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unmounted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&lazy, "lazy", false, "Detach now and clean up once the volume is no longer busy")
	return cmd
}
