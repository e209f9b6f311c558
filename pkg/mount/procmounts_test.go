package mount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moby/sys/mountinfo"
)

func TestConvertMobyMount(t *testing.T) {
	info := &mountinfo.Info{
		Source:     "/dev/block/vold/public:179,1",
		Mountpoint: "/mnt/media_rw/1234-ABCD",
		FSType:     "vfat",
		Options:    "rw,nosuid,nodev,noexec,noatime",
		VFSOptions: "rw,uid=1023,gid=1023,fmask=0007,dmask=0007,time_offset=-300",
	}

	got := ConvertMobyMount(info)

	if got.Source != info.Source {
		t.Errorf("Source: expected %s, got %s", info.Source, got.Source)
	}
	if got.Target != info.Mountpoint {
		t.Errorf("Target: expected %s, got %s", info.Mountpoint, got.Target)
	}
	if got.FSType != "vfat" {
		t.Errorf("FSType: expected vfat, got %s", got.FSType)
	}
	if got.Options != info.Options {
		t.Errorf("Options: expected %s, got %s", info.Options, got.Options)
	}
	if got.VFSOptions != info.VFSOptions {
		t.Errorf("VFSOptions: expected %s, got %s", info.VFSOptions, got.VFSOptions)
	}
}

func TestWithTimeout_ReturnsResult(t *testing.T) {
	got, err := withTimeout(context.Background(), "test", func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
}

func TestWithTimeout_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)

	_, err := withTimeout(ctx, "procmounts parsing", func() (bool, error) {
		<-release
		return true, nil
	})
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestIsMountPoint_TempDir(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mounted, err := IsMountPoint(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mounted {
		t.Error("A fresh temp directory should not be a mount point")
	}
}

func TestGetMountInfo_NotFound(t *testing.T) {
	_, err := GetMountInfo(context.Background(), t.TempDir())
	if err == nil {
		t.Error("Expected error for path that is not a mount point")
	}
}
