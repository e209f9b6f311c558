package e2e

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
)

var _ = Describe("Volume Mount", func() {
	var (
		e      *env
		target string
		policy vfat.MountPolicy
	)

	BeforeEach(func() {
		e = newEnv(newToolbox().config())
		target = GinkgoT().TempDir()
		policy = vfat.MountPolicy{OwnerUID: 1023, OwnerGID: 1023, PermMask: 0007, CreateLost: true}
	})

	It("should mount with the hardened flags and ownership options", func() {
		Expect(e.volume.Mount(context.Background(), testDevice, target, policy)).To(Succeed())

		calls := e.mounter.GetMountCalls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].FSType).To(Equal("vfat"))
		Expect(calls[0].Flags).To(Equal(uintptr(unix.MS_NODEV | unix.MS_NOSUID | unix.MS_DIRSYNC |
			unix.MS_NOATIME | unix.MS_NOEXEC)))
		Expect(calls[0].Data).To(HavePrefix("utf8,uid=1023,gid=1023,fmask=07,dmask=07,shortname=mixed,time_offset="))
		Expect(e.mounter.IsMounted(target)).To(BeTrue())

		By("Creating the lost-cluster directory")
		Expect(filepath.Join(target, vfat.DefaultLostDirName)).To(BeADirectory())
	})

	It("should leave an existing lost-cluster directory alone", func() {
		lost := filepath.Join(target, vfat.DefaultLostDirName)
		Expect(os.Mkdir(lost, 0700)).To(Succeed())

		Expect(e.volume.Mount(context.Background(), testDevice, target, policy)).To(Succeed())

		info, err := os.Stat(lost)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0700)))
	})

	It("should fall back to read-only when the medium refuses writes", func() {
		e.mounter.QueueMountErrors(unix.EROFS)

		Expect(e.volume.Mount(context.Background(), testDevice, target, policy)).To(Succeed())

		calls := e.mounter.GetMountCalls()
		Expect(calls).To(HaveLen(2))
		Expect(calls[0].ReadOnly()).To(BeFalse())
		Expect(calls[1].ReadOnly()).To(BeTrue())
		Expect(calls[1].Data).To(Equal(calls[0].Data))

		Expect(e.scrape()).To(ContainSubstring("vfat_readonly_fallbacks_total 1"))
		Expect(e.audit.GetMetrics().Snapshot().ReadOnlyFallbacks).To(Equal(int64(1)))
	})

	It("should report the read-only retry failing", func() {
		e.mounter.QueueMountErrors(unix.EROFS, unix.EIO)

		err := e.volume.Mount(context.Background(), testDevice, target, policy)
		Expect(vfat.IsKind(err, vfat.KindReadOnlyFallback)).To(BeTrue(), "got %v", err)
		Expect(errors.Is(err, unix.EIO)).To(BeTrue())
	})

	It("should bound a hung mount by the mount timeout", func() {
		c := e.volume.Config()
		c.MountTimeout = 200 * time.Millisecond
		e = newEnv(c)
		e.mounter.SetMountDelay(2 * time.Second)
		policy.CreateLost = false

		start := time.Now()
		err := e.volume.Mount(context.Background(), testDevice, target, policy)
		Expect(errors.Is(err, unix.ETIMEDOUT)).To(BeTrue(), "got %v", err)
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})

	It("should refuse a target outside an absolute clean path", func() {
		err := e.volume.Mount(context.Background(), testDevice, target+"/../etc", policy)
		Expect(errors.Is(err, unix.EINVAL)).To(BeTrue())
		Expect(e.mounter.GetMountCalls()).To(BeEmpty())
	})

	It("should recompute the UTC offset for every mount", func() {
		Expect(e.volume.Mount(context.Background(), testDevice, target, policy)).To(Succeed())

		data := e.mounter.GetMountCalls()[0].Data
		offset := data[strings.LastIndex(data, "=")+1:]
		_, tzOffset := time.Now().Zone()
		Expect(offset).To(Equal(strconv.Itoa(tzOffset / 60)))
	})
})
