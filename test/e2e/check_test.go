package e2e

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
)

var _ = Describe("Filesystem Check", func() {
	var (
		tb  *toolbox
		ctx context.Context
	)

	BeforeEach(func() {
		tb = newToolbox()
		ctx = context.Background()
	})

	It("should accept a clean filesystem after one pass", func() {
		tb.exitWith("fsck_msdos", 0)
		e := newEnv(tb.config())

		Expect(e.volume.Check(ctx, testDevice)).To(Succeed())
		Expect(tb.invocations("fsck_msdos")).To(Equal([]string{"-p -f -y " + testDevice}))
		Expect(e.scrape()).To(ContainSubstring(`vfat_volume_operations_total{operation="check",status="success"} 1`))
	})

	DescribeTable("should map the tool exit status to an errno",
		func(status int, expected unix.Errno, kind vfat.Kind) {
			tb.exitWith("fsck_msdos", status)
			e := newEnv(tb.config())

			err := e.volume.Check(ctx, testDevice)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, expected)).To(BeTrue(), "got %v", err)
			Expect(vfat.IsKind(err, kind)).To(BeTrue())
			Expect(tb.invocations("fsck_msdos")).To(HaveLen(1))
		},
		Entry("repaired but not verified", 1, unix.EIO, vfat.KindTool),
		Entry("not a FAT filesystem", 2, unix.ENODATA, vfat.KindTool),
		Entry("unrecoverable", 8, unix.ENODATA, vfat.KindTool),
		Entry("unknown status", 3, unix.EIO, vfat.KindTool),
	)

	It("should recheck a modified filesystem until it comes back clean", func() {
		tb.exitWith("fsck_msdos", 4, 4, 0)
		e := newEnv(tb.config())

		Expect(e.volume.Check(ctx, testDevice)).To(Succeed())
		Expect(tb.invocations("fsck_msdos")).To(HaveLen(3))
		Expect(e.scrape()).To(ContainSubstring("vfat_check_passes_sum 3"))
	})

	It("should give up after the initial pass and three rechecks", func() {
		tb.exitWith("fsck_msdos", 4)
		e := newEnv(tb.config())

		err := e.volume.Check(ctx, testDevice)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, unix.EIO)).To(BeTrue())
		Expect(vfat.IsKind(err, vfat.KindRecheckExhausted)).To(BeTrue())
		Expect(tb.invocations("fsck_msdos")).To(HaveLen(vfat.MaxRechecks + 1))

		counts := e.audit.GetMetrics().Snapshot()
		Expect(counts.CheckRequests).To(Equal(int64(1)))
		Expect(counts.CheckFailures).To(Equal(int64(1)))
	})

	It("should stop rechecking on the first hard failure", func() {
		tb.exitWith("fsck_msdos", 4, 2)
		e := newEnv(tb.config())

		err := e.volume.Check(ctx, testDevice)
		Expect(errors.Is(err, unix.ENODATA)).To(BeTrue())
		Expect(tb.invocations("fsck_msdos")).To(HaveLen(2))
	})

	It("should time out a hung pass", func() {
		tb.install("fsck_msdos", "exec sleep 30")
		c := tb.config()
		c.CheckTimeout = 200 * time.Millisecond
		e := newEnv(c)

		start := time.Now()
		err := e.volume.Check(ctx, testDevice)
		klog.Infof("Hung check returned after %v: %v", time.Since(start), err)

		Expect(errors.Is(err, unix.ETIMEDOUT)).To(BeTrue(), "got %v", err)
		Expect(vfat.IsKind(err, vfat.KindTimeout)).To(BeTrue())
		Expect(time.Since(start)).To(BeNumerically("<", defaultTimeout))
		Expect(tb.invocations("fsck_msdos")).To(HaveLen(1), "a timed out pass is not retried")
	})

	It("should report a tool that cannot be started as an I/O error", func() {
		e := newEnv(tb.config())

		err := e.volume.Check(ctx, testDevice)
		Expect(errors.Is(err, unix.EIO)).To(BeTrue())
		Expect(vfat.IsKind(err, vfat.KindLaunch)).To(BeTrue())
	})

	It("should refuse a device path with shell metacharacters without running the tool", func() {
		tb.exitWith("fsck_msdos", 0)
		e := newEnv(tb.config())

		err := e.volume.Check(ctx, "/dev/block/sda1;reboot")
		Expect(errors.Is(err, unix.EINVAL)).To(BeTrue())
		Expect(tb.invocations("fsck_msdos")).To(BeEmpty())
		Expect(e.audit.GetMetrics().Snapshot().CommandInjectionAttempts).To(Equal(int64(1)))
	})
})
