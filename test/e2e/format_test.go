package e2e

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
)

var _ = Describe("Filesystem Format", func() {
	var tb *toolbox

	BeforeEach(func() {
		tb = newToolbox()
	})

	It("should let the tool size the filesystem when no sector count is given", func() {
		tb.exitWith("newfs_msdos", 0)
		e := newEnv(tb.config())

		Expect(e.volume.Format(context.Background(), testDevice, 0)).To(Succeed())
		Expect(tb.invocations("newfs_msdos")).To(Equal([]string{"-O android -A " + testDevice}))
	})

	It("should pass an explicit sector count", func() {
		tb.exitWith("newfs_msdos", 0)
		e := newEnv(tb.config())

		Expect(e.volume.Format(context.Background(), testDevice, 31116288)).To(Succeed())
		Expect(tb.invocations("newfs_msdos")).To(Equal([]string{"-O android -A -s 31116288 " + testDevice}))

		counts := e.audit.GetMetrics().Snapshot()
		Expect(counts.FormatRequests).To(Equal(int64(1)))
		Expect(counts.FormatSuccesses).To(Equal(int64(1)))
	})

	It("should report any non-zero exit status as an I/O error", func() {
		tb.exitWith("newfs_msdos", 1)
		e := newEnv(tb.config())

		err := e.volume.Format(context.Background(), testDevice, 0)
		Expect(errors.Is(err, unix.EIO)).To(BeTrue())

		var ve *vfat.Error
		Expect(errors.As(err, &ve)).To(BeTrue())
		Expect(ve.Kind).To(Equal(vfat.KindTool))
		Expect(ve.Code).To(Equal(1))
	})

	It("should not bound the format by the check timeout", func() {
		tb.install("newfs_msdos", "sleep 0.5")
		c := tb.config()
		c.CheckTimeout = 100 * time.Millisecond
		e := newEnv(c)

		Expect(e.volume.Format(context.Background(), testDevice, 0)).To(Succeed())
	})

	It("should abandon the format when the caller gives up", func() {
		tb.install("newfs_msdos", "exec sleep 30")
		e := newEnv(tb.config())

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		DeferCleanup(cancel)

		err := e.volume.Format(ctx, testDevice, 0)
		Expect(errors.Is(err, unix.ETIMEDOUT)).To(BeTrue(), "got %v", err)
	})
})
