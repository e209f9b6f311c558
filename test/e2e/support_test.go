package e2e

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Support Probe", func() {
	var tb *toolbox

	writeFilesystems := func(content string) string {
		path := filepath.Join(tb.dir, "filesystems")
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		tb = newToolbox()
	})

	It("should report support when both tools run and the kernel lists vfat", func() {
		tb.exitWith("fsck_msdos", 0)
		tb.exitWith("newfs_msdos", 0)
		c := tb.config()
		c.ProcFilesystems = writeFilesystems("nodev\tsysfs\n\text4\n\tvfat\n")
		e := newEnv(c)

		Expect(e.volume.IsSupported()).To(BeTrue())
		Expect(e.scrape()).To(ContainSubstring(`vfat_support_probes_total{supported="true"} 1`))
	})

	It("should report no support when the format tool is missing", func() {
		tb.exitWith("fsck_msdos", 0)
		c := tb.config()
		c.ProcFilesystems = writeFilesystems("\tvfat\n")

		Expect(newEnv(c).volume.IsSupported()).To(BeFalse())
	})

	It("should report no support when the check tool is not executable", func() {
		tb.exitWith("newfs_msdos", 0)
		Expect(os.WriteFile(tb.path("fsck_msdos"), []byte("#!/bin/sh\n"), 0644)).To(Succeed())
		c := tb.config()
		c.ProcFilesystems = writeFilesystems("\tvfat\n")

		Expect(newEnv(c).volume.IsSupported()).To(BeFalse())
	})

	It("should report no support when the kernel lacks the filesystem", func() {
		tb.exitWith("fsck_msdos", 0)
		tb.exitWith("newfs_msdos", 0)
		c := tb.config()
		c.ProcFilesystems = writeFilesystems("\text4\n\tmsdos\n")

		Expect(newEnv(c).volume.IsSupported()).To(BeFalse())
	})

	It("should never run the tools while probing", func() {
		tb.exitWith("fsck_msdos", 0)
		tb.exitWith("newfs_msdos", 0)
		c := tb.config()
		c.ProcFilesystems = writeFilesystems("\tvfat\n")

		newEnv(c).volume.IsSupported()
		Expect(tb.invocations("fsck_msdos")).To(BeEmpty())
		Expect(tb.invocations("newfs_msdos")).To(BeEmpty())
	})
})
