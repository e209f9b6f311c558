package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"git.srvlab.io/whiskey/vfatvol/pkg/observability"
	"git.srvlab.io/whiskey/vfatvol/pkg/security"
	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
	"git.srvlab.io/whiskey/vfatvol/test/mock"
)

// Constants for test configuration
const (
	testDevice     = "/dev/block/vold/public:179,1"
	defaultTimeout = 10 * time.Second
	pollInterval   = 50 * time.Millisecond
)

// toolbox is a directory of fake check and format tools. Every invocation
// appends its arguments to a per-tool log so specs can count passes.
type toolbox struct {
	dir string
}

// newToolbox creates an empty toolbox removed when the spec ends
func newToolbox() *toolbox {
	dir, err := os.MkdirTemp(toolsRoot, "tools-")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = os.RemoveAll(dir) })
	return &toolbox{dir: dir}
}

func (tb *toolbox) path(name string) string {
	return filepath.Join(tb.dir, name)
}

func (tb *toolbox) logPath(name string) string {
	return tb.path(name + ".log")
}

// install writes a tool that logs its arguments then runs body
func (tb *toolbox) install(name, body string) string {
	script := fmt.Sprintf("#!/bin/sh\necho \"$*\" >> %s\n%s\n", tb.logPath(name), body)
	Expect(os.WriteFile(tb.path(name), []byte(script), 0755)).To(Succeed())
	return tb.path(name)
}

// exitWith installs a tool exiting with each status in turn, repeating the last
func (tb *toolbox) exitWith(name string, statuses ...int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("n=$(wc -l < %s)\n", tb.logPath(name)))
	for i, status := range statuses[:len(statuses)-1] {
		b.WriteString(fmt.Sprintf("[ \"$n\" -eq %d ] && exit %d\n", i+1, status))
	}
	b.WriteString(fmt.Sprintf("exit %d", statuses[len(statuses)-1]))
	return tb.install(name, b.String())
}

// invocations returns the argument lines the tool was run with
func (tb *toolbox) invocations(name string) []string {
	data, err := os.ReadFile(tb.logPath(name))
	if os.IsNotExist(err) {
		return nil
	}
	Expect(err).NotTo(HaveOccurred())
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// config returns a Volume config pointing at the toolbox. The SELinux label
// is cleared so the tools run on hosts without SELinux.
func (tb *toolbox) config() vfat.Config {
	c := vfat.DefaultConfig()
	c.FsckPath = tb.path("fsck_msdos")
	c.MkfsPath = tb.path("newfs_msdos")
	c.UntrustedContext = ""
	c.CheckTimeout = 5 * time.Second
	c.MountTimeout = 5 * time.Second
	return c
}

// env bundles a Volume with the collaborators specs inspect
type env struct {
	volume  *vfat.Volume
	mounter *mock.MockMounter
	metrics *observability.Metrics
	audit   *security.Logger
}

// newEnv builds a Volume with the real process runner and task runner, and
// a mock mounter so no privileges are needed
func newEnv(c vfat.Config) *env {
	e := &env{
		mounter: mock.NewMockMounter(),
		metrics: observability.NewMetrics(),
		audit:   security.NewLogger(),
	}
	v, err := vfat.New(c,
		vfat.WithMounter(e.mounter),
		vfat.WithMetrics(e.metrics),
		vfat.WithAuditLogger(e.audit),
	)
	Expect(err).NotTo(HaveOccurred())
	e.volume = v
	return e
}

// scrape returns the metrics in text exposition format
func (e *env) scrape() string {
	path := filepath.Join(GinkgoT().TempDir(), "metrics.prom")
	Expect(e.metrics.WriteTextfile(path)).To(Succeed())
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}
