package mock

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/proc"
)

// ErrorMode defines the type of error to inject
type ErrorMode int

const (
	// ErrorModeNone indicates no error injection
	ErrorModeNone ErrorMode = iota
	// ErrorModeLaunch simulates a tool that cannot be started
	ErrorModeLaunch
	// ErrorModeTimeout simulates a tool or mount exceeding its deadline
	ErrorModeTimeout
	// ErrorModeReadOnlyMedium simulates write-protected media (EROFS on rw mounts)
	ErrorModeReadOnlyMedium
	// ErrorModeMountFail simulates a mount syscall failure (EIO)
	ErrorModeMountFail
)

// ErrorInjector manages error injection for testing
type ErrorInjector struct {
	mode         ErrorMode
	operationNum int
	triggerAfter int
	mu           sync.Mutex // Protect operation counter
}

// NewErrorInjector creates a new error injector from configuration
func NewErrorInjector(config MockConfig) *ErrorInjector {
	return &ErrorInjector{
		mode:         ParseErrorMode(config.ErrorMode),
		triggerAfter: config.ErrorAfterN,
	}
}

// ParseErrorMode converts string error mode to ErrorMode constant
func ParseErrorMode(s string) ErrorMode {
	switch s {
	case "launch":
		return ErrorModeLaunch
	case "timeout":
		return ErrorModeTimeout
	case "readonly_medium":
		return ErrorModeReadOnlyMedium
	case "mount_fail":
		return ErrorModeMountFail
	case "none", "":
		return ErrorModeNone
	default:
		klog.Warningf("Unknown error mode %q, using none", s)
		return ErrorModeNone
	}
}

// triggered counts an operation and reports whether it is past the threshold
func (e *ErrorInjector) triggered() bool {
	e.operationNum++
	return e.operationNum > e.triggerAfter
}

// ShouldFailRun returns the error a tool run should fail with, if any
func (e *ErrorInjector) ShouldFailRun(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.mode {
	case ErrorModeLaunch:
		if e.triggered() {
			return fmt.Errorf("%w: %s: injected", proc.ErrLaunch, path)
		}
	case ErrorModeTimeout:
		if e.triggered() {
			return fmt.Errorf("%w: %s: injected", proc.ErrTimeout, path)
		}
	}
	return nil
}

// ShouldFailMount returns the error a mount with flags should fail with, if any
func (e *ErrorInjector) ShouldFailMount(flags uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.mode {
	case ErrorModeReadOnlyMedium:
		// Read-only requests always succeed on write-protected media
		if flags&unix.MS_RDONLY == 0 && e.triggered() {
			return unix.EROFS
		}
	case ErrorModeMountFail:
		if e.triggered() {
			return unix.EIO
		}
	}
	return nil
}

// Mode returns the configured error mode
func (e *ErrorInjector) Mode() ErrorMode {
	return e.mode
}

// Reset resets the operation counter for test isolation
func (e *ErrorInjector) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.operationNum = 0
}
