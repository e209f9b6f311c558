package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// MockMounter is a mock implementation of mount.Mounter for testing
type MockMounter struct {
	mu sync.RWMutex

	// Mounted filesystems: target path -> source device
	mounted map[string]string

	// Error injection
	mountErrs  []error // consumed one per Mount call
	mountErr   error   // returned once the queue is empty
	unmountErr error
	injector   *ErrorInjector

	// Delay injection
	mountDelay time.Duration
	timing     *TimingSimulator

	// Call tracking
	mountCalls   []MountCall
	unmountCalls []string
}

// MountCall tracks a Mount operation
type MountCall struct {
	Source string
	Target string
	FSType string
	Flags  uintptr
	Data   string
}

// ReadOnly reports whether the call requested a read-only mount
func (c MountCall) ReadOnly() bool {
	return c.Flags&unix.MS_RDONLY != 0
}

// NewMockMounter creates a new mock mounter
func NewMockMounter() *MockMounter {
	return &MockMounter{
		mounted: make(map[string]string),
	}
}

// NewMockMounterFromConfig creates a mock mounter with error injection and
// timing simulation driven by config
func NewMockMounterFromConfig(config MockConfig) *MockMounter {
	m := NewMockMounter()
	m.injector = NewErrorInjector(config)
	m.timing = NewTimingSimulator(config)
	return m
}

// Mount implements mount.Mounter
func (m *MockMounter) Mount(source, target, fsType string, flags uintptr, data string) error {
	m.mu.Lock()
	m.mountCalls = append(m.mountCalls, MountCall{
		Source: source,
		Target: target,
		FSType: fsType,
		Flags:  flags,
		Data:   data,
	})
	delay := m.mountDelay
	timing := m.timing

	var err error
	if len(m.mountErrs) > 0 {
		err = m.mountErrs[0]
		m.mountErrs = m.mountErrs[1:]
	} else {
		err = m.mountErr
	}
	if err == nil && m.injector != nil {
		err = m.injector.ShouldFailMount(flags)
	}
	m.mu.Unlock()

	// Sleep outside the lock so a hung mount does not block inspection
	if delay > 0 {
		time.Sleep(delay)
	}
	if timing != nil {
		timing.SimulateMount()
	}

	if err != nil {
		return fmt.Errorf("mount %s on %s: %w", source, target, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounted[target] = source
	return nil
}

// Unmount implements mount.Mounter
func (m *MockMounter) Unmount(ctx context.Context, target string, flags int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unmountCalls = append(m.unmountCalls, target)

	if m.unmountErr != nil {
		return m.unmountErr
	}

	delete(m.mounted, target)
	return nil
}

// Test helper methods

// SetMountError sets an error to return on every Mount call
func (m *MockMounter) SetMountError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mountErr = err
}

// QueueMountErrors sets errors returned by successive Mount calls.
// A nil entry lets that call succeed.
func (m *MockMounter) QueueMountErrors(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mountErrs = append(m.mountErrs, errs...)
}

// SetUnmountError sets an error to return on Unmount operations
func (m *MockMounter) SetUnmountError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmountErr = err
}

// SetMountDelay makes every Mount call block for d, simulating hung media
func (m *MockMounter) SetMountDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mountDelay = d
}

// ClearErrors clears all error injection
func (m *MockMounter) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErrorsLocked()
}

func (m *MockMounter) clearErrorsLocked() {
	m.mountErrs = nil
	m.mountErr = nil
	m.unmountErr = nil
	if m.injector != nil {
		m.injector.Reset()
	}
}

// GetMountCalls returns the history of Mount calls
func (m *MockMounter) GetMountCalls() []MountCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MountCall, len(m.mountCalls))
	copy(calls, m.mountCalls)
	return calls
}

// GetUnmountCalls returns the history of Unmount calls
func (m *MockMounter) GetUnmountCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]string, len(m.unmountCalls))
	copy(calls, m.unmountCalls)
	return calls
}

// IsMounted checks if a path is currently mounted
func (m *MockMounter) IsMounted(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, mounted := m.mounted[path]
	return mounted
}

// GetMountDevice returns the source device for a mounted path
func (m *MockMounter) GetMountDevice(path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, mounted := m.mounted[path]
	if !mounted {
		return "", fmt.Errorf("path %s is not mounted", path)
	}
	return device, nil
}

// Reset clears all state for test isolation
func (m *MockMounter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounted = make(map[string]string)
	m.mountCalls = nil
	m.unmountCalls = nil
	m.mountDelay = 0
	m.clearErrorsLocked()
}
