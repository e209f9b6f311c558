package security

import (
	"fmt"
	"sync"
	"time"
)

// EventCounts is a point-in-time copy of security event counters
type EventCounts struct {
	// Integrity check metrics
	CheckRequests  int64 `json:"check_requests"`
	CheckSuccesses int64 `json:"check_successes"`
	CheckFailures  int64 `json:"check_failures"`

	// Data access metrics
	MountRequests     int64 `json:"mount_requests"`
	MountSuccesses    int64 `json:"mount_successes"`
	MountFailures     int64 `json:"mount_failures"`
	ReadOnlyFallbacks int64 `json:"readonly_fallbacks"`

	// Provisioning metrics
	FormatRequests  int64 `json:"format_requests"`
	FormatSuccesses int64 `json:"format_successes"`
	FormatFailures  int64 `json:"format_failures"`

	// Security violation metrics
	ValidationFailures       int64 `json:"validation_failures"`
	CommandInjectionAttempts int64 `json:"command_injection_attempts"`
	PathTraversalAttempts    int64 `json:"path_traversal_attempts"`

	// Severity counters
	InfoEvents     int64 `json:"info_events"`
	WarningEvents  int64 `json:"warning_events"`
	ErrorEvents    int64 `json:"error_events"`
	CriticalEvents int64 `json:"critical_events"`

	// Timing metrics
	LastVolumeOperation      time.Time     `json:"last_volume_operation"`
	LastSecurityViolation    time.Time     `json:"last_security_violation"`
	AverageOperationDuration time.Duration `json:"average_operation_duration_ms"`
}

// SecurityMetrics tracks security-related metrics
type SecurityMetrics struct {
	mu sync.RWMutex
	EventCounts

	totalOperationTime time.Duration
	totalOperations    int64
}

// globalMetrics is the global security metrics instance
var (
	globalMetrics *SecurityMetrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global security metrics instance
func GetMetrics() *SecurityMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewSecurityMetrics()
	})
	return globalMetrics
}

// NewSecurityMetrics returns an empty metrics instance
func NewSecurityMetrics() *SecurityMetrics {
	return &SecurityMetrics{}
}

// RecordEvent records a security event in metrics
func (m *SecurityMetrics) RecordEvent(event *SecurityEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event.Severity {
	case SeverityInfo:
		m.InfoEvents++
	case SeverityWarning:
		m.WarningEvents++
	case SeverityError:
		m.ErrorEvents++
	case SeverityCritical:
		m.CriticalEvents++
	}

	switch event.EventType {
	// Check events
	case EventCheckRequest:
		m.CheckRequests++
		m.LastVolumeOperation = event.Timestamp
	case EventCheckSuccess:
		m.CheckSuccesses++
		m.recordOperationDuration(event.Duration)
	case EventCheckFailure:
		m.CheckFailures++

	// Mount events
	case EventMountRequest:
		m.MountRequests++
		m.LastVolumeOperation = event.Timestamp
	case EventMountSuccess:
		m.MountSuccesses++
		m.recordOperationDuration(event.Duration)
	case EventMountFailure:
		m.MountFailures++
	case EventReadOnlyFallback:
		m.ReadOnlyFallbacks++

	// Format events
	case EventFormatRequest:
		m.FormatRequests++
		m.LastVolumeOperation = event.Timestamp
	case EventFormatSuccess:
		m.FormatSuccesses++
		m.recordOperationDuration(event.Duration)
	case EventFormatFailure:
		m.FormatFailures++

	// Security violations
	case EventValidationFailure:
		m.ValidationFailures++
		m.LastSecurityViolation = event.Timestamp
	case EventCommandInjectionAttempt:
		m.CommandInjectionAttempts++
		m.LastSecurityViolation = event.Timestamp
	case EventPathTraversalAttempt:
		m.PathTraversalAttempts++
		m.LastSecurityViolation = event.Timestamp
	}
}

// recordOperationDuration records the duration of an operation for averaging
func (m *SecurityMetrics) recordOperationDuration(duration time.Duration) {
	if duration > 0 {
		m.totalOperationTime += duration
		m.totalOperations++
		m.AverageOperationDuration = m.totalOperationTime / time.Duration(m.totalOperations)
	}
}

// Reset resets all metrics to zero
func (m *SecurityMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EventCounts = EventCounts{}
	m.totalOperationTime = 0
	m.totalOperations = 0
}

// String returns a human-readable representation of the metrics
func (m *SecurityMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fmt.Sprintf("SecurityMetrics{"+
		"Check(requests=%d, success=%d, failures=%d), "+
		"Mount(requests=%d, success=%d, failures=%d, readonly_fallbacks=%d), "+
		"Format(requests=%d, success=%d, failures=%d), "+
		"Violations(validation=%d, cmd_injection=%d, path_traversal=%d), "+
		"Severity(info=%d, warning=%d, error=%d, critical=%d), "+
		"AvgOpDuration=%dms}",
		m.CheckRequests, m.CheckSuccesses, m.CheckFailures,
		m.MountRequests, m.MountSuccesses, m.MountFailures, m.ReadOnlyFallbacks,
		m.FormatRequests, m.FormatSuccesses, m.FormatFailures,
		m.ValidationFailures, m.CommandInjectionAttempts, m.PathTraversalAttempts,
		m.InfoEvents, m.WarningEvents, m.ErrorEvents, m.CriticalEvents,
		m.AverageOperationDuration.Milliseconds())
}

// Snapshot returns a copy of the current counters
func (m *SecurityMetrics) Snapshot() EventCounts {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.EventCounts
}
