package security

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory represents the category of a security event
type EventCategory string

const (
	// CategoryUntrustedMedia represents operations that read or repair externally supplied media
	CategoryUntrustedMedia EventCategory = "untrusted_media"

	// CategoryDataAccess represents mount events that expose media contents
	CategoryDataAccess EventCategory = "data_access"

	// CategoryProvisioning represents destructive provisioning (format)
	CategoryProvisioning EventCategory = "provisioning"

	// CategorySecurityViolation represents potential security violations
	CategorySecurityViolation EventCategory = "security_violation"
)

// EventSeverity represents the severity level of a security event
type EventSeverity string

const (
	// SeverityInfo represents informational events
	SeverityInfo EventSeverity = "info"

	// SeverityWarning represents warning events
	SeverityWarning EventSeverity = "warning"

	// SeverityError represents error events
	SeverityError EventSeverity = "error"

	// SeverityCritical represents critical security events
	SeverityCritical EventSeverity = "critical"
)

// EventOutcome represents the outcome of a security event
type EventOutcome string

const (
	// OutcomeSuccess indicates the operation succeeded
	OutcomeSuccess EventOutcome = "success"

	// OutcomeFailure indicates the operation failed
	OutcomeFailure EventOutcome = "failure"

	// OutcomeDenied indicates the operation was denied
	OutcomeDenied EventOutcome = "denied"

	// OutcomeUnknown indicates the outcome is unknown
	OutcomeUnknown EventOutcome = "unknown"
)

// EventType represents specific types of security events
type EventType string

const (
	// Integrity check events
	EventCheckRequest EventType = "check_request"
	EventCheckSuccess EventType = "check_success"
	EventCheckFailure EventType = "check_failure"

	// Mount events
	EventMountRequest     EventType = "mount_request"
	EventMountSuccess     EventType = "mount_success"
	EventMountFailure     EventType = "mount_failure"
	EventReadOnlyFallback EventType = "mount_readonly_fallback"

	// Format events
	EventFormatRequest EventType = "format_request"
	EventFormatSuccess EventType = "format_success"
	EventFormatFailure EventType = "format_failure"

	// Security violation events
	EventValidationFailure       EventType = "validation_failure"
	EventCommandInjectionAttempt EventType = "command_injection_attempt"
	EventPathTraversalAttempt    EventType = "path_traversal_attempt"
)

// SecurityEvent represents a security-relevant event in the system
type SecurityEvent struct {
	// Core event fields
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	EventType EventType     `json:"event_type"`
	Category  EventCategory `json:"category"`
	Severity  EventSeverity `json:"severity"`
	Outcome   EventOutcome  `json:"outcome"`
	Message   string        `json:"message"`

	// Resource fields
	DevicePath string `json:"device_path,omitempty"`
	MountPath  string `json:"mount_path,omitempty"`

	// Operation details
	Operation string            `json:"operation,omitempty"`
	Duration  time.Duration     `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewSecurityEvent creates a new security event with a unique ID and timestamp
func NewSecurityEvent(eventType EventType, category EventCategory, severity EventSeverity, message string) *SecurityEvent {
	return &SecurityEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Category:  category,
		Severity:  severity,
		Message:   message,
		Details:   make(map[string]string),
	}
}

// WithOutcome sets the outcome for the event
func (e *SecurityEvent) WithOutcome(outcome EventOutcome) *SecurityEvent {
	e.Outcome = outcome
	return e
}

// WithDevice sets the block device the event concerns
func (e *SecurityEvent) WithDevice(devicePath string) *SecurityEvent {
	e.DevicePath = devicePath
	return e
}

// WithMountPath sets the mount point the event concerns
func (e *SecurityEvent) WithMountPath(mountPath string) *SecurityEvent {
	e.MountPath = mountPath
	return e
}

// WithOperation sets operation details
func (e *SecurityEvent) WithOperation(operation string, duration time.Duration) *SecurityEvent {
	e.Operation = operation
	e.Duration = duration
	return e
}

// WithError sets error information
func (e *SecurityEvent) WithError(err error) *SecurityEvent {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDetail adds a custom detail field
func (e *SecurityEvent) WithDetail(key, value string) *SecurityEvent {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}
