package security

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// Logger provides centralized security event logging
type Logger struct {
	metrics *SecurityMetrics
}

// globalLogger is the global security logger instance
var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global security logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = &Logger{
			metrics: GetMetrics(),
		}
	})
	return globalLogger
}

// NewLogger creates a security logger with its own metrics
func NewLogger() *Logger {
	return &Logger{
		metrics: NewSecurityMetrics(),
	}
}

// severityMapping defines how a severity level maps to klog behavior
type severityMapping struct {
	verbosity klog.Level
	logFunc   func(args ...interface{})
}

// severityMap maps EventSeverity to klog verbosity and logging function
var severityMap = map[EventSeverity]severityMapping{
	SeverityInfo:     {verbosity: 2, logFunc: func(args ...interface{}) { klog.V(2).Info(args...) }},
	SeverityWarning:  {verbosity: 1, logFunc: klog.Warning},
	SeverityError:    {verbosity: 0, logFunc: klog.Error},
	SeverityCritical: {verbosity: 0, logFunc: klog.Error},
}

// LogEvent logs a security event with structured logging
func (l *Logger) LogEvent(event *SecurityEvent) {
	l.metrics.RecordEvent(event)

	mapping, ok := severityMap[event.Severity]
	if !ok {
		mapping = severityMap[SeverityInfo]
	}
	mapping.logFunc(l.formatLogMessage(event))

	// Critical events are also emitted as JSON for log shippers
	if event.Severity == SeverityCritical {
		if jsonBytes, err := json.Marshal(event); err == nil {
			klog.Errorf("CRITICAL_SECURITY_EVENT: %s", string(jsonBytes))
		}
	}
}

// formatLogMessage formats a security event as a structured log message
func (l *Logger) formatLogMessage(event *SecurityEvent) string {
	msg := fmt.Sprintf("[SECURITY] id=%s category=%s type=%s severity=%s outcome=%s msg=\"%s\"",
		event.ID, event.Category, event.EventType, event.Severity, event.Outcome, event.Message)

	if event.DevicePath != "" {
		msg += fmt.Sprintf(" device_path=%s", event.DevicePath)
	}
	if event.MountPath != "" {
		msg += fmt.Sprintf(" mount_path=%s", event.MountPath)
	}

	if event.Operation != "" {
		msg += fmt.Sprintf(" operation=%s", event.Operation)
	}
	if event.Duration > 0 {
		msg += fmt.Sprintf(" duration_ms=%d", event.Duration.Milliseconds())
	}
	if event.Error != "" {
		msg += fmt.Sprintf(" error=\"%s\"", event.Error)
	}

	// Sorted so identical events format identically
	keys := make([]string, 0, len(event.Details))
	for key := range event.Details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		msg += fmt.Sprintf(" %s=\"%s\"", key, event.Details[key])
	}

	msg += fmt.Sprintf(" timestamp=%s", event.Timestamp.Format("2006-01-02T15:04:05.000Z"))

	return msg
}

// OperationLogConfig defines the configuration for a logging operation
type OperationLogConfig struct {
	Operation   string
	Category    EventCategory
	SuccessType EventType
	FailureType EventType
	RequestType EventType
	SuccessSev  EventSeverity
	FailureSev  EventSeverity
	SuccessMsg  string
	FailureMsg  string
	RequestMsg  string
}

// operationConfigs defines the logging configuration for all volume operations
var operationConfigs = map[string]OperationLogConfig{
	"Check":  {Operation: "check", Category: CategoryUntrustedMedia, SuccessType: EventCheckSuccess, FailureType: EventCheckFailure, RequestType: EventCheckRequest, SuccessSev: SeverityInfo, FailureSev: SeverityWarning, SuccessMsg: "Filesystem check passed", FailureMsg: "Filesystem check failed", RequestMsg: "Filesystem check requested"},
	"Mount":  {Operation: "mount", Category: CategoryDataAccess, SuccessType: EventMountSuccess, FailureType: EventMountFailure, RequestType: EventMountRequest, SuccessSev: SeverityInfo, FailureSev: SeverityError, SuccessMsg: "Volume mounted", FailureMsg: "Volume mount failed", RequestMsg: "Volume mount requested"},
	"Format": {Operation: "format", Category: CategoryProvisioning, SuccessType: EventFormatSuccess, FailureType: EventFormatFailure, RequestType: EventFormatRequest, SuccessSev: SeverityInfo, FailureSev: SeverityError, SuccessMsg: "Volume formatted", FailureMsg: "Volume format failed", RequestMsg: "Volume format requested"},
}

// EventField is a functional option for configuring SecurityEvent fields
type EventField func(*SecurityEvent)

// WithDevice sets the block device path
func WithDevice(devicePath string) EventField {
	return func(e *SecurityEvent) {
		e.DevicePath = devicePath
	}
}

// WithDuration sets operation duration
func WithDuration(d time.Duration) EventField {
	return func(e *SecurityEvent) {
		e.Duration = d
	}
}

// WithMountPath sets mount path
func WithMountPath(path string) EventField {
	return func(e *SecurityEvent) {
		e.MountPath = path
	}
}

// WithError sets error information
func WithError(err error) EventField {
	return func(e *SecurityEvent) {
		if err != nil {
			e.Error = err.Error()
		}
	}
}

// WithDetails copies key/value pairs into the event details
func WithDetails(details map[string]string) EventField {
	return func(e *SecurityEvent) {
		for k, v := range details {
			e.WithDetail(k, v)
		}
	}
}

// LogOperation logs an operation using the table-driven configuration
func (l *Logger) LogOperation(config OperationLogConfig, outcome EventOutcome, fields ...EventField) {
	var eventType EventType
	var severity EventSeverity
	var message string

	switch outcome {
	case OutcomeSuccess:
		eventType = config.SuccessType
		severity = config.SuccessSev
		message = config.SuccessMsg
	case OutcomeFailure:
		eventType = config.FailureType
		severity = config.FailureSev
		message = config.FailureMsg
	default:
		eventType = config.RequestType
		severity = SeverityInfo
		message = config.RequestMsg
	}

	event := NewSecurityEvent(eventType, config.Category, severity, message)
	event.Operation = config.Operation
	event.Outcome = outcome

	for _, field := range fields {
		field(event)
	}

	l.LogEvent(event)
}

// LogCheck logs integrity check events
func (l *Logger) LogCheck(devicePath string, passes int, outcome EventOutcome, err error, duration time.Duration) {
	fields := []EventField{WithDevice(devicePath), WithDuration(duration), WithError(err)}
	if passes > 0 {
		fields = append(fields, WithDetails(map[string]string{"passes": fmt.Sprint(passes)}))
	}
	l.LogOperation(operationConfigs["Check"], outcome, fields...)
}

// LogMount logs mount events
func (l *Logger) LogMount(devicePath, mountPath string, readOnly bool, outcome EventOutcome, err error, duration time.Duration) {
	l.LogOperation(operationConfigs["Mount"], outcome,
		WithDevice(devicePath),
		WithMountPath(mountPath),
		WithDuration(duration),
		WithError(err),
		WithDetails(map[string]string{"read_only": fmt.Sprint(readOnly)}))
}

// LogFormat logs format events
func (l *Logger) LogFormat(devicePath string, numSectors uint64, outcome EventOutcome, err error, duration time.Duration) {
	fields := []EventField{WithDevice(devicePath), WithDuration(duration), WithError(err)}
	if numSectors > 0 {
		fields = append(fields, WithDetails(map[string]string{"sectors": fmt.Sprint(numSectors)}))
	}
	l.LogOperation(operationConfigs["Format"], outcome, fields...)
}

// LogReadOnlyFallback logs a mount that the medium forced read-only
func (l *Logger) LogReadOnlyFallback(devicePath, mountPath string) {
	event := NewSecurityEvent(
		EventReadOnlyFallback,
		CategoryDataAccess,
		SeverityWarning,
		"Medium refused writes, retrying read-only",
	).WithDevice(devicePath).
		WithMountPath(mountPath).
		WithOperation("mount", 0).
		WithOutcome(OutcomeUnknown)
	l.LogEvent(event)
}

// LogSecurityViolation logs security violations
func (l *Logger) LogSecurityViolation(eventType EventType, message string, details map[string]string) {
	event := NewSecurityEvent(
		eventType,
		CategorySecurityViolation,
		SeverityCritical,
		message,
	).WithOutcome(OutcomeDenied)

	for key, value := range details {
		event.WithDetail(key, value)
	}

	l.LogEvent(event)
}

// LogValidationFailure logs validation failures
func (l *Logger) LogValidationFailure(parameter, value, reason string) {
	l.LogSecurityViolation(
		EventValidationFailure,
		"Validation failure",
		map[string]string{
			"parameter": parameter,
			"value":     value,
			"reason":    reason,
		},
	)
}

// GetMetrics returns the current security metrics
func (l *Logger) GetMetrics() *SecurityMetrics {
	return l.metrics
}
