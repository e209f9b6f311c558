package vfat

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind classifies a volume operation failure
type Kind int

const (
	// KindInvalid indicates a rejected source or target path
	KindInvalid Kind = iota + 1

	// KindLaunch indicates the external tool or mount worker could not be started
	KindLaunch

	// KindTool indicates the tool ran and reported a failure status
	KindTool

	// KindRecheckExhausted indicates the filesystem stayed dirty past the recheck budget
	KindRecheckExhausted

	// KindTimeout indicates the deadline passed and the effect of the operation is unknown
	KindTimeout

	// KindMount indicates mount(2) failed
	KindMount

	// KindReadOnlyFallback indicates the read-only retry after EROFS failed
	KindReadOnlyFallback
)

var kindNames = map[Kind]string{
	KindInvalid:          "invalid",
	KindLaunch:           "launch",
	KindTool:             "tool",
	KindRecheckExhausted: "recheck_exhausted",
	KindTimeout:          "timeout",
	KindMount:            "mount",
	KindReadOnlyFallback: "readonly_fallback",
}

// String returns the snake_case name used in logs and metric labels
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single failure type returned by Volume operations.
// errors.Is matches it against its Errno, so callers can test for
// unix.EIO, unix.ENODATA or unix.ETIMEDOUT directly.
type Error struct {
	Op     string
	Source string
	Kind   Kind
	Errno  unix.Errno

	// Code is the raw tool exit status for KindTool, otherwise zero
	Code int

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("vfat %s %s: %s", e.Op, e.Source, e.Kind)
	if e.Kind == KindTool {
		msg += fmt.Sprintf(" (exit status %d)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + " [" + e.Errno.Error() + "]"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the errno carried by e
func (e *Error) Is(target error) bool {
	errno, ok := target.(unix.Errno)
	return ok && errno == e.Errno
}

// Errno extracts the POSIX error code from err.
// Returns 0 for nil and EIO for errors that carry no errno.
func Errno(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Errno
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}

// IsKind reports whether err is a *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(op, source string, kind Kind, errno unix.Errno, err error) *Error {
	return &Error{Op: op, Source: source, Kind: kind, Errno: errno, Err: err}
}
