package proc

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrTimeout indicates the work exceeded its time budget and was abandoned
	ErrTimeout = errors.New("timed out")

	// ErrLaunch indicates the work could not be started
	ErrLaunch = errors.New("launch failed")
)

// Command is a fully resolved external tool invocation.
// It is built completely before being handed to a Runner.
type Command struct {
	// Path is the absolute path of the tool binary
	Path string

	// Args are the arguments passed to the tool, not including Path
	Args []string

	// SecurityLabel is applied as the exec label of the child when non-empty
	SecurityLabel string

	// Timeout bounds the child's wall-clock time. Zero means unbounded.
	Timeout time.Duration
}

// String renders the command line for logging
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}
