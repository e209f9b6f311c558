// Package proc runs privileged work on behalf of the volume operations.
//
// Two capabilities are provided:
//
//   - Runner executes an external tool to completion and reports its exit
//     status, optionally under a security label and a wall-clock timeout.
//   - TaskRunner executes a function in an isolated worker bounded by a
//     timeout. The caller stops waiting when the deadline passes and the
//     worker is abandoned.
//
// Both report ErrTimeout when the deadline passes and ErrLaunch when the work
// could not be started at all. Callers use errors.Is to tell them apart.
package proc
