// Package mount provides mount(2)/umount(2) calls and mount table queries.
//
// # Logging Verbosity Convention
//
// This package follows Kubernetes logging conventions for verbosity levels:
//
//   - V(0): Always visible - programmer errors, panics
//   - V(2): Production default - operation outcomes, state changes
//     Examples: "Successfully unmounted /mnt/media_rw/1234-ABCD"
//   - V(4): Debug level - intermediate steps, parameters, diagnostics
//     Examples: "Checking if /mnt/media_rw/1234-ABCD is a mount point"
//   - V(5): Trace level - mount table parsing details
//
// V(3) is avoided in favor of V(2) (if actionable) or V(4) (if diagnostic).
package mount
