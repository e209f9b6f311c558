package utils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sentinel errors for path validation.
// Use errors.Is() to check for these rather than string matching.
var (
	// ErrEmptyPath indicates no path was supplied
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrDangerousCharacter indicates the path carries a shell or control character
	ErrDangerousCharacter = errors.New("path contains dangerous character")

	// ErrPathTraversal indicates the path is not in canonical form
	ErrPathTraversal = errors.New("path contains traversal sequences or unnecessary components")

	// ErrNotAbsolute indicates a relative path
	ErrNotAbsolute = errors.New("path must be absolute")

	// ErrOutsideBase indicates the path escapes its required base directory
	ErrOutsideBase = errors.New("path is not within base path")
)

// Shell metacharacters that could be used for command injection.
// Device paths such as /dev/block/vold/public:179,1 use ':' and ','
// so neither is listed.
var dangerousCharacters = []string{
	";",    // Command separator
	"|",    // Pipe
	"&",    // Background/AND
	"$",    // Variable expansion
	"`",    // Command substitution
	"(",    // Subshell
	")",    // Subshell
	"<",    // Input redirection
	">",    // Output redirection
	"\n",   // Newline (command separator)
	"\r",   // Carriage return
	"*",    // Glob wildcard
	"?",    // Glob wildcard
	"[",    // Glob wildcard
	"]",    // Glob wildcard
	"'",    // String delimiter (can break out of quotes)
	"\"",   // String delimiter (can break out of quotes)
	"\\",   // Escape character
	"\t",   // Tab (can cause parsing issues)
	"\x00", // Null byte
}

// ValidatePath validates that a device or mount point path is safe to hand
// to an external tool or the mount syscall. It checks for:
// - Shell metacharacters that could enable command injection
// - Path traversal attempts (../) and redundant components (//, ./)
// - Absolute path requirements
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	for _, char := range dangerousCharacters {
		if strings.Contains(path, char) {
			return fmt.Errorf("%w %q: %s", ErrDangerousCharacter, char, path)
		}
	}

	// Clean the path to resolve any ./ or ../ components
	cleanPath := filepath.Clean(path)

	// Check if cleaning changed the path (indicates traversal attempt)
	if cleanPath != path {
		return fmt.Errorf("%w: %s (cleaned: %s)", ErrPathTraversal, path, cleanPath)
	}

	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("%w: %s", ErrNotAbsolute, path)
	}

	return nil
}

// ValidatePathWithBase validates a path and ensures it's within a specific base path
func ValidatePathWithBase(path, basePath string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	if basePath == "" {
		return fmt.Errorf("base path: %w", ErrEmptyPath)
	}

	cleanBase := filepath.Clean(basePath)
	if path != cleanBase && !strings.HasPrefix(path, cleanBase+"/") && cleanBase != "/" {
		return fmt.Errorf("%w: %s (base: %s)", ErrOutsideBase, path, cleanBase)
	}

	return nil
}
