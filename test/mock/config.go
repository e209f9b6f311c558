// Package mock provides environment-configurable fakes for the volume
// collaborators: the external tool runner, the task runner and the mounter.
//
// Environment Variables:
//
// Timing Control:
//   - MOCK_VFAT_REALISTIC_TIMING: Enable realistic timing simulation (default: false)
//   - MOCK_VFAT_MOUNT_DELAY_MS: Mount syscall delay in ms (default: 100)
//   - MOCK_VFAT_TOOL_DELAY_MS: Check/format tool run time in ms (default: 300)
//   - MOCK_VFAT_DELAY_JITTER_MS: Delay jitter range in ms (default: 50)
//
// Error Injection:
//   - MOCK_VFAT_ERROR_MODE: Error injection mode (none|launch|timeout|readonly_medium|mount_fail)
//   - MOCK_VFAT_ERROR_AFTER_N: Fail after N operations (default: 0 = immediate)
package mock

import (
	"os"
	"strconv"
)

// MockConfig holds configuration for mock behavior
type MockConfig struct {
	// Timing control
	RealisticTiming bool // MOCK_VFAT_REALISTIC_TIMING (default: false)
	MountDelayMs    int  // MOCK_VFAT_MOUNT_DELAY_MS (default: 100)
	ToolDelayMs     int  // MOCK_VFAT_TOOL_DELAY_MS (default: 300)
	DelayJitterMs   int  // MOCK_VFAT_DELAY_JITTER_MS (default: 50)

	// Error injection
	ErrorMode   string // MOCK_VFAT_ERROR_MODE (none|launch|timeout|readonly_medium|mount_fail)
	ErrorAfterN int    // MOCK_VFAT_ERROR_AFTER_N (fail after N operations, default: 0 = immediate)
}

// LoadConfigFromEnv loads mock configuration from environment variables
func LoadConfigFromEnv() MockConfig {
	return MockConfig{
		RealisticTiming: getEnvBool("MOCK_VFAT_REALISTIC_TIMING", false),
		MountDelayMs:    getEnvInt("MOCK_VFAT_MOUNT_DELAY_MS", 100),
		ToolDelayMs:     getEnvInt("MOCK_VFAT_TOOL_DELAY_MS", 300),
		DelayJitterMs:   getEnvInt("MOCK_VFAT_DELAY_JITTER_MS", 50),
		ErrorMode:       getEnvString("MOCK_VFAT_ERROR_MODE", "none"),
		ErrorAfterN:     getEnvInt("MOCK_VFAT_ERROR_AFTER_N", 0),
	}
}

// getEnvBool reads a boolean environment variable with a default value
func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1" || val == "yes"
}

// getEnvInt reads an integer environment variable with a default value
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvString reads a string environment variable with a default value
func getEnvString(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
