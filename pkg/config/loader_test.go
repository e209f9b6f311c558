package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// loadConfig merges the file at path, if any, over the defaults
func loadConfig(path string) (vfat.Config, error) {
	l, err := NewLoader()
	if err != nil {
		return vfat.Config{}, err
	}
	if path != "" {
		if err := l.LoadFile(path); err != nil {
			return vfat.Config{}, err
		}
	}
	return l.Config()
}

func TestLoad_Defaults(t *testing.T) {
	c, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, vfat.DefaultConfig(), c, "embedded defaults must match vfat.DefaultConfig")
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "vfat.yaml", `
fsckPath: /vendor/bin/fsck_msdos
checkTimeout: 90s
untrustedContext: ""
`)

	c, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/vendor/bin/fsck_msdos", c.FsckPath)
	assert.Equal(t, 90*time.Second, c.CheckTimeout)
	assert.Empty(t, c.UntrustedContext)
	// Unset keys keep their defaults
	assert.Equal(t, vfat.DefaultMkfsPath, c.MkfsPath)
	assert.Equal(t, vfat.DefaultMountTimeout, c.MountTimeout)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "vfat.json", `{"mountTimeout": "5s", "lostDirName": "LOST"}`)

	c, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.MountTimeout)
	assert.Equal(t, "LOST", c.LostDirName)
}

func TestLoad_YMLExtension(t *testing.T) {
	path := writeFile(t, "vfat.YML", "fsType: msdos\n")

	c, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "msdos", c.FSType)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
		},
		{
			name: "unknown extension",
			path: func(t *testing.T) string { return writeFile(t, "vfat.toml", "fsType = 'vfat'\n") },
		},
		{
			name: "malformed yaml",
			path: func(t *testing.T) string { return writeFile(t, "vfat.yaml", "fsckPath: [unterminated\n") },
		},
		{
			name: "invalid value",
			path: func(t *testing.T) string { return writeFile(t, "vfat.yaml", "fsckPath: relative/fsck\n") },
		},
		{
			name: "bad duration",
			path: func(t *testing.T) string { return writeFile(t, "vfat.yaml", "checkTimeout: soon\n") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.path(t))
			assert.Error(t, err)
		})
	}
}

func TestLoader_SetOverridesFile(t *testing.T) {
	path := writeFile(t, "vfat.yaml", "mountTimeout: 30s\nfsckPath: /vendor/bin/fsck_msdos\n")

	l, err := NewLoader()
	require.NoError(t, err)
	require.NoError(t, l.LoadFile(path))
	require.NoError(t, l.Set("mountTimeout", 3*time.Second))

	c, err := l.Config()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.MountTimeout)
	assert.Equal(t, "/vendor/bin/fsck_msdos", c.FsckPath)
	assert.Contains(t, l.Print(), "fsckPath")
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, YAMLFormat, FormatOf("/etc/vfat.yaml"))
	assert.Equal(t, YMLFormat, FormatOf("vfat.YML"))
	assert.Equal(t, JSONFormat, FormatOf("vfat.json"))
	assert.Equal(t, Format(""), FormatOf("vfat"))
}
