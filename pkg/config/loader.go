// Package config loads vfat.Config from built-in defaults, an optional
// YAML or JSON file, and explicit overrides, in that order.
package config

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/vfatvol/pkg/vfat"
)

//go:embed default.yaml
var defaultConfig []byte

// Format identifies a configuration file syntax
type Format string

const (
	JSONFormat Format = "json"
	YAMLFormat Format = "yaml"
	YMLFormat  Format = "yml"
)

var parserMap = map[Format]func() koanf.Parser{
	JSONFormat: func() koanf.Parser { return json.Parser() },
	YAMLFormat: func() koanf.Parser { return yaml.Parser() },
	YMLFormat:  func() koanf.Parser { return yaml.Parser() },
}

// GetParser returns the parser for format
func GetParser(format Format) (koanf.Parser, error) {
	if parserFunc, ok := parserMap[format]; ok {
		return parserFunc(), nil
	}
	return nil, fmt.Errorf("no parser for config format %q", format)
}

// FormatOf derives the config format from a file extension
func FormatOf(path string) Format {
	return Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
}

// Loader layers configuration sources
type Loader struct {
	kf *koanf.Koanf
}

// NewLoader creates a Loader seeded with the built-in defaults
func NewLoader() (*Loader, error) {
	l := &Loader{kf: koanf.New(".")}
	if err := l.load(YAMLFormat, rawbytes.Provider(defaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	return l, nil
}

func (l *Loader) load(format Format, provider koanf.Provider) error {
	parser, err := GetParser(format)
	if err != nil {
		return err
	}
	return l.kf.Load(provider, parser)
}

// LoadFile merges the file at path over the current values.
// The format is chosen by extension: .yaml, .yml or .json.
func (l *Loader) LoadFile(path string) error {
	if err := l.load(FormatOf(path), file.Provider(path)); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	klog.V(4).Infof("Loaded config file %s", path)
	return nil
}

// Set overrides a single key, e.g. from a command-line flag
func (l *Loader) Set(key string, value interface{}) error {
	return l.kf.Set(key, value)
}

// Config unmarshals and validates the merged configuration
func (l *Loader) Config() (vfat.Config, error) {
	var c vfat.Config
	if err := l.kf.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return vfat.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return vfat.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// Print returns the merged key/value pairs for debugging
func (l *Loader) Print() string {
	return l.kf.Sprint()
}
