// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/imageres/lib/compression"
)

// Enforcement selects how the image treats lookups of resources that
// were never registered.
type Enforcement string

const (
	// Permissive treats an unregistered resource as absent.
	Permissive Enforcement = "permissive"
	// Strict reports an unregistered resource as a missing
	// registration unless an include pattern covers it.
	Strict Enforcement = "strict"
)

// Config is the imageres tool configuration.
type Config struct {
	// Layered keys resources by module name so the output can serve
	// as a previous layer for a later build. Standalone builds key by
	// module instance.
	Layered bool `yaml:"layered"`

	// Enforcement is the lookup mode recorded for the run-time image.
	Enforcement Enforcement `yaml:"enforcement"`

	// FailOnIOError aborts collection at the first unreadable
	// resource. Otherwise the failure is stored and replayed when the
	// resource is looked up.
	FailOnIOError bool `yaml:"fail_on_io_error"`

	// Compression is the per-blob compression policy for the bundle:
	// auto, none, lz4 or zstd.
	Compression string `yaml:"compression"`

	// Workers bounds concurrently scanned sources. Zero uses one per
	// CPU.
	Workers int `yaml:"workers"`

	// Paths configures input and output locations.
	Paths PathsConfig `yaml:"paths"`

	// Sources are the directories and archives to collect, in
	// precedence order.
	Sources []SourceConfig `yaml:"sources"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// ResourceConfigs are JSONC resource configuration files, merged
	// in order.
	ResourceConfigs []string `yaml:"resource_configs"`

	// PreviousLayers are layer snapshot files of the layers this
	// build extends.
	PreviousLayers []string `yaml:"previous_layers"`

	// OutputDir receives resources.bundle and layer.snapshot.
	// Default: ./imageres-out
	OutputDir string `yaml:"output_dir"`
}

// SourceConfig names a directory or .zip/.jar archive and the module
// that owns its contents ("" for the unnamed module).
type SourceConfig struct {
	Path   string `yaml:"path"`
	Module string `yaml:"module,omitempty"`
}

func (s SourceConfig) String() string {
	if s.Module == "" {
		return s.Path
	}
	return s.Path + "=" + s.Module
}

// ParseSource parses the command-line form PATH or PATH=MODULE.
func ParseSource(s string) (SourceConfig, error) {
	path, module, _ := strings.Cut(s, "=")
	if path == "" {
		return SourceConfig{}, fmt.Errorf("source %q has no path", s)
	}
	if strings.Contains(s, "=") && module == "" {
		return SourceConfig{}, fmt.Errorf("source %q has an empty module name", s)
	}
	return SourceConfig{Path: path, Module: module}, nil
}

// Default returns the configuration values used for fields the file
// leaves unset.
func Default() *Config {
	return &Config{
		Enforcement: Permissive,
		Compression: string(compression.Auto),
		Paths: PathsConfig{
			OutputDir: "imageres-out",
		},
	}
}

// Load loads configuration from the file named by IMAGERES_CONFIG.
//
// There is no search path: if IMAGERES_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("IMAGERES_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("IMAGERES_CONFIG environment variable not set; " +
			"set it to the path of your imageres.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Path fields
// have ${VAR} and ${VAR:-default} references expanded; no other
// environment variable affects the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) parse(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty file decodes as io.EOF and leaves the defaults.
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
// ${CONFIG_DIR} is the directory holding the configuration file.
func (c *Config) expandVariables(configDir string) {
	vars := map[string]string{
		"CONFIG_DIR": configDir,
		"HOME":       os.Getenv("HOME"),
	}

	for i := range c.Paths.ResourceConfigs {
		c.Paths.ResourceConfigs[i] = expandVars(c.Paths.ResourceConfigs[i], vars)
	}
	for i := range c.Paths.PreviousLayers {
		c.Paths.PreviousLayers[i] = expandVars(c.Paths.PreviousLayers[i], vars)
	}
	c.Paths.OutputDir = expandVars(c.Paths.OutputDir, vars)
	for i := range c.Sources {
		c.Sources[i].Path = expandVars(c.Sources[i].Path, vars)
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Strict reports whether enforcement is strict.
func (c *Config) Strict() bool {
	return c.Enforcement == Strict
}

// CompressionPolicy returns the parsed compression policy. Call
// Validate first; an invalid value yields compression.Auto.
func (c *Config) CompressionPolicy() compression.Policy {
	policy, err := compression.ParsePolicy(c.Compression)
	if err != nil {
		return compression.Auto
	}
	return policy
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Enforcement != Strict && c.Enforcement != Permissive {
		errs = append(errs, fmt.Errorf("enforcement must be %q or %q, got %q", Strict, Permissive, c.Enforcement))
	}
	if _, err := compression.ParsePolicy(c.Compression); err != nil {
		errs = append(errs, fmt.Errorf("compression: %w", err))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Paths.OutputDir == "" {
		errs = append(errs, fmt.Errorf("paths.output_dir is required"))
	}
	if len(c.Paths.PreviousLayers) > 0 && !c.Layered {
		errs = append(errs, fmt.Errorf("paths.previous_layers requires layered: true"))
	}

	for i, source := range c.Sources {
		if source.Path == "" {
			errs = append(errs, fmt.Errorf("sources[%d].path is required", i))
		}
		if strings.Contains(source.Module, ":") {
			errs = append(errs, fmt.Errorf("sources[%d].module %q contains ':'", i, source.Module))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the output directory if it doesn't exist.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Paths.OutputDir, err)
	}
	return nil
}
