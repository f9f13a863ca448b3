// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resourceconfig reads the resource configuration that tells
// the collector which scanned resources belong in the image.
//
// Configuration files are JSONC (JSON with // and /* */ comments and
// trailing commas):
//
//	{
//	  "resources": {
//	    "includes": [
//	      {"pattern": "META-INF/services/*"},
//	      {"pattern": "images/*", "module": "app",
//	       "condition": {"typeReachable": "app.Gallery"}},
//	    ],
//	    "excludes": [{"pattern": "images/*.psd", "module": "app"}],
//	  },
//	  "globs": [{"glob": "i18n/**/*.properties"}],
//	  "probes": [{"name": "logging.properties"}],
//	}
//
// Includes use the single-wildcard pattern syntax of
// resource.MatchResource; globs use the segment syntax of package
// globtrie. Probes name resources the image looks up at run time
// whether or not they exist; a probe no source provides becomes a
// negative entry.
package resourceconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/imageres/lib/globtrie"
	"github.com/bureau-foundation/imageres/lib/resource"
)

// Config is one parsed configuration file, or several merged.
type Config struct {
	Resources Resources `json:"resources"`
	Globs     []Glob    `json:"globs,omitempty"`
	Probes    []Probe   `json:"probes,omitempty"`
}

// Resources holds the pattern rules.
type Resources struct {
	Includes []Include `json:"includes,omitempty"`
	Excludes []Exclude `json:"excludes,omitempty"`
}

// Include admits resources matching Pattern in Module ("" for the
// unnamed module).
type Include struct {
	Pattern   string     `json:"pattern"`
	Module    string     `json:"module,omitempty"`
	Condition *Condition `json:"condition,omitempty"`
}

// Exclude removes resources an include would otherwise admit.
type Exclude struct {
	Pattern string `json:"pattern"`
	Module  string `json:"module,omitempty"`
}

// Glob admits resources matching a segment glob.
type Glob struct {
	Glob      string     `json:"glob"`
	Module    string     `json:"module,omitempty"`
	Condition *Condition `json:"condition,omitempty"`
}

// Probe names a resource the image queries at run time.
type Probe struct {
	Name   string `json:"name"`
	Module string `json:"module,omitempty"`
}

// Condition guards a rule on type reachability.
type Condition struct {
	TypeReachable string `json:"typeReachable"`
}

func (c *Condition) resource() resource.Condition {
	if c == nil {
		return resource.Always()
	}
	return resource.TypeReachable(c.TypeReachable)
}

// Parse decodes and validates a JSONC configuration.
func Parse(data []byte) (*Config, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()

	var config Config
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing resource configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ReadFile reads and parses the configuration at path.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// ReadFiles reads every path and merges the results in order.
func ReadFiles(paths ...string) (*Config, error) {
	configs := make([]*Config, 0, len(paths))
	for _, path := range paths {
		config, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return Merge(configs...), nil
}

// Merge concatenates configurations. Nil entries are skipped.
func Merge(configs ...*Config) *Config {
	merged := &Config{}
	for _, config := range configs {
		if config == nil {
			continue
		}
		merged.Resources.Includes = append(merged.Resources.Includes, config.Resources.Includes...)
		merged.Resources.Excludes = append(merged.Resources.Excludes, config.Resources.Excludes...)
		merged.Globs = append(merged.Globs, config.Globs...)
		merged.Probes = append(merged.Probes, config.Probes...)
	}
	return merged
}

// Validate reports every malformed rule.
func (c *Config) Validate() error {
	var errs []error
	for i, include := range c.Resources.Includes {
		if include.Pattern == "" {
			errs = append(errs, fmt.Errorf("resources.includes[%d]: pattern is required", i))
		}
		errs = append(errs, validateModule(fmt.Sprintf("resources.includes[%d]", i), include.Module))
		errs = append(errs, validateCondition(fmt.Sprintf("resources.includes[%d]", i), include.Condition))
	}
	for i, exclude := range c.Resources.Excludes {
		if exclude.Pattern == "" {
			errs = append(errs, fmt.Errorf("resources.excludes[%d]: pattern is required", i))
		}
		errs = append(errs, validateModule(fmt.Sprintf("resources.excludes[%d]", i), exclude.Module))
	}
	for i, glob := range c.Globs {
		if err := globtrie.Validate(glob.Glob); err != nil {
			errs = append(errs, fmt.Errorf("globs[%d]: %w", i, err))
		}
		errs = append(errs, validateModule(fmt.Sprintf("globs[%d]", i), glob.Module))
		errs = append(errs, validateCondition(fmt.Sprintf("globs[%d]", i), glob.Condition))
	}
	for i, probe := range c.Probes {
		if probe.Name == "" {
			errs = append(errs, fmt.Errorf("probes[%d]: name is required", i))
		}
		errs = append(errs, validateModule(fmt.Sprintf("probes[%d]", i), probe.Module))
	}
	return errors.Join(errs...)
}

func validateModule(field, module string) error {
	if strings.Contains(module, ":") {
		return fmt.Errorf("%s: module name %q contains ':'", field, module)
	}
	return nil
}

func validateCondition(field string, condition *Condition) error {
	if condition != nil && condition.TypeReachable == "" {
		return fmt.Errorf("%s: condition.typeReachable is required when condition is present", field)
	}
	return nil
}

// Apply records every include pattern and glob with the registry.
func (c *Config) Apply(registry *resource.Registry) error {
	for _, include := range c.Resources.Includes {
		registry.RegisterIncludePattern(include.Condition.resource(), include.Module, include.Pattern)
	}
	var errs []error
	for _, glob := range c.Globs {
		if err := registry.RegisterIncludeGlob(glob.Condition.resource(), glob.Module, glob.Glob); err != nil {
			errs = append(errs, fmt.Errorf("glob %q: %w", glob.Glob, err))
		}
	}
	return errors.Join(errs...)
}
