// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collect scans resource sources (directories and zip or jar
// archives) and registers what the resource configuration admits.
//
// Sources are scanned concurrently; registration is safe for that
// because the registry serializes every mutation. Within one source
// entries are visited in a fixed order, so the blobs of a name that
// several sources provide keep the order of the sources only when a
// single worker is used.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/imageres/lib/resource"
	"github.com/bureau-foundation/imageres/lib/resourceconfig"
)

// Source is one directory or archive whose contents belong to Module
// (nil for the unnamed module).
type Source struct {
	Path   string
	Module *resource.Module
}

func (s Source) String() string {
	if s.Module.IsNamed() {
		return s.Path + "=" + s.Module.Name()
	}
	return s.Path
}

// Options configures a Collector.
type Options struct {
	Registry *resource.Registry

	// Config selects resources and lists probes. Nil admits every
	// resource and has no probes.
	Config *resourceconfig.Config

	// FailOnIOError makes a read failure abort the scan instead of
	// being recorded for run-time replay.
	FailOnIOError bool

	// Workers bounds concurrently scanned sources. Zero uses
	// GOMAXPROCS.
	Workers int

	Logger *slog.Logger
}

// Stats counts what a Run did.
type Stats struct {
	Files       int64
	Directories int64
	Registered  int64
	Skipped     int64
	Failures    int64
	Negatives   int64
}

// Collector drives one scan.
type Collector struct {
	registry      *resource.Registry
	config        *resourceconfig.Config
	matcher       *resourceconfig.Matcher
	failOnIOError bool
	workers       int
	logger        *slog.Logger

	files, directories, registered, skipped, failures, negatives atomic.Int64

	// err is a configuration error Run reports before scanning.
	err error

	mu       sync.Mutex
	produced map[string]struct{}
}

// New returns a collector. Panics if no registry is given. A
// configuration that does not compile is reported by Run.
func New(options Options) *Collector {
	if options.Registry == nil {
		panic("collect: Options.Registry is required")
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Workers <= 0 {
		options.Workers = runtime.GOMAXPROCS(0)
	}
	collector := &Collector{
		registry:      options.Registry,
		config:        options.Config,
		failOnIOError: options.FailOnIOError,
		workers:       options.Workers,
		logger:        options.Logger.With("component", "collect"),
		produced:      make(map[string]struct{}),
	}
	if options.Config != nil {
		collector.matcher, collector.err = options.Config.Matcher()
	}
	return collector
}

// Run scans every source, then records configured probes that no
// source provided as negative queries. It stops at the first source
// error or when ctx is cancelled.
func (c *Collector) Run(ctx context.Context, sources []Source) (Stats, error) {
	if c.err != nil {
		return Stats{}, fmt.Errorf("compiling resource configuration: %w", c.err)
	}
	group, scanCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)
	for _, source := range sources {
		group.Go(func() error {
			if err := c.scan(scanCtx, source); err != nil {
				return fmt.Errorf("scanning %s: %w", source, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return c.stats(), err
	}
	if err := ctx.Err(); err != nil {
		return c.stats(), err
	}
	c.recordProbes(sources)

	stats := c.stats()
	c.logger.Info("resource scan complete",
		"sources", len(sources),
		"files", stats.Files,
		"registered", stats.Registered,
		"failures", stats.Failures,
		"negatives", stats.Negatives,
	)
	return stats, nil
}

func (c *Collector) stats() Stats {
	return Stats{
		Files:       c.files.Load(),
		Directories: c.directories.Load(),
		Registered:  c.registered.Load(),
		Skipped:     c.skipped.Load(),
		Failures:    c.failures.Load(),
		Negatives:   c.negatives.Load(),
	}
}

func (c *Collector) scan(ctx context.Context, source Source) error {
	if isArchive(source.Path) {
		return c.scanArchive(ctx, source)
	}
	return c.scanDirectory(ctx, source)
}

func isArchive(name string) bool {
	extension := strings.ToLower(path.Ext(name))
	return extension == ".zip" || extension == ".jar"
}

// admit reports whether name is selected, with its condition.
func (c *Collector) admit(module *resource.Module, name string) (resource.Condition, bool) {
	if c.matcher == nil {
		return resource.Always(), true
	}
	return c.matcher.Match(module.Name(), name)
}

// addFile registers one scanned file. read is only called when the
// file is admitted.
func (c *Collector) addFile(module *resource.Module, name string, fromArchive bool, read func() ([]byte, error)) error {
	c.files.Add(1)
	condition, ok := c.admit(module, name)
	if !ok {
		c.skipped.Add(1)
		return nil
	}
	c.markProduced(module, name)

	data, err := read()
	if err != nil {
		c.failures.Add(1)
		return c.registry.RegisterIOException(module, name, err, c.failOnIOError)
	}
	c.registry.RegisterConditionalResource(condition, module, name, data, fromArchive)
	c.registered.Add(1)
	return nil
}

// addDirectory registers a directory listing when the directory is
// admitted. The root directory ("") is never registered.
func (c *Collector) addDirectory(module *resource.Module, name string, children []string, fromArchive bool) {
	if name == "" {
		return
	}
	c.directories.Add(1)
	condition, ok := c.admit(module, name)
	if !ok {
		c.skipped.Add(1)
		return
	}
	c.markProduced(module, name)
	sort.Strings(children)
	c.registry.RegisterConditionalDirectoryResource(condition, module, name, strings.Join(children, "\n"), fromArchive)
	c.registered.Add(1)
}

func producedKey(moduleName, name string) string {
	return moduleName + ":" + resource.Canonicalize(name)
}

func (c *Collector) markProduced(module *resource.Module, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.produced[producedKey(module.Name(), name)] = struct{}{}
}

// recordProbes registers a negative query for each probe no source
// produced. Probes for modules none of the sources define are skipped.
func (c *Collector) recordProbes(sources []Source) {
	if c.config == nil {
		return
	}
	modules := make(map[string]*resource.Module)
	for _, source := range sources {
		if source.Module.IsNamed() {
			modules[source.Module.Name()] = source.Module
		}
	}
	for _, probe := range c.config.Probes {
		if _, ok := c.produced[producedKey(probe.Module, probe.Name)]; ok {
			continue
		}
		var module *resource.Module
		if probe.Module != "" {
			found, ok := modules[probe.Module]
			if !ok {
				c.logger.Warn("skipping probe for unknown module", "module", probe.Module, "resource", probe.Name)
				continue
			}
			module = found
		}
		c.registry.RegisterNegativeQuery(module, probe.Name)
		c.negatives.Add(1)
	}
}
