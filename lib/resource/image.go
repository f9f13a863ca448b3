// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ImageOptions configures the run-time query view.
type ImageOptions struct {
	// Strict enables missing-registration enforcement. When false, an
	// unregistered resource behaves exactly like an absent one.
	Strict bool

	// Modules is the boot module layer scanned when a stream or URL
	// request names no module.
	Modules *ModuleLayer

	// Reachability decides condition satisfaction. Nil reaches
	// nothing, so only unconditional entries are visible.
	Reachability Reachability

	// Reporter receives diagnostics for direct accesses. Nil logs
	// through LogReporter.
	Reporter Reporter

	Logger *slog.Logger
}

// Image answers run-time resource queries across every frozen layer
// of an image. It is safe for concurrent use and takes no locks.
type Image struct {
	layers   []*Store
	mode     KeyMode
	strict   bool
	modules  *ModuleLayer
	reached  Reachability
	reporter Reporter
}

// NewImage builds the query view. Panics if a layer is still open or
// the layers disagree on key mode.
func NewImage(options ImageOptions, layers ...*Store) *Image {
	image := &Image{
		layers:   layers,
		strict:   options.Strict,
		modules:  options.Modules,
		reached:  options.Reachability,
		reporter: options.Reporter,
	}
	for i, layer := range layers {
		if !layer.Frozen() {
			panic(fmt.Sprintf("resource: layer %d is not frozen", i))
		}
		if i == 0 {
			image.mode = layer.mode
		} else if layer.mode != image.mode {
			panic(fmt.Sprintf("resource: layer %d uses %s keys, layer 0 uses %s keys", i, layer.mode, image.mode))
		}
	}
	if image.reporter == nil {
		logger := options.Logger
		if logger == nil {
			logger = slog.Default()
		}
		image.reporter = LogReporter{Logger: logger.With("component", "resource-image")}
	}
	return image
}

// Strict reports whether missing-registration enforcement is on.
func (i *Image) Strict() bool { return i.strict }

// Timestamp returns the latest build timestamp across layers.
func (i *Image) Timestamp() time.Time {
	var latest time.Time
	for _, layer := range i.layers {
		if stamp := layer.Timestamp(); stamp.After(latest) {
			latest = stamp
		}
	}
	return latest
}

// Listing is one resource an image serves.
type Listing struct {
	Key   Key
	Entry *Entry
}

// List returns every resource with a visible data or exception entry,
// each key once with the entry Lookup would serve, in layer order and
// then registration order.
func (i *Image) List() []Listing {
	seen := make(map[Key]struct{})
	var listings []Listing
	for _, layer := range i.layers {
		for _, record := range layer.Records() {
			if _, ok := seen[record.Key]; ok {
				continue
			}
			seen[record.Key] = struct{}{}
			entry := i.find(record.Key)
			if entry == nil || entry.kind == KindNegative {
				continue
			}
			listings = append(listings, Listing{Key: record.Key, Entry: entry})
		}
	}
	return listings
}

// Lookup resolves (module, name). It returns the entry when a visible
// non-negative entry matches; (nil, nil) when the resource is absent;
// a *ResourceError when the entry replays a read failure; and, under
// strict enforcement, a *MissingRegistrationError when nothing covers
// the resource. The diagnostic is reported unless probing.
func (i *Image) Lookup(module *Module, name string, probing bool) (*Entry, error) {
	canonical := Canonicalize(name)
	entry := i.find(NewKey(i.mode, module, canonical))
	if entry == nil {
		return nil, i.miss(module, name, canonical, probing)
	}
	switch entry.kind {
	case KindException:
		return nil, &ResourceError{Module: module.Name(), Name: canonical, Err: entry.err}
	case KindNegative:
		return nil, nil
	}
	if entry.fromArchive && strings.TrimSuffix(name, "/") != canonical {
		return nil, nil
	}
	if !entry.directory && strings.HasSuffix(name, "/") {
		return nil, nil
	}
	return entry, nil
}

// find returns the first visible non-negative entry across layers,
// else a visible negative marker, else nil.
func (i *Image) find(key Key) *Entry {
	var negative *Entry
	for _, layer := range i.layers {
		entry, conditions, ok := layer.Entry(key)
		if !ok || !conditions.Satisfied(i.reached) {
			continue
		}
		if entry.kind != KindNegative {
			return entry
		}
		negative = entry
	}
	return negative
}

func (i *Image) miss(module *Module, name, canonical string, probing bool) error {
	if !i.strict {
		return nil
	}
	moduleName := module.Name()
	for _, layer := range i.layers {
		if layer.matchesInclude(moduleName, name, canonical) {
			return nil
		}
	}
	err := &MissingRegistrationError{Module: moduleName, Name: name}
	if !probing {
		i.reporter.ReportMissingRegistration(err)
	}
	return err
}

// lookupProbe is Lookup with probing set, splitting the missing
// registration case out of the error.
func (i *Image) lookupProbe(module *Module, name string) (*Entry, *MissingRegistrationError, error) {
	entry, err := i.Lookup(module, name, true)
	var missing *MissingRegistrationError
	if errors.As(err, &missing) {
		return nil, missing, nil
	}
	return entry, nil, err
}
