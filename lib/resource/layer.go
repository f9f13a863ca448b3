// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"fmt"
)

// LayerSnapshot is the persisted view of one completed build layer:
// three parallel lists (key strings, positive flags, pattern strings)
// plus the module names the layer introduced. Keys and Positive have
// equal length; Positive[i] is false for a negative marker.
type LayerSnapshot struct {
	Keys     []string
	Positive []bool
	Patterns []string
	Modules  []string
}

// Validate checks the parallel-list invariants.
func (s LayerSnapshot) Validate() error {
	if len(s.Keys) != len(s.Positive) {
		return fmt.Errorf("layer snapshot has %d keys but %d positive flags", len(s.Keys), len(s.Positive))
	}
	seen := make(map[string]struct{}, len(s.Keys))
	for _, key := range s.Keys {
		if _, _, err := ParseKey(key); err != nil {
			return err
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("layer snapshot repeats key %q", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// PreviousLayer is the read-only view a building layer has of every
// layer completed before it. A nil *PreviousLayer is empty.
type PreviousLayer struct {
	resources map[string]bool
	patterns  map[string]struct{}
	modules   map[string]struct{}
}

// NewPreviousLayer merges snapshots, oldest first. A key that is
// negative in an earlier snapshot and positive in a later one is
// positive. A snapshot that fails Validate, or a key that a later
// snapshot marks negative after an earlier one held it positively, is
// an error.
//
// Panics if two snapshots introduce the same module name: each module
// is defined by exactly one layer.
func NewPreviousLayer(snapshots ...LayerSnapshot) (*PreviousLayer, error) {
	layer := &PreviousLayer{
		resources: make(map[string]bool),
		patterns:  make(map[string]struct{}),
		modules:   make(map[string]struct{}),
	}
	for index, snapshot := range snapshots {
		if err := snapshot.Validate(); err != nil {
			return nil, fmt.Errorf("layer %d: %w", index, err)
		}
		for _, module := range snapshot.Modules {
			if _, exists := layer.modules[module]; exists {
				panic(fmt.Sprintf("resource: module %q is defined by more than one layer", module))
			}
			layer.modules[module] = struct{}{}
		}
		for i, key := range snapshot.Keys {
			positive := snapshot.Positive[i]
			if previous, exists := layer.resources[key]; exists && previous && !positive {
				return nil, fmt.Errorf("layer %d: key %q is negative but an earlier layer holds it", index, key)
			}
			layer.resources[key] = positive
		}
		for _, pattern := range snapshot.Patterns {
			layer.patterns[pattern] = struct{}{}
		}
	}
	return layer, nil
}

// Contains reports whether any previous layer recorded key, positive
// or negative.
func (l *PreviousLayer) Contains(key string) bool {
	if l == nil {
		return false
	}
	_, ok := l.resources[key]
	return ok
}

// Positive reports whether a previous layer holds key with a
// non-negative entry.
func (l *PreviousLayer) Positive(key string) bool {
	if l == nil {
		return false
	}
	return l.resources[key]
}

// HasPattern reports whether a previous layer recorded the persisted
// pattern string.
func (l *PreviousLayer) HasPattern(pattern string) bool {
	if l == nil {
		return false
	}
	_, ok := l.patterns[pattern]
	return ok
}

// HasModule reports whether a previous layer introduced module.
func (l *PreviousLayer) HasModule(module string) bool {
	if l == nil {
		return false
	}
	_, ok := l.modules[module]
	return ok
}

// Len returns the number of keys recorded by previous layers.
func (l *PreviousLayer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.resources)
}
