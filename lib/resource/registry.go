// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/imageres/lib/clock"
)

// Options configures a Registry.
type Options struct {
	// Layered selects name-keyed keys. Required when Previous is set.
	Layered bool

	// Previous is the view of completed layers. Nil for the first (or
	// only) layer.
	Previous *PreviousLayer

	// Clock supplies the build timestamp. Nil uses clock.Real().
	Clock clock.Clock

	// Logger receives registration warnings. Nil uses slog.Default().
	Logger *slog.Logger

	// RemapModule maps a build-time module to the module instance the
	// image uses at run time. Applied to instance-keyed keys only.
	// Nil is the identity.
	RemapModule func(*Module) *Module
}

// Registry is the build-time entry point for one layer. It is safe
// for concurrent use by scanners until Freeze.
type Registry struct {
	store    *Store
	previous *PreviousLayer
	clock    clock.Clock
	logger   *slog.Logger
	remap    func(*Module) *Module
}

// NewRegistry returns a registry over a fresh store. Panics if a
// previous layer is given for a non-layered build.
func NewRegistry(options Options) *Registry {
	if options.Previous != nil && !options.Layered {
		panic("resource: previous layer requires a layered build")
	}
	mode := KeyByInstance
	if options.Layered {
		mode = KeyByName
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Registry{
		store:    newStore(mode),
		previous: options.Previous,
		clock:    options.Clock,
		logger:   options.Logger.With("component", "resource-registry"),
		remap:    options.RemapModule,
	}
}

// Store returns the layer store the registry populates.
func (r *Registry) Store() *Store { return r.store }

// Key builds the key for (module, name) under the registry's mode.
// The name is canonicalized.
func (r *Registry) Key(module *Module, name string) Key {
	if r.store.mode == KeyByInstance && r.remap != nil && module.IsNamed() {
		module = r.remap(module)
	}
	return NewKey(r.store.mode, module, Canonicalize(name))
}

// RegisterResource records data for (module, name), unconditionally.
func (r *Registry) RegisterResource(module *Module, name string, data []byte, fromArchive bool) {
	r.addData(Always(), module, name, data, false, fromArchive)
}

// RegisterConditionalResource records data visible only when
// condition is satisfied at run time.
func (r *Registry) RegisterConditionalResource(condition Condition, module *Module, name string, data []byte, fromArchive bool) {
	r.addData(condition, module, name, data, false, fromArchive)
}

// RegisterDirectoryResource records a directory whose content is the
// newline-joined names of its children.
func (r *Registry) RegisterDirectoryResource(module *Module, dir, listing string, fromArchive bool) {
	r.addData(Always(), module, dir, []byte(listing), true, fromArchive)
}

// RegisterConditionalDirectoryResource is RegisterDirectoryResource
// guarded by condition.
func (r *Registry) RegisterConditionalDirectoryResource(condition Condition, module *Module, dir, listing string, fromArchive bool) {
	r.addData(condition, module, dir, []byte(listing), true, fromArchive)
}

// addData creates or extends a data entry. A negative marker is
// replaced. A duplicate registration of a module-scoped key is the
// same physical resource and only widens the conditions; for the
// unnamed module each registration appends a blob, one per classpath
// source shadowing the name. Exception entries are kept.
func (r *Registry) addData(condition Condition, module *Module, name string, data []byte, directory, fromArchive bool) {
	key := r.Key(module, name)
	blob := bytes.Clone(data)
	if blob == nil {
		blob = []byte{}
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkOpen()

	if r.previous.Positive(key.String()) {
		r.logger.Debug("resource already present in previous layer", "key", key.String())
		return
	}

	existing, ok := s.entries[key]
	if !ok {
		s.insert(key, newConditionSet(condition), NewDataEntry(directory, fromArchive, blob))
		s.touch(r.clock.Now)
		return
	}
	switch existing.entry.kind {
	case KindNegative:
		existing.entry = NewDataEntry(directory, fromArchive, blob)
		existing.conditions = newConditionSet(condition)
		s.touch(r.clock.Now)
	case KindException:
		r.logger.Warn("ignoring resource data registered after a read failure",
			"key", key.String(),
			"error", existing.entry.err,
		)
	case KindData:
		existing.conditions = existing.conditions.with(condition)
		if key.IsModuleScoped() {
			return
		}
		existing.entry = existing.entry.withBlob(blob)
		s.touch(r.clock.Now)
	}
}

// RegisterIOException records that reading (module, name) failed. With
// failBuild the failure is returned immediately as a *ResourceError
// and nothing is recorded; otherwise an exception entry replays it on
// every run-time access.
func (r *Registry) RegisterIOException(module *Module, name string, err error, failBuild bool) error {
	key := r.Key(module, name)

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkOpen()

	if failBuild {
		return &ResourceError{Module: key.ModuleName(), Name: key.Name(), Err: err}
	}
	if r.previous.Positive(key.String()) {
		return nil
	}
	r.logger.Warn("resource read failed, deferring failure to run time",
		"key", key.String(),
		"error", err,
	)
	entry := NewExceptionEntry(err)
	if existing, ok := s.entries[key]; ok {
		existing.entry = entry
		existing.conditions = ConditionSet{}
	} else {
		s.insert(key, ConditionSet{}, entry)
	}
	s.touch(r.clock.Now)
	return nil
}

// RegisterNegativeQuery records that (module, name) was looked up and
// is absent. It never replaces an existing entry and is skipped when a
// previous layer already recorded the key.
func (r *Registry) RegisterNegativeQuery(module *Module, name string) {
	key := r.Key(module, name)

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkOpen()

	if r.previous.Contains(key.String()) {
		return
	}
	if _, ok := s.entries[key]; ok {
		return
	}
	s.insert(key, ConditionSet{}, negativeEntry)
}

// RegisterIncludePattern records a MatchResource pattern for
// moduleName ("" for the unnamed module). Patterns suppress
// missing-registration diagnostics under strict enforcement.
func (r *Registry) RegisterIncludePattern(condition Condition, moduleName, pattern string) {
	rule := PatternRule{ModuleName: moduleName, Pattern: pattern, Conditions: newConditionSet(condition)}
	if err := r.addPattern(rule); err != nil {
		// Pattern rules carry no syntax that can fail.
		panic(fmt.Sprintf("resource: recording pattern %s: %v", rule, err))
	}
}

// RegisterIncludeGlob records a glob for moduleName. Invalid globs are
// rejected.
func (r *Registry) RegisterIncludeGlob(condition Condition, moduleName, glob string) error {
	return r.addPattern(PatternRule{ModuleName: moduleName, Pattern: glob, Glob: true, Conditions: newConditionSet(condition)})
}

func (r *Registry) addPattern(rule PatternRule) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkOpen()

	if r.previous.HasPattern(rule.String()) {
		return nil
	}
	return s.addPattern(rule)
}

// Freeze closes the collection window. Later registrations panic.
func (r *Registry) Freeze() {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeze()
}

// Snapshot returns the persisted lists for this layer. Modules lists
// the module names this layer's keys use that no previous layer
// introduced.
func (r *Registry) Snapshot() LayerSnapshot {
	s := r.store
	defer s.lock()()

	snapshot := LayerSnapshot{
		Keys:     make([]string, 0, len(s.order)),
		Positive: make([]bool, 0, len(s.order)),
		Patterns: make([]string, 0, len(s.patterns)),
	}
	modules := make(map[string]struct{})
	for _, key := range s.order {
		snapshot.Keys = append(snapshot.Keys, key.String())
		snapshot.Positive = append(snapshot.Positive, s.entries[key].entry.kind != KindNegative)
		if name := key.ModuleName(); name != "" && !r.previous.HasModule(name) {
			modules[name] = struct{}{}
		}
	}
	for _, rule := range s.patterns {
		snapshot.Patterns = append(snapshot.Patterns, rule.String())
	}
	for name := range modules {
		snapshot.Modules = append(snapshot.Modules, name)
	}
	slices.Sort(snapshot.Modules)
	return snapshot
}
