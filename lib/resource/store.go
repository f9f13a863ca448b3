// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/imageres/lib/globtrie"
)

// Store is one build layer's resource table: an insertion-ordered map
// from Key to a condition-guarded Entry, plus the include patterns and
// globs recorded for that layer.
//
// All mutation goes through a Registry and happens under mu. After
// Freeze the store is immutable and reads take no lock.
type Store struct {
	mode KeyMode

	mu        sync.Mutex
	frozen    atomic.Bool
	entries   map[Key]*slot
	order     []Key
	timestamp time.Time

	patterns     []PatternRule
	patternIndex map[patternID]int
	globs        map[string]*globtrie.Trie[int]
}

type slot struct {
	conditions ConditionSet
	entry      *Entry
}

type patternID struct {
	glob       bool
	moduleName string
	pattern    string
}

// PatternRule is an include rule recorded for a module. Pattern rules
// use MatchResource syntax; glob rules use globtrie syntax.
type PatternRule struct {
	ModuleName string
	Pattern    string
	Glob       bool
	Conditions ConditionSet
}

// String returns the persisted form: "p:<module>:<pattern>" for
// pattern rules and "g:<module>:<glob>" for glob rules.
func (r PatternRule) String() string {
	prefix := "p:"
	if r.Glob {
		prefix = "g:"
	}
	return prefix + r.ModuleName + ":" + r.Pattern
}

func (r PatternRule) id() patternID {
	return patternID{glob: r.Glob, moduleName: r.ModuleName, pattern: r.Pattern}
}

// Record is one stored entry, as exposed for persistence.
type Record struct {
	Key        Key
	Conditions ConditionSet
	Entry      *Entry
}

func newStore(mode KeyMode) *Store {
	return &Store{
		mode:         mode,
		entries:      make(map[Key]*slot),
		patternIndex: make(map[patternID]int),
		globs:        make(map[string]*globtrie.Trie[int]),
	}
}

// RestoreStore rebuilds a frozen store from persisted records. Records
// keep their order. A duplicate key or an invalid glob is an error.
func RestoreStore(mode KeyMode, timestamp time.Time, records []Record, patterns []PatternRule) (*Store, error) {
	store := newStore(mode)
	for _, record := range records {
		if record.Entry == nil {
			return nil, fmt.Errorf("restoring %s: record has no entry", record.Key)
		}
		if _, exists := store.entries[record.Key]; exists {
			return nil, fmt.Errorf("restoring %s: duplicate key", record.Key)
		}
		store.entries[record.Key] = &slot{conditions: record.Conditions, entry: record.Entry}
		store.order = append(store.order, record.Key)
	}
	for _, rule := range patterns {
		if err := store.addPattern(rule); err != nil {
			return nil, fmt.Errorf("restoring pattern %s: %w", rule, err)
		}
	}
	store.timestamp = timestamp
	store.freeze()
	return store, nil
}

// Mode returns the key mode every key in the store uses.
func (s *Store) Mode() KeyMode { return s.mode }

// Frozen reports whether the collection window has closed.
func (s *Store) Frozen() bool { return s.frozen.Load() }

// lock takes mu unless the store is frozen. The returned function
// releases it.
func (s *Store) lock() func() {
	if s.frozen.Load() {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Len returns the number of stored entries, negative markers included.
func (s *Store) Len() int {
	defer s.lock()()
	return len(s.order)
}

// Timestamp returns the time of the first successful data or
// exception registration, or the zero time if there was none.
func (s *Store) Timestamp() time.Time {
	defer s.lock()()
	return s.timestamp
}

// Entry returns the stored entry and its conditions for key.
func (s *Store) Entry(key Key) (*Entry, ConditionSet, bool) {
	defer s.lock()()
	stored, ok := s.entries[key]
	if !ok {
		return nil, ConditionSet{}, false
	}
	return stored.entry, stored.conditions, true
}

// Records returns every entry in insertion order.
func (s *Store) Records() []Record {
	defer s.lock()()
	records := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		stored := s.entries[key]
		records = append(records, Record{Key: key, Conditions: stored.conditions, Entry: stored.entry})
	}
	return records
}

// Patterns returns the include rules in registration order.
func (s *Store) Patterns() []PatternRule {
	defer s.lock()()
	result := make([]PatternRule, len(s.patterns))
	copy(result, s.patterns)
	return result
}

// matchesInclude reports whether any of names is covered by an include
// pattern or glob recorded for moduleName.
func (s *Store) matchesInclude(moduleName string, names ...string) bool {
	defer s.lock()()
	for _, rule := range s.patterns {
		if rule.Glob || rule.ModuleName != moduleName {
			continue
		}
		for _, name := range names {
			if MatchResource(rule.Pattern, name) {
				return true
			}
		}
	}
	trie := s.globs[moduleName]
	if trie == nil {
		return false
	}
	for _, name := range names {
		if trie.Any(name, func(int) bool { return true }) {
			return true
		}
	}
	return false
}

// The methods below require mu held and the store open.

func (s *Store) checkOpen() {
	if s.frozen.Load() {
		panic("resource: registration after analysis completed")
	}
}

func (s *Store) insert(key Key, conditions ConditionSet, entry *Entry) {
	s.entries[key] = &slot{conditions: conditions, entry: entry}
	s.order = append(s.order, key)
}

func (s *Store) touch(now func() time.Time) {
	if s.timestamp.IsZero() {
		s.timestamp = now()
	}
}

// addPattern records rule, widening the conditions of an identical
// rule instead of duplicating it.
func (s *Store) addPattern(rule PatternRule) error {
	id := rule.id()
	if index, exists := s.patternIndex[id]; exists {
		existing := &s.patterns[index]
		for _, clause := range rule.Conditions.Clauses() {
			existing.Conditions = existing.Conditions.with(clause)
		}
		if rule.Conditions.IsAlways() {
			existing.Conditions = ConditionSet{}
		}
		return nil
	}
	if rule.Glob {
		trie := s.globs[rule.ModuleName]
		if trie == nil {
			trie = globtrie.New[int]()
			s.globs[rule.ModuleName] = trie
		}
		if err := trie.Add(rule.Pattern, len(s.patterns)); err != nil {
			return err
		}
	}
	s.patternIndex[id] = len(s.patterns)
	s.patterns = append(s.patterns, rule)
	return nil
}

// freeze compresses the glob tries and closes the store. Idempotent.
func (s *Store) freeze() {
	if s.frozen.Load() {
		return
	}
	for _, trie := range s.globs {
		trie.Compress()
	}
	s.frozen.Store(true)
}
