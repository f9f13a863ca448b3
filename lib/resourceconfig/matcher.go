// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resourceconfig

import (
	"fmt"

	"github.com/bureau-foundation/imageres/lib/globtrie"
	"github.com/bureau-foundation/imageres/lib/resource"
)

// Matcher answers which scanned resources a configuration admits. It
// is immutable and safe for concurrent use.
type Matcher struct {
	includes map[string][]Include
	excludes map[string][]string
	globs    map[string]*globtrie.Trie[resource.Condition]
}

// Matcher compiles the configuration. An invalid glob is an error.
func (c *Config) Matcher() (*Matcher, error) {
	matcher := &Matcher{
		includes: make(map[string][]Include),
		excludes: make(map[string][]string),
		globs:    make(map[string]*globtrie.Trie[resource.Condition]),
	}
	for _, include := range c.Resources.Includes {
		matcher.includes[include.Module] = append(matcher.includes[include.Module], include)
	}
	for _, exclude := range c.Resources.Excludes {
		matcher.excludes[exclude.Module] = append(matcher.excludes[exclude.Module], exclude.Pattern)
	}
	for i, glob := range c.Globs {
		trie := matcher.globs[glob.Module]
		if trie == nil {
			trie = globtrie.New[resource.Condition]()
			matcher.globs[glob.Module] = trie
		}
		if err := trie.Add(glob.Glob, glob.Condition.resource()); err != nil {
			return nil, fmt.Errorf("globs[%d]: %w", i, err)
		}
	}
	for _, trie := range matcher.globs {
		trie.Compress()
	}
	return matcher, nil
}

// Match reports whether name in moduleName is admitted, and under
// which condition. When several rules admit it the condition is the
// first rule's, unless any of them is unconditional.
func (m *Matcher) Match(moduleName, name string) (resource.Condition, bool) {
	for _, pattern := range m.excludes[moduleName] {
		if resource.MatchResource(pattern, name) {
			return resource.Condition{}, false
		}
	}

	var (
		condition resource.Condition
		matched   bool
	)
	admit := func(candidate resource.Condition) bool {
		if !matched {
			condition, matched = candidate, true
		}
		if candidate.IsAlways() {
			condition = candidate
			return true
		}
		return false
	}
	for _, include := range m.includes[moduleName] {
		if resource.MatchResource(include.Pattern, name) && admit(include.Condition.resource()) {
			return condition, true
		}
	}
	if trie := m.globs[moduleName]; trie != nil {
		if trie.Any(name, admit) {
			return condition, true
		}
	}
	return condition, matched
}

// Matches reports whether name in moduleName is admitted.
func (m *Matcher) Matches(moduleName, name string) bool {
	_, ok := m.Match(moduleName, name)
	return ok
}
