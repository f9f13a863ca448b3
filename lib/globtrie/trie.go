// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package globtrie

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrCompressed is returned by Add after Compress has been called.
var ErrCompressed = errors.New("globtrie: trie is compressed and read-only")

const doubleStar = "**"

// Trie maps globs to payloads of type T. The zero value is not usable;
// create one with New.
//
// Add is not safe for concurrent use; callers serialize writes. After
// Compress, Match and Any may be called from any number of goroutines.
type Trie[T any] struct {
	root       *node[T]
	patterns   []string
	compressed bool
}

type node[T any] struct {
	// segments is the literal path this node consumes. One element for
	// an uncompressed node; several after Compress merged a chain.
	segments []string

	// pattern is the wildcard segment this node matches, empty for
	// literal nodes.
	pattern string

	literals  map[string]*node[T] // keyed by the first literal segment
	wildcards []*node[T]
	values    []T
}

// New returns an empty trie.
func New[T any]() *Trie[T] {
	return &Trie[T]{root: &node[T]{}}
}

// Add registers glob with the given payload. Adding the same glob twice
// keeps both payloads.
func (t *Trie[T]) Add(glob string, value T) error {
	if t.compressed {
		return ErrCompressed
	}
	if err := Validate(glob); err != nil {
		return err
	}

	current := t.root
	for _, segment := range strings.Split(glob, "/") {
		current = current.child(segment)
	}
	if len(current.values) == 0 {
		t.patterns = append(t.patterns, glob)
	}
	current.values = append(current.values, value)
	return nil
}

func (n *node[T]) child(segment string) *node[T] {
	if isLiteral(segment) {
		if n.literals == nil {
			n.literals = make(map[string]*node[T])
		}
		existing, ok := n.literals[segment]
		if !ok {
			existing = &node[T]{segments: []string{segment}}
			n.literals[segment] = existing
		}
		return existing
	}
	for _, existing := range n.wildcards {
		if existing.pattern == segment {
			return existing
		}
	}
	created := &node[T]{pattern: segment}
	n.wildcards = append(n.wildcards, created)
	return created
}

// Compress merges literal chains and makes the trie read-only.
// Calling it more than once is harmless.
func (t *Trie[T]) Compress() {
	if t.compressed {
		return
	}
	t.root.compress()
	t.compressed = true
}

func (n *node[T]) compress() {
	for _, child := range n.literals {
		for len(child.values) == 0 && len(child.wildcards) == 0 && len(child.literals) == 1 {
			var grandchild *node[T]
			for _, only := range child.literals {
				grandchild = only
			}
			child.segments = append(child.segments, grandchild.segments...)
			child.literals = grandchild.literals
			child.wildcards = grandchild.wildcards
			child.values = grandchild.values
		}
		child.compress()
	}
	for _, child := range n.wildcards {
		child.compress()
	}
}

// Match returns the payloads of all globs matching name, in no
// particular order.
func (t *Trie[T]) Match(name string) []T {
	var result []T
	t.Any(name, func(value T) bool {
		result = append(result, value)
		return false
	})
	return result
}

// Any reports whether some glob matching name has a payload for which
// accept returns true. The walk stops at the first accepted payload.
func (t *Trie[T]) Any(name string, accept func(T) bool) bool {
	return t.root.walk(strings.Split(name, "/"), accept)
}

func (n *node[T]) walk(remaining []string, accept func(T) bool) bool {
	if len(remaining) == 0 {
		for _, value := range n.values {
			if accept(value) {
				return true
			}
		}
	} else if child, ok := n.literals[remaining[0]]; ok && hasSegments(remaining, child.segments) {
		if child.walk(remaining[len(child.segments):], accept) {
			return true
		}
	}

	for _, child := range n.wildcards {
		if child.pattern == doubleStar {
			for skip := 0; skip <= len(remaining); skip++ {
				if child.walk(remaining[skip:], accept) {
					return true
				}
			}
			continue
		}
		if len(remaining) == 0 {
			continue
		}
		if matched, err := path.Match(child.pattern, remaining[0]); err == nil && matched {
			if child.walk(remaining[1:], accept) {
				return true
			}
		}
	}
	return false
}

func hasSegments(remaining, segments []string) bool {
	if len(remaining) < len(segments) {
		return false
	}
	for i, segment := range segments {
		if remaining[i] != segment {
			return false
		}
	}
	return true
}

// Len returns the number of distinct globs in the trie.
func (t *Trie[T]) Len() int {
	return len(t.patterns)
}

// Patterns returns the distinct globs in the order they were first added.
func (t *Trie[T]) Patterns() []string {
	result := make([]string, len(t.patterns))
	copy(result, t.patterns)
	return result
}

// Validate checks that glob is well formed: non-empty, relative, no
// empty segments, "**" only as a whole segment and never twice in a
// row, and every other segment acceptable to path.Match.
func Validate(glob string) error {
	if glob == "" {
		return fmt.Errorf("glob is empty")
	}
	if strings.HasPrefix(glob, "/") {
		return fmt.Errorf("glob %q must be relative (no leading '/')", glob)
	}
	if strings.Contains(glob, "***") {
		return fmt.Errorf("glob %q contains '***'", glob)
	}

	previous := ""
	for _, segment := range strings.Split(glob, "/") {
		switch {
		case segment == "":
			return fmt.Errorf("glob %q contains an empty segment", glob)
		case segment == doubleStar:
			if previous == doubleStar {
				return fmt.Errorf("glob %q repeats '**' in consecutive segments", glob)
			}
		case strings.Contains(segment, doubleStar):
			return fmt.Errorf("glob %q: '**' must be a whole segment, found %q", glob, segment)
		default:
			if _, err := path.Match(segment, ""); err != nil {
				return fmt.Errorf("glob %q: segment %q: %w", glob, segment, err)
			}
		}
		previous = segment
	}
	return nil
}

func isLiteral(segment string) bool {
	return !strings.ContainsAny(segment, `*?[\`)
}
