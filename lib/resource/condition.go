// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"slices"
	"strings"
	"sync"
)

// Reachability answers whether a type has become reachable at run
// time. Condition evaluation is a pure function of this state.
type Reachability interface {
	Reached(typeName string) bool
}

// AllReached treats every type as reachable. Useful for tooling that
// wants to see every registered entry.
var AllReached Reachability = allReached{}

type allReached struct{}

func (allReached) Reached(string) bool { return true }

// ReachedSet is a concurrent Reachability that run-time code marks as
// types become reachable. The zero value is an empty set.
type ReachedSet struct {
	types sync.Map
}

// NewReachedSet returns a set with the given types already reached.
func NewReachedSet(typeNames ...string) *ReachedSet {
	set := &ReachedSet{}
	set.Mark(typeNames...)
	return set
}

// Mark records the given types as reached.
func (s *ReachedSet) Mark(typeNames ...string) {
	for _, name := range typeNames {
		s.types.Store(name, struct{}{})
	}
}

// Reached reports whether typeName has been marked.
func (s *ReachedSet) Reached(typeName string) bool {
	_, ok := s.types.Load(typeName)
	return ok
}

// Condition is a conjunction of type names that must all be reachable.
// The zero Condition has no requirements and is always satisfied.
type Condition struct {
	types []string // sorted, unique
}

// Always returns the unconditional Condition.
func Always() Condition { return Condition{} }

// TypeReachable returns a Condition requiring every named type.
// Empty names are ignored.
func TypeReachable(typeNames ...string) Condition {
	var types []string
	for _, name := range typeNames {
		if name != "" {
			types = append(types, name)
		}
	}
	slices.Sort(types)
	return Condition{types: slices.Compact(types)}
}

// IsAlways reports whether the condition has no requirements.
func (c Condition) IsAlways() bool { return len(c.types) == 0 }

// Types returns the required type names in sorted order.
func (c Condition) Types() []string { return slices.Clone(c.types) }

// Satisfied reports whether every required type is reached. A nil
// Reachability reaches nothing.
func (c Condition) Satisfied(reached Reachability) bool {
	for _, name := range c.types {
		if reached == nil || !reached.Reached(name) {
			return false
		}
	}
	return true
}

// Equal reports whether two conditions require the same types.
func (c Condition) Equal(other Condition) bool {
	return slices.Equal(c.types, other.types)
}

func (c Condition) String() string {
	if c.IsAlways() {
		return "always"
	}
	return "reachable(" + strings.Join(c.types, " & ") + ")"
}

// ConditionSet accumulates the conditions of separate registrations of
// the same key. It is satisfied when any member is. The zero value is
// always satisfied.
type ConditionSet struct {
	clauses []Condition
}

func newConditionSet(condition Condition) ConditionSet {
	if condition.IsAlways() {
		return ConditionSet{}
	}
	return ConditionSet{clauses: []Condition{condition}}
}

// NewConditionSet builds a set from persisted clauses. An empty list,
// or any unconditional clause, yields the always-satisfied set.
func NewConditionSet(clauses ...Condition) ConditionSet {
	var set ConditionSet
	for i, clause := range clauses {
		if i == 0 {
			set = newConditionSet(clause)
			continue
		}
		set = set.with(clause)
	}
	return set
}

// with returns the set widened by condition.
func (s ConditionSet) with(condition Condition) ConditionSet {
	if s.IsAlways() {
		return s
	}
	if condition.IsAlways() {
		return ConditionSet{}
	}
	for _, existing := range s.clauses {
		if existing.Equal(condition) {
			return s
		}
	}
	clauses := make([]Condition, len(s.clauses), len(s.clauses)+1)
	copy(clauses, s.clauses)
	return ConditionSet{clauses: append(clauses, condition)}
}

// IsAlways reports whether the set is unconditionally satisfied.
func (s ConditionSet) IsAlways() bool { return len(s.clauses) == 0 }

// Clauses returns the member conditions. Empty for an always-satisfied set.
func (s ConditionSet) Clauses() []Condition { return slices.Clone(s.clauses) }

// Satisfied reports whether any member condition is satisfied.
func (s ConditionSet) Satisfied(reached Reachability) bool {
	if s.IsAlways() {
		return true
	}
	for _, clause := range s.clauses {
		if clause.Satisfied(reached) {
			return true
		}
	}
	return false
}
