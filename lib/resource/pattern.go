// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import "strings"

// MatchResource reports whether candidate matches pattern. Supported
// forms:
//
//	exact            "META-INF/MANIFEST.MF"
//	trailing star    "images/*"              prefix match
//	one inner star   "META-INF/*.properties" prefix and suffix match
//
// "\*" stands for a literal star and never acts as a wildcard. A
// trailing star takes precedence: any earlier star in the prefix is
// then matched literally, so "a*b*" matches "a*bc". Otherwise two or
// more wildcards match nothing.
func MatchResource(pattern, candidate string) bool {
	if pattern == candidate {
		return true
	}
	stars := unescapedStars(pattern)
	if len(stars) == 0 {
		return unescapeStars(pattern) == candidate
	}
	if last := len(pattern) - 1; stars[len(stars)-1] == last {
		return strings.HasPrefix(candidate, unescapeStars(pattern[:last]))
	}
	if len(stars) > 1 {
		return false
	}
	prefix := unescapeStars(pattern[:stars[0]])
	suffix := unescapeStars(pattern[stars[0]+1:])
	return len(candidate) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(candidate, prefix) &&
		strings.HasSuffix(candidate, suffix)
}

// unescapedStars returns the byte offsets of every '*' not preceded by
// a backslash.
func unescapedStars(pattern string) []int {
	var offsets []int
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
			}
		case '*':
			offsets = append(offsets, i)
		}
	}
	return offsets
}

func unescapeStars(s string) string {
	return strings.ReplaceAll(s, `\*`, `*`)
}
