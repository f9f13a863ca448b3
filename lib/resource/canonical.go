// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import "strings"

// Canonicalize resolves "." and ".." segments and collapses repeated
// separators. The result has no leading or trailing slash; ".." at the
// root is dropped. Canonicalize("a/./b//c/../d/") is "a/b/d".
func Canonicalize(name string) string {
	if isCanonical(name) {
		return name
	}
	segments := make([]string, 0, strings.Count(name, "/")+1)
	for segment := range strings.SplitSeq(name, "/") {
		switch segment {
		case "", ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, segment)
		}
	}
	return strings.Join(segments, "/")
}

// isCanonical is the fast path for names that need no rewriting.
func isCanonical(name string) bool {
	if name == "" {
		return true
	}
	if name[0] == '/' || name[len(name)-1] == '/' {
		return false
	}
	for segment := range strings.SplitSeq(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}
