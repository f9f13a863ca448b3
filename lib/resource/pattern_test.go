// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import "testing"

func TestMatchResource(t *testing.T) {
	tests := []struct {
		pattern   string
		candidate string
		want      bool
	}{
		{"META-INF/MANIFEST.MF", "META-INF/MANIFEST.MF", true},
		{"META-INF/MANIFEST.MF", "META-INF/manifest.mf", false},
		{"images/*", "images/logo.png", true},
		{"images/*", "images/", true},
		{"images/*", "image", false},
		{"images/*", "other/logo.png", false},
		{"META-INF/*.properties", "META-INF/app.properties", true},
		{"META-INF/*.properties", "META-INF/app.xml", false},
		{"META-INF/*.properties", "META-INF/.properties", true},
		// Prefix and suffix must not overlap.
		{"ab*ba", "aba", false},
		{"ab*ba", "abba", true},
		{`literal\*star`, "literal*star", true},
		{`literal\*star`, "literalXstar", false},
		{`a\*b/*`, "a*b/c", true},
		{`a\*b/*`, "axb/c", false},
		{`*\*`, "file*", true},
		// A trailing star makes earlier stars literal.
		{"a/*/b/*", "a/x/b/y", false},
		{"a/*/b/*", "a/*/b/y", true},
		{"a*b*", "a*bc", true},
		{"a*b*", "axbc", false},
		{"**", "anything", false},
		{"**", "*anything", true},
		{"a*b*c", "axbyc", false},
		{"*", "anything", true},
	}
	for _, test := range tests {
		if got := MatchResource(test.pattern, test.candidate); got != test.want {
			t.Errorf("MatchResource(%q, %q) = %v, want %v", test.pattern, test.candidate, got, test.want)
		}
	}
}
