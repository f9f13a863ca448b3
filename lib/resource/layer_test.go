// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"strings"
	"testing"
)

func TestNewPreviousLayerMerges(t *testing.T) {
	layer, err := NewPreviousLayer(
		LayerSnapshot{
			Keys:     []string{"app:a.txt", "app:b.txt"},
			Positive: []bool{true, false},
			Patterns: []string{"p:app:images/*"},
			Modules:  []string{"app"},
		},
		LayerSnapshot{
			Keys:     []string{"app:b.txt", "lib:c.txt"},
			Positive: []bool{true, false},
			Modules:  []string{"lib"},
		},
	)
	if err != nil {
		t.Fatalf("NewPreviousLayer: %v", err)
	}

	tests := []struct {
		key      string
		contains bool
		positive bool
	}{
		{"app:a.txt", true, true},
		{"app:b.txt", true, true},
		{"lib:c.txt", true, false},
		{"lib:d.txt", false, false},
	}
	for _, test := range tests {
		if got := layer.Contains(test.key); got != test.contains {
			t.Errorf("Contains(%q) = %v, want %v", test.key, got, test.contains)
		}
		if got := layer.Positive(test.key); got != test.positive {
			t.Errorf("Positive(%q) = %v, want %v", test.key, got, test.positive)
		}
	}
	if !layer.HasPattern("p:app:images/*") || layer.HasPattern("p:lib:images/*") {
		t.Error("HasPattern does not reflect the recorded patterns")
	}
	if !layer.HasModule("lib") || layer.HasModule("other") {
		t.Error("HasModule does not reflect the recorded modules")
	}
	if layer.Len() != 3 {
		t.Errorf("Len() = %d, want 3", layer.Len())
	}
}

func TestNewPreviousLayerErrors(t *testing.T) {
	tests := []struct {
		name      string
		snapshots []LayerSnapshot
		wantError string
	}{
		{
			name:      "length mismatch",
			snapshots: []LayerSnapshot{{Keys: []string{":a"}, Positive: nil}},
			wantError: "1 keys but 0 positive flags",
		},
		{
			name:      "duplicate key",
			snapshots: []LayerSnapshot{{Keys: []string{":a", ":a"}, Positive: []bool{true, true}}},
			wantError: "repeats key",
		},
		{
			name:      "malformed key",
			snapshots: []LayerSnapshot{{Keys: []string{"a"}, Positive: []bool{true}}},
			wantError: "no module separator",
		},
		{
			name: "positive then negative",
			snapshots: []LayerSnapshot{
				{Keys: []string{":a"}, Positive: []bool{true}},
				{Keys: []string{":a"}, Positive: []bool{false}},
			},
			wantError: "earlier layer holds it",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewPreviousLayer(test.snapshots...)
			if err == nil || !strings.Contains(err.Error(), test.wantError) {
				t.Errorf("err = %v, want containing %q", err, test.wantError)
			}
		})
	}
}

func TestNewPreviousLayerDuplicateModulePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewPreviousLayer did not panic on a module defined twice")
		}
	}()
	_, _ = NewPreviousLayer(
		LayerSnapshot{Modules: []string{"app"}},
		LayerSnapshot{Modules: []string{"app"}},
	)
}

func TestNilPreviousLayerIsEmpty(t *testing.T) {
	var layer *PreviousLayer
	if layer.Contains(":a") || layer.Positive(":a") || layer.HasPattern("p::a") || layer.HasModule("app") || layer.Len() != 0 {
		t.Error("nil previous layer is not empty")
	}
}
