// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layerfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bureau-foundation/imageres/lib/codec"
	"github.com/bureau-foundation/imageres/lib/resource"
)

func sampleSnapshot() resource.LayerSnapshot {
	return resource.LayerSnapshot{
		Keys:     []string{"app:a.txt", ":absent.txt", "lib:META-INF/x"},
		Positive: []bool{true, false, true},
		Patterns: []string{"p:app:images/*", "g::fonts/**"},
		Modules:  []string{"app", "lib"},
	}
}

func TestRoundTrip(t *testing.T) {
	tests := map[string]resource.LayerSnapshot{
		"populated": sampleSnapshot(),
		"empty":     {},
	}
	for name, snapshot := range tests {
		t.Run(name, func(t *testing.T) {
			var buffer bytes.Buffer
			if err := Write(&buffer, snapshot); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Read(&buffer)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if diff := cmp.Diff(snapshot, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := Marshal(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encoding the same snapshot twice produced different bytes")
	}
	if string(first[:4]) != Magic || first[4] != Version {
		t.Errorf("header = %q, want magic %q version %d", first[:5], Magic, Version)
	}
}

func TestMarshalRejectsInvalidSnapshot(t *testing.T) {
	_, err := Marshal(resource.LayerSnapshot{Keys: []string{":a"}})
	if err == nil {
		t.Error("Marshal accepted mismatched parallel lists")
	}
}

func TestRead(t *testing.T) {
	valid, err := Marshal(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}

	got, err := Read(iotest.OneByteReader(bytes.NewReader(valid)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(sampleSnapshot(), got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	failure := errors.New("disk gone")
	if _, err := Read(iotest.ErrReader(failure)); !errors.Is(err, failure) {
		t.Errorf("Read of failing reader: err = %v, want %v", err, failure)
	}

	trailing := append(bytes.Clone(valid), "extra"...)
	if _, err := Read(bytes.NewReader(trailing)); !errors.Is(err, ErrFormat) {
		t.Errorf("Read with trailing bytes: err = %v, want ErrFormat", err)
	}
}

func TestUnmarshalRejectsCorruption(t *testing.T) {
	valid, err := Marshal(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	corrupt := func(mutate func([]byte) []byte) []byte {
		data := bytes.Clone(valid)
		return mutate(data)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"short", valid[:10], "shorter than the header"},
		{"magic", corrupt(func(d []byte) []byte { d[0] = 'X'; return d }), "bad magic"},
		{"version", corrupt(func(d []byte) []byte { d[4] = 9; return d }), "unsupported version"},
		{"body", corrupt(func(d []byte) []byte { d[len(d)-1] ^= 0xff; return d }), "checksum mismatch"},
		{"checksum", corrupt(func(d []byte) []byte { d[5] ^= 0xff; return d }), "checksum mismatch"},
		{"truncated", valid[:len(valid)-3], "checksum mismatch"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Unmarshal(test.data)
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("err = %v, want ErrFormat", err)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("err = %v, want containing %q", err, test.want)
			}
		})
	}
}

func TestBodyIsCBOR(t *testing.T) {
	data, err := Marshal(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	body, err := Body(data)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	diagnostic, err := codec.Diagnose(body)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	for _, field := range []string{`"keys"`, `"positive"`, `"patterns"`, `"module_names"`} {
		if !strings.Contains(diagnostic, field) {
			t.Errorf("diagnostic %s lacks field %s", diagnostic, field)
		}
	}
}

func TestLoadPrevious(t *testing.T) {
	directory := t.TempDir()
	first := filepath.Join(directory, "base.snapshot")
	second := filepath.Join(directory, "app.snapshot")

	if err := WriteFile(first, resource.LayerSnapshot{
		Keys:     []string{"base:late.txt"},
		Positive: []bool{false},
		Modules:  []string{"base"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(second, resource.LayerSnapshot{
		Keys:     []string{"base:late.txt"},
		Positive: []bool{true},
		Patterns: []string{"p:app:images/*"},
		Modules:  []string{"app"},
	}); err != nil {
		t.Fatal(err)
	}

	previous, err := LoadPrevious(first, second)
	if err != nil {
		t.Fatalf("LoadPrevious: %v", err)
	}
	if !previous.Positive("base:late.txt") {
		t.Error("later positive did not override the earlier negative")
	}
	if !previous.HasPattern("p:app:images/*") || !previous.HasModule("base") || !previous.HasModule("app") {
		t.Error("merged view lost patterns or modules")
	}

	if _, err := LoadPrevious(filepath.Join(directory, "missing.snapshot")); err == nil {
		t.Error("LoadPrevious of a missing file succeeded")
	}
}

func TestSnapshotFromRegistry(t *testing.T) {
	registry := resource.NewRegistry(resource.Options{Layered: true})
	registry.RegisterResource(resource.NewModule("app"), "a.txt", []byte("x"), false)
	registry.RegisterNegativeQuery(nil, "absent.txt")
	registry.Freeze()

	path := filepath.Join(t.TempDir(), "layer.snapshot")
	if err := WriteFile(path, registry.Snapshot()); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(registry.Snapshot(), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
