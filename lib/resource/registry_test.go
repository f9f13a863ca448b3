// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/imageres/lib/clock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, options Options) (*Registry, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	if options.Clock == nil {
		options.Clock = fake
	}
	if options.Logger == nil {
		options.Logger = discardLogger()
	}
	return NewRegistry(options), fake
}

func storedEntry(t *testing.T, registry *Registry, module *Module, name string) *Entry {
	t.Helper()
	entry, _, ok := registry.Store().Entry(registry.Key(module, name))
	if !ok {
		t.Fatalf("no entry stored for %s", registry.Key(module, name))
	}
	return entry
}

func TestRegisterResourceCopiesData(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	data := []byte("original")
	registry.RegisterResource(nil, "a.txt", data, false)
	copy(data, "mutated!")

	entry := storedEntry(t, registry, nil, "a.txt")
	if got := string(entry.Blobs()[0]); got != "original" {
		t.Errorf("stored blob = %q, want %q", got, "original")
	}
}

func TestRegisterResourceAppendsForUnnamedModule(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	registry.RegisterResource(nil, "META-INF/services/x", []byte("first"), true)
	registry.RegisterResource(nil, "META-INF/services/x", []byte("second"), true)

	entry := storedEntry(t, registry, nil, "META-INF/services/x")
	want := [][]byte{[]byte("first"), []byte("second")}
	if diff := cmp.Diff(want, entry.Blobs()); diff != "" {
		t.Errorf("blobs mismatch (-want +got):\n%s", diff)
	}
	if registry.Store().Len() != 1 {
		t.Errorf("Len() = %d, want 1", registry.Store().Len())
	}
}

func TestRegisterResourceModuleDuplicateIsNoop(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	app := NewModule("app")
	registry.RegisterConditionalResource(TypeReachable("app.A"), app, "a.txt", []byte("one"), false)
	registry.RegisterConditionalResource(TypeReachable("app.B"), app, "a.txt", []byte("two"), false)

	entry, conditions, _ := registry.Store().Entry(registry.Key(app, "a.txt"))
	if entry.BlobCount() != 1 || string(entry.Blobs()[0]) != "one" {
		t.Errorf("blobs = %q, want only the first registration", entry.Blobs())
	}
	if len(conditions.Clauses()) != 2 {
		t.Errorf("conditions = %v, want both registrations' conditions", conditions.Clauses())
	}
}

func TestRegisterResourceCanonicalizesName(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	registry.RegisterResource(nil, "/a/./b.txt", []byte("x"), false)
	if _, _, ok := registry.Store().Entry(NewKey(KeyByInstance, nil, "a/b.txt")); !ok {
		t.Error("registration was not stored under the canonical name")
	}
}

func TestRegisterDirectoryResource(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	registry.RegisterDirectoryResource(nil, "images/", "logo.png\nicon.png", true)

	entry := storedEntry(t, registry, nil, "images")
	if !entry.IsDirectory() || !entry.FromArchive() {
		t.Errorf("directory=%v fromArchive=%v, want both true", entry.IsDirectory(), entry.FromArchive())
	}
	if got := string(entry.Blobs()[0]); got != "logo.png\nicon.png" {
		t.Errorf("listing = %q", got)
	}
}

func TestNegativeThenPositiveOverrides(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	registry.RegisterNegativeQuery(nil, "late.txt")
	if kind := storedEntry(t, registry, nil, "late.txt").Kind(); kind != KindNegative {
		t.Fatalf("kind = %v, want negative", kind)
	}
	registry.RegisterResource(nil, "late.txt", []byte("data"), false)
	entry := storedEntry(t, registry, nil, "late.txt")
	if entry.Kind() != KindData || entry.BlobCount() != 1 {
		t.Errorf("entry = %v with %d blobs, want data with one blob", entry.Kind(), entry.BlobCount())
	}
}

func TestPositiveBlocksNegative(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	registry.RegisterResource(nil, "kept.txt", []byte("data"), false)
	registry.RegisterNegativeQuery(nil, "kept.txt")
	if kind := storedEntry(t, registry, nil, "kept.txt").Kind(); kind != KindData {
		t.Errorf("kind = %v, want data", kind)
	}
}

func TestRegisterIOException(t *testing.T) {
	readErr := errors.New("disk on fire")

	t.Run("fail build", func(t *testing.T) {
		registry, _ := newTestRegistry(t, Options{})
		err := registry.RegisterIOException(nil, "broken.bin", readErr, true)
		var resourceErr *ResourceError
		if !errors.As(err, &resourceErr) {
			t.Fatalf("err = %v, want *ResourceError", err)
		}
		if !errors.Is(err, readErr) || resourceErr.Name != "broken.bin" {
			t.Errorf("err = %#v does not wrap the read failure", resourceErr)
		}
		if registry.Store().Len() != 0 {
			t.Error("fail-fast registration should record nothing")
		}
	})

	t.Run("deferred", func(t *testing.T) {
		registry, _ := newTestRegistry(t, Options{})
		if err := registry.RegisterIOException(nil, "broken.bin", readErr, false); err != nil {
			t.Fatalf("RegisterIOException: %v", err)
		}
		entry := storedEntry(t, registry, nil, "broken.bin")
		if entry.Kind() != KindException || !errors.Is(entry.Err(), readErr) {
			t.Errorf("entry = %v (%v), want exception replaying the read failure", entry.Kind(), entry.Err())
		}

		registry.RegisterResource(nil, "broken.bin", []byte("late"), false)
		if kind := storedEntry(t, registry, nil, "broken.bin").Kind(); kind != KindException {
			t.Errorf("kind after data registration = %v, want exception kept", kind)
		}
	})
}

func TestTimestampSetOnceOnFirstRegistration(t *testing.T) {
	registry, fake := newTestRegistry(t, Options{})

	registry.RegisterNegativeQuery(nil, "absent")
	if !registry.Store().Timestamp().IsZero() {
		t.Fatal("negative query set the timestamp")
	}

	registry.RegisterResource(nil, "a", []byte("x"), false)
	fake.Advance(time.Hour)
	registry.RegisterResource(nil, "b", []byte("y"), false)
	_ = registry.RegisterIOException(nil, "c", errors.New("bad"), false)

	if got := registry.Store().Timestamp(); !got.Equal(epoch) {
		t.Errorf("Timestamp() = %v, want %v", got, epoch)
	}
	if fake.Reads() != 1 {
		t.Errorf("clock read %d times, want 1", fake.Reads())
	}
}

func TestRegistrationAfterFreezePanics(t *testing.T) {
	registrations := map[string]func(*Registry){
		"resource":  func(r *Registry) { r.RegisterResource(nil, "a", nil, false) },
		"directory": func(r *Registry) { r.RegisterDirectoryResource(nil, "d", "", false) },
		"exception": func(r *Registry) { _ = r.RegisterIOException(nil, "a", errors.New("x"), false) },
		"negative":  func(r *Registry) { r.RegisterNegativeQuery(nil, "a") },
		"pattern":   func(r *Registry) { r.RegisterIncludePattern(Always(), "", "a/*") },
		"glob":      func(r *Registry) { _ = r.RegisterIncludeGlob(Always(), "", "a/**") },
	}
	for name, register := range registrations {
		t.Run(name, func(t *testing.T) {
			registry, _ := newTestRegistry(t, Options{})
			registry.Freeze()
			defer func() {
				recovered := recover()
				if recovered == nil {
					t.Fatal("registration after Freeze did not panic")
				}
				if message := fmt.Sprint(recovered); !strings.Contains(message, "after analysis completed") {
					t.Errorf("panic = %q", message)
				}
			}()
			register(registry)
		})
	}
}

func TestRegisterIncludeGlobRejectsInvalid(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	if err := registry.RegisterIncludeGlob(Always(), "app", "a/***"); err == nil {
		t.Error("invalid glob accepted")
	}
	if len(registry.Store().Patterns()) != 0 {
		t.Error("invalid glob was recorded")
	}
}

func TestRegisterIncludePatternDeduplicates(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	registry.RegisterIncludePattern(TypeReachable("a"), "app", "images/*")
	registry.RegisterIncludePattern(TypeReachable("b"), "app", "images/*")
	if err := registry.RegisterIncludeGlob(Always(), "app", "images/*"); err != nil {
		t.Fatal(err)
	}

	patterns := registry.Store().Patterns()
	if len(patterns) != 2 {
		t.Fatalf("Patterns() = %v, want one pattern rule and one glob rule", patterns)
	}
	if len(patterns[0].Conditions.Clauses()) != 2 {
		t.Errorf("duplicate pattern conditions = %v, want both", patterns[0].Conditions.Clauses())
	}
}

func TestRemapModuleAppliesToInstanceKeys(t *testing.T) {
	hosted := NewModule("app")
	runtime := NewModule("app")
	registry, _ := newTestRegistry(t, Options{
		RemapModule: func(m *Module) *Module {
			if m == hosted {
				return runtime
			}
			return m
		},
	})
	registry.RegisterResource(hosted, "a.txt", []byte("x"), false)

	if _, _, ok := registry.Store().Entry(NewKey(KeyByInstance, runtime, "a.txt")); !ok {
		t.Error("entry not stored under the remapped module")
	}
}

func TestConcurrentRegistration(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	const workers = 8
	const perWorker = 100

	var group sync.WaitGroup
	for worker := range workers {
		group.Add(1)
		go func() {
			defer group.Done()
			for i := range perWorker {
				registry.RegisterResource(nil, fmt.Sprintf("w%d/%d", worker, i), []byte{byte(i)}, false)
				registry.RegisterResource(nil, "shared", []byte{byte(worker)}, false)
			}
		}()
	}
	group.Wait()

	if got, want := registry.Store().Len(), workers*perWorker+1; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	if got := storedEntry(t, registry, nil, "shared").BlobCount(); got != workers*perWorker {
		t.Errorf("shared blob count = %d, want %d", got, workers*perWorker)
	}
}

func TestSnapshot(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{Layered: true})
	registry.RegisterResource(NewModule("app"), "a.txt", []byte("x"), false)
	registry.RegisterNegativeQuery(nil, "absent.txt")
	registry.RegisterIncludePattern(Always(), "app", "images/*")
	if err := registry.RegisterIncludeGlob(Always(), "", "META-INF/**"); err != nil {
		t.Fatal(err)
	}

	want := LayerSnapshot{
		Keys:     []string{"app:a.txt", ":absent.txt"},
		Positive: []bool{true, false},
		Patterns: []string{"p:app:images/*", "g::META-INF/**"},
		Modules:  []string{"app"},
	}
	if diff := cmp.Diff(want, registry.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestLayeredRegistrationRespectsPreviousLayer(t *testing.T) {
	previous, err := NewPreviousLayer(LayerSnapshot{
		Keys:     []string{"app:held.txt", "app:absent.txt", "app:checked.txt"},
		Positive: []bool{true, false, false},
		Patterns: []string{"p:app:images/*"},
		Modules:  []string{"app"},
	})
	if err != nil {
		t.Fatal(err)
	}
	registry, _ := newTestRegistry(t, Options{Layered: true, Previous: previous})
	app := NewModule("app")

	registry.RegisterResource(app, "held.txt", []byte("dup"), false)
	registry.RegisterResource(app, "absent.txt", []byte("now present"), false)
	registry.RegisterNegativeQuery(app, "checked.txt")
	registry.RegisterNegativeQuery(app, "held.txt")
	registry.RegisterIncludePattern(Always(), "app", "images/*")
	registry.RegisterIncludePattern(Always(), "app", "fonts/*")

	want := LayerSnapshot{
		Keys:     []string{"app:absent.txt"},
		Positive: []bool{true},
		Patterns: []string{"p:app:fonts/*"},
	}
	got := registry.Snapshot()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestPreviousLayerRequiresLayeredBuild(t *testing.T) {
	previous, _ := NewPreviousLayer()
	defer func() {
		if recover() == nil {
			t.Error("NewRegistry accepted a previous layer for a non-layered build")
		}
	}()
	NewRegistry(Options{Previous: previous})
}

func TestEntryBlobsAreIndependentSlices(t *testing.T) {
	registry, _ := newTestRegistry(t, Options{})
	registry.RegisterResource(nil, "a", []byte("x"), false)
	entry := storedEntry(t, registry, nil, "a")
	blobs := entry.Blobs()
	blobs[0] = []byte("replaced")
	if !bytes.Equal(entry.Blobs()[0], []byte("x")) {
		t.Error("modifying the returned slice changed the entry")
	}
}
