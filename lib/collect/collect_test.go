// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/imageres/lib/resource"
	"github.com/bureau-foundation/imageres/lib/resourceconfig"
	"github.com/bureau-foundation/imageres/lib/testutil"
)

func newRegistry(t *testing.T) *resource.Registry {
	t.Helper()
	return resource.NewRegistry(resource.Options{Logger: testutil.DiscardLogger()})
}

func mustConfig(t *testing.T, jsonc string) *resourceconfig.Config {
	t.Helper()
	config, err := resourceconfig.Parse([]byte(jsonc))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	return config
}

func lookupString(t *testing.T, store *resource.Store, module *resource.Module, name string) (*resource.Entry, []string) {
	t.Helper()
	entry, _, ok := store.Entry(resource.NewKey(store.Mode(), module, name))
	if !ok {
		return nil, nil
	}
	var blobs []string
	for _, blob := range entry.Blobs() {
		blobs = append(blobs, string(blob))
	}
	return entry, blobs
}

func TestRunDirectorySource(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"config.properties":        "a=b\n",
		"images/logo.png":          "png",
		"images/icons/small.png":   "small",
		"META-INF/services/p.Impl": "impl",
		"empty/":                   "",
	})

	registry := newRegistry(t)
	stats, err := New(Options{Registry: registry, Logger: testutil.DiscardLogger()}).
		Run(context.Background(), []Source{{Path: root}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	registry.Freeze()
	store := registry.Store()

	entry, blobs := lookupString(t, store, nil, "images/logo.png")
	if entry == nil || entry.FromArchive() || entry.IsDirectory() {
		t.Fatalf("images/logo.png = %v", entry)
	}
	if diff := cmp.Diff([]string{"png"}, blobs); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	entry, blobs = lookupString(t, store, nil, "images")
	if entry == nil || !entry.IsDirectory() {
		t.Fatalf("images directory = %v", entry)
	}
	if diff := cmp.Diff([]string{"icons\nlogo.png"}, blobs); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
	if entry, _ := lookupString(t, store, nil, "empty"); entry == nil || !entry.IsDirectory() {
		t.Errorf("empty directory not registered: %v", entry)
	}

	if stats.Files != 4 || stats.Registered != 4+5 {
		t.Errorf("stats = %+v, want 4 files and 9 registrations", stats)
	}
}

func TestRunArchiveSource(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "lib.jar")
	testutil.WriteZip(t, archive, map[string]string{
		"META-INF/":                "",
		"META-INF/MANIFEST.MF":     "Manifest-Version: 1.0\n",
		"com/example/data.bin":     "bin",
		"com/example/messages.txt": "hello",
	})

	app := resource.NewModule("app")
	registry := newRegistry(t)
	_, err := New(Options{Registry: registry, Logger: testutil.DiscardLogger()}).
		Run(context.Background(), []Source{{Path: archive, Module: app}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	registry.Freeze()
	store := registry.Store()

	entry, blobs := lookupString(t, store, app, "com/example/messages.txt")
	if entry == nil || !entry.FromArchive() {
		t.Fatalf("com/example/messages.txt = %v, want an archive entry", entry)
	}
	if blobs[0] != "hello" {
		t.Errorf("payload = %q", blobs[0])
	}

	// com/ and com/example/ have no directory entries of their own.
	tests := map[string]string{
		"com":         "example",
		"com/example": "data.bin\nmessages.txt",
		"META-INF":    "MANIFEST.MF",
	}
	for name, want := range tests {
		entry, blobs := lookupString(t, store, app, name)
		if entry == nil || !entry.IsDirectory() || !entry.FromArchive() {
			t.Errorf("%s = %v, want an archive directory", name, entry)
			continue
		}
		if blobs[0] != want {
			t.Errorf("%s listing = %q, want %q", name, blobs[0], want)
		}
	}
}

func TestRunAppliesConfiguration(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"images/logo.png":      "png",
		"images/source.psd":    "psd",
		"i18n/en/m.properties": "hello",
		"secret.txt":           "no",
	})
	config := mustConfig(t, `{
	  "resources": {
	    "includes": [{"pattern": "images/*", "condition": {"typeReachable": "app.Gallery"}}],
	    "excludes": [{"pattern": "*.psd"}],
	  },
	  "globs": [{"glob": "i18n/**/*.properties"}],
	  "probes": [{"name": "logging.properties"}, {"name": "images/logo.png"}, {"name": "x", "module": "ghost"}],
	}`)

	registry := newRegistry(t)
	stats, err := New(Options{Registry: registry, Config: config, Logger: testutil.DiscardLogger()}).
		Run(context.Background(), []Source{{Path: root}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	registry.Freeze()
	store := registry.Store()

	if _, conditions, ok := store.Entry(resource.NewKey(store.Mode(), nil, "images/logo.png")); !ok {
		t.Error("images/logo.png not registered")
	} else if conditions.IsAlways() {
		t.Error("images/logo.png lost its condition")
	}
	for _, name := range []string{"images/source.psd", "secret.txt"} {
		if entry, _ := lookupString(t, store, nil, name); entry != nil {
			t.Errorf("%s registered although not admitted", name)
		}
	}
	if entry, _ := lookupString(t, store, nil, "i18n/en/m.properties"); entry == nil {
		t.Error("glob-admitted resource not registered")
	}
	if entry, _ := lookupString(t, store, nil, "logging.properties"); entry == nil || entry.Kind() != resource.KindNegative {
		t.Errorf("logging.properties = %v, want a negative marker", entry)
	}
	if stats.Negatives != 1 {
		t.Errorf("Negatives = %d, want 1", stats.Negatives)
	}
}

func TestRunMultipleSourcesShadow(t *testing.T) {
	first := t.TempDir()
	second := filepath.Join(t.TempDir(), "second.zip")
	testutil.WriteTree(t, first, map[string]string{"META-INF/services/p": "first"})
	testutil.WriteZip(t, second, map[string]string{"META-INF/services/p": "second"})

	registry := newRegistry(t)
	_, err := New(Options{Registry: registry, Workers: 1, Logger: testutil.DiscardLogger()}).
		Run(context.Background(), []Source{{Path: first}, {Path: second}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, blobs := lookupString(t, registry.Store(), nil, "META-INF/services/p")
	if diff := cmp.Diff([]string{"first", "second"}, blobs); diff != "" {
		t.Errorf("blobs mismatch (-want +got):\n%s", diff)
	}
}

func TestRunReadFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits do not prevent reads on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"locked.txt": "x"})
	if err := os.Chmod(filepath.Join(root, "locked.txt"), 0); err != nil {
		t.Fatal(err)
	}

	t.Run("deferred", func(t *testing.T) {
		registry := newRegistry(t)
		stats, err := New(Options{Registry: registry, Logger: testutil.DiscardLogger()}).
			Run(context.Background(), []Source{{Path: root}})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		entry, _ := lookupString(t, registry.Store(), nil, "locked.txt")
		if entry == nil || entry.Kind() != resource.KindException {
			t.Errorf("locked.txt = %v, want an exception entry", entry)
		}
		if stats.Failures != 1 {
			t.Errorf("Failures = %d, want 1", stats.Failures)
		}
	})

	t.Run("fail fast", func(t *testing.T) {
		registry := newRegistry(t)
		_, err := New(Options{Registry: registry, FailOnIOError: true, Logger: testutil.DiscardLogger()}).
			Run(context.Background(), []Source{{Path: root}})
		var resourceErr *resource.ResourceError
		if !errors.As(err, &resourceErr) {
			t.Errorf("err = %v, want *resource.ResourceError", err)
		}
	})
}

func TestRunSourceErrors(t *testing.T) {
	directory := t.TempDir()
	plain := filepath.Join(directory, "plain.txt")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	corrupt := filepath.Join(directory, "corrupt.jar")
	if err := os.WriteFile(corrupt, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	for name, source := range map[string]string{
		"missing":     filepath.Join(directory, "missing"),
		"plain file":  plain,
		"corrupt jar": corrupt,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(Options{Registry: newRegistry(t), Logger: testutil.DiscardLogger()}).
				Run(context.Background(), []Source{{Path: source}})
			if err == nil {
				t.Error("Run succeeded")
			}
		})
	}
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a.txt": "a"})

	registry := newRegistry(t)
	config := &resourceconfig.Config{Globs: []resourceconfig.Glob{{Glob: "/a.txt"}}}
	_, err := New(Options{Registry: registry, Config: config, Logger: testutil.DiscardLogger()}).
		Run(context.Background(), []Source{{Path: root}})
	if err == nil || !strings.Contains(err.Error(), "resource configuration") {
		t.Errorf("err = %v, want a configuration error", err)
	}
	if registry.Store().Len() != 0 {
		t.Errorf("misconfigured scan registered %d entries", registry.Store().Len())
	}
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	registry := newRegistry(t)
	_, err := New(Options{Registry: registry, Logger: testutil.DiscardLogger()}).
		Run(ctx, []Source{{Path: root}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if registry.Store().Len() != 0 {
		t.Errorf("cancelled scan registered %d entries", registry.Store().Len())
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New accepted options without a registry")
		}
	}()
	New(Options{})
}
