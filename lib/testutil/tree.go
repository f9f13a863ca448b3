// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// WriteTree creates files under root. Names ending in "/" create
// empty directories.
//
//	testutil.WriteTree(t, dir, map[string]string{
//		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\n",
//		"empty/":               "",
//	})
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for _, name := range sortedNames(files) {
		path := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatalf("creating directory %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating parent of %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

// WriteZip creates a zip archive at path holding files in name order.
// Names ending in "/" become directory entries. Only the entries named
// are written; parents are not added implicitly.
func WriteZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive %s: %v", path, err)
	}
	writer := zip.NewWriter(out)
	for _, name := range sortedNames(files) {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("adding %s to archive: %v", name, err)
		}
		if _, err := io.WriteString(entry, files[name]); err != nil {
			t.Fatalf("writing %s to archive: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("finishing archive %s: %v", path, err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("closing archive %s: %v", path, err)
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sortedNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
