// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [WriteTree] and [WriteZip] lay out resource sources on disk (a
// directory tree or a zip archive) from a map of slash-separated
// names to contents, so scanner and CLI tests describe their inputs
// inline. [DiscardLogger] returns a logger for components whose log
// output a test does not inspect.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
