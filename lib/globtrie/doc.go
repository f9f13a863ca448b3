// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package globtrie indexes resource globs by path segment so a lookup
// walks only the branches that can match, instead of testing every
// registered glob.
//
// Glob syntax follows path.Match within a segment (*, ?, [...], and
// backslash escapes never cross "/"). A segment consisting of exactly
// "**" matches zero or more whole segments:
//
//	"images/*.png"      matches "images/logo.png"
//	"images/**"         matches "images", "images/a.png", "images/x/y.png"
//	"**/messages.props" matches "messages.props" and "i18n/en/messages.props"
//
// Each glob carries a payload (the resource registry stores the
// reachability condition under which the glob was registered). Match
// returns the payloads of every glob that matches a path.
//
// After all globs are added, Compress merges chains of literal
// single-child nodes into one node, so that a deep literal prefix such
// as "META-INF/services/" costs one map lookup. A compressed trie is
// read-only and safe for concurrent use.
package globtrie
