// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration shared by the
// persisted formats in this module: layer snapshot files
// (lib/layerfile) and image resource bundles (lib/bundle).
//
// The encoder uses Core Deterministic Encoding: sorted map keys,
// smallest integer encoding, no indefinite-length items. The same
// registry state always produces the same bytes, so checksums over
// encoded bodies are stable across builds.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Persisted types use `cbor` struct tags only. They are never exposed
// as JSON.
package codec
