// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resource implements the image resource registry: a table
// populated while an image is built and queried, read-only, when it
// runs.
//
// At build time a [Registry] records, for each (module, path) [Key],
// either payload data, a read failure to replay, or a negative marker
// saying the path was checked and is absent. Each entry carries a
// [ConditionSet] that must be satisfied at run time for the entry to
// be visible. Include patterns and globs record which absent
// resources were expected, so strict enforcement does not report them.
//
// Layered builds use name-keyed keys. Each layer owns a [Store]; the
// layers completed before it are visible through a [PreviousLayer],
// reconstructed from the [LayerSnapshot] lists each layer persists.
// A later layer never duplicates an earlier positive entry but may
// replace an earlier negative one.
//
// At run time an [Image] merges every frozen layer and answers
// [Image.Lookup], [Image.OpenStream], [Image.URLs] and [Image.OpenURL].
// Missing registrations under strict enforcement surface as
// *[MissingRegistrationError] and are routed to a [Reporter] unless
// the query is a probe.
package resource
