// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle is the run-time form of a build layer's resource
// table. A bundle holds every entry of a frozen store in insertion
// order, with its conditions, payloads and the include rules, so an
// image can rebuild the store without rerunning the scan.
//
// File layout:
//
//	offset  size  field
//	0       4     magic "IRBN"
//	4       1     format version
//	5       32    BLAKE3 checksum (bundle domain) of the body
//	37      ...   CBOR body
//
// Payloads are compressed individually inside the body, each tagged
// with the algorithm used (see package compression), so decoding one
// layer never inflates payloads twice.
package bundle
