// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// imageres builds and queries image resource tables.
//
// Usage:
//
//	imageres collect [flags] SOURCE[=MODULE]...
//	imageres lookup --bundle FILE... [flags] NAME
//	imageres urls --bundle FILE... [flags] NAME
//	imageres inspect [--diag] FILE
//	imageres mount --bundle FILE... [flags] MOUNTPOINT
//	imageres version
//
// collect scans directories and .zip/.jar archives, registers what the
// resource configuration admits, and writes resources.bundle (the
// run-time table) and, for layered builds, layer.snapshot (the view a
// later layer builds against). lookup and urls answer queries the way
// the image does at run time, across one bundle per layer.
package main
