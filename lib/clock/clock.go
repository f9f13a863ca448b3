// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the wall clock for testability. Production code
// injects Real(); tests inject Fake() and move time explicitly.
//
// The registry only needs the current time (for the build-wide
// last-modified stamp), so the interface is deliberately small.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
