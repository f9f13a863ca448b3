// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The resource registry stamps the build with a single last-modified
// time on the first successful registration. Production code passes
// Real(); tests pass Fake() so the stamp is a known value:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	registry := resource.NewRegistry(resource.Options{Clock: c})
package clock
