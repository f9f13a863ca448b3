// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resourcefs mounts the resources of a [resource.Image] as a
// read-only FUSE filesystem, so a built image's table can be browsed
// with ordinary tools:
//
//	<mountpoint>/unnamed/config.properties
//	<mountpoint>/modules/app/META-INF/MANIFEST.MF
//
// Every visible data entry is a regular file holding its first
// payload, which is what a stream open returns. Directories come from
// registered directory entries and from the parents of registered
// files. A resource that replays a build-time read failure is listed
// but fails to open with EIO. Conditional entries appear only when the
// image's reachability satisfies them.
package resourcefs
