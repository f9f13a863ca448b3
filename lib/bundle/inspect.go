// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/imageres/lib/compression"
	"github.com/bureau-foundation/imageres/lib/resource"
)

// Info summarizes a bundle without inflating its payloads.
type Info struct {
	KeyMode   resource.KeyMode
	Timestamp time.Time

	Entries map[resource.Kind]int

	// Payloads counts payloads by the compression they are stored with.
	Payloads map[compression.Tag]int

	// PayloadBytes is the uncompressed payload total; StoredBytes is
	// what the payloads occupy in the file.
	PayloadBytes int64
	StoredBytes  int64

	Patterns int
	Globs    int
}

// Inspect verifies and summarizes an encoded bundle.
func Inspect(data []byte) (Info, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return Info{}, err
	}
	mode, err := resource.ParseKeyMode(doc.KeyMode)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	info := Info{
		KeyMode:   mode,
		Timestamp: doc.Timestamp,
		Entries:   make(map[resource.Kind]int),
		Payloads:  make(map[compression.Tag]int),
	}
	for _, entry := range doc.Entries {
		kind, err := resource.ParseKind(entry.Kind)
		if err != nil {
			return Info{}, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		info.Entries[kind]++
		for _, blob := range entry.Blobs {
			info.Payloads[blob.Compression]++
			info.PayloadBytes += int64(blob.Size)
			info.StoredBytes += int64(len(blob.Data))
		}
	}
	for _, pattern := range doc.Patterns {
		if pattern.Glob {
			info.Globs++
		} else {
			info.Patterns++
		}
	}
	return info, nil
}
