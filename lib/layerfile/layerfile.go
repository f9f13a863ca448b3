// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package layerfile persists the snapshot a completed build layer
// hands to the layers built on top of it.
//
// File layout:
//
//	offset  size  field
//	0       4     magic "IRLS"
//	4       1     format version
//	5       32    BLAKE3 checksum (layer snapshot domain) of bytes 37..end
//	37      8     uncompressed body length, big-endian
//	45      ...   zstd frame of the CBOR body
//
// The CBOR body holds the three parallel lists (keys, positive flags,
// patterns) and the module names the layer introduced.
package layerfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/imageres/lib/atomicfile"
	"github.com/bureau-foundation/imageres/lib/codec"
	"github.com/bureau-foundation/imageres/lib/compression"
	"github.com/bureau-foundation/imageres/lib/digest"
	"github.com/bureau-foundation/imageres/lib/resource"
)

// Magic identifies a layer snapshot file.
const Magic = "IRLS"

// Version is the current format version.
const Version = 1

// MaxBodySize bounds the decompressed body accepted by Read.
const MaxBodySize = 256 << 20

const headerSize = len(Magic) + 1 + len(digest.Sum{}) + 8

// ErrFormat is wrapped by every error about malformed file content.
var ErrFormat = errors.New("malformed layer snapshot")

type document struct {
	Keys        []string `cbor:"keys"`
	Positive    []bool   `cbor:"positive"`
	Patterns    []string `cbor:"patterns"`
	ModuleNames []string `cbor:"module_names"`
}

// Marshal encodes a snapshot. Invalid snapshots are rejected.
func Marshal(snapshot resource.LayerSnapshot) ([]byte, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("encoding layer snapshot: %w", err)
	}
	body, err := codec.Marshal(document{
		Keys:        nonNil(snapshot.Keys),
		Positive:    nonNil(snapshot.Positive),
		Patterns:    nonNil(snapshot.Patterns),
		ModuleNames: nonNil(snapshot.Modules),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding layer snapshot: %w", err)
	}

	var buffer bytes.Buffer
	buffer.WriteString(Magic)
	buffer.WriteByte(Version)
	checksumOffset := buffer.Len()
	buffer.Write(make([]byte, len(digest.Sum{})))
	binary.Write(&buffer, binary.BigEndian, uint64(len(body)))
	buffer.Write(compression.ZstdFrame(body))

	data := buffer.Bytes()
	sum := digest.Compute(digest.LayerSnapshot, data[headerSize-8:])
	copy(data[checksumOffset:], sum[:])
	return data, nil
}

// Unmarshal decodes and validates a snapshot file.
func Unmarshal(data []byte) (resource.LayerSnapshot, error) {
	if len(data) < headerSize {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	if string(data[:len(Magic)]) != Magic {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: bad magic %q", ErrFormat, data[:len(Magic)])
	}
	if version := data[len(Magic)]; version != Version {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}
	var sum digest.Sum
	copy(sum[:], data[len(Magic)+1:])
	if err := digest.Verify(digest.LayerSnapshot, data[headerSize-8:], sum); err != nil {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	length := binary.BigEndian.Uint64(data[headerSize-8 : headerSize])
	if length > MaxBodySize {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: body of %d bytes exceeds limit", ErrFormat, length)
	}
	body, err := compression.ZstdUnframe(data[headerSize:], int(length))
	if err != nil {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	var doc document
	if err := codec.Unmarshal(body, &doc); err != nil {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: decoding body: %w", ErrFormat, err)
	}
	snapshot := resource.LayerSnapshot{
		Keys:     doc.Keys,
		Positive: doc.Positive,
		Patterns: doc.Patterns,
		Modules:  doc.ModuleNames,
	}
	if err := snapshot.Validate(); err != nil {
		return resource.LayerSnapshot{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return snapshot, nil
}

// Write encodes snapshot to w.
func Write(w io.Writer, snapshot resource.LayerSnapshot) error {
	data, err := Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (resource.LayerSnapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(MaxBodySize+headerSize)))
	if err != nil {
		return resource.LayerSnapshot{}, fmt.Errorf("reading layer snapshot: %w", err)
	}
	return Unmarshal(data)
}

// WriteFile atomically writes snapshot to path.
func WriteFile(path string, snapshot resource.LayerSnapshot) error {
	data, err := Marshal(snapshot)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, data, 0o644)
}

// ReadFile reads the snapshot stored at path.
func ReadFile(path string) (resource.LayerSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return resource.LayerSnapshot{}, fmt.Errorf("reading layer snapshot: %w", err)
	}
	snapshot, err := Unmarshal(data)
	if err != nil {
		return resource.LayerSnapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, nil
}

// LoadPrevious reads each path, oldest layer first, and merges them
// into the view the next layer builds against.
func LoadPrevious(paths ...string) (*resource.PreviousLayer, error) {
	snapshots := make([]resource.LayerSnapshot, 0, len(paths))
	for _, path := range paths {
		snapshot, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return resource.NewPreviousLayer(snapshots...)
}

// Body returns the decompressed CBOR body of a snapshot file without
// decoding it. Used for diagnostic output.
func Body(data []byte) ([]byte, error) {
	if _, err := Unmarshal(data); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint64(data[headerSize-8 : headerSize])
	return compression.ZstdUnframe(data[headerSize:], int(length))
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
