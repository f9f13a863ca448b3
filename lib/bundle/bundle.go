// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/imageres/lib/atomicfile"
	"github.com/bureau-foundation/imageres/lib/codec"
	"github.com/bureau-foundation/imageres/lib/compression"
	"github.com/bureau-foundation/imageres/lib/digest"
	"github.com/bureau-foundation/imageres/lib/resource"
)

// Magic identifies a resource bundle file.
const Magic = "IRBN"

// Version is the current format version.
const Version = 1

// MaxBlobSize bounds the uncompressed size of one payload accepted by
// Decode.
const MaxBlobSize = 1 << 30

const headerSize = len(Magic) + 1 + len(digest.Sum{})

// ErrFormat is wrapped by every error about malformed bundle content.
var ErrFormat = errors.New("malformed resource bundle")

type document struct {
	KeyMode   string          `cbor:"key_mode"`
	Timestamp time.Time       `cbor:"timestamp"`
	Entries   []entryRecord   `cbor:"entries"`
	Patterns  []patternRecord `cbor:"patterns"`
}

type entryRecord struct {
	Module      string       `cbor:"module,omitempty"`
	Name        string       `cbor:"name"`
	Kind        string       `cbor:"kind"`
	Directory   bool         `cbor:"directory,omitempty"`
	FromArchive bool         `cbor:"from_archive,omitempty"`
	Conditions  [][]string   `cbor:"conditions,omitempty"`
	Blobs       []blobRecord `cbor:"blobs,omitempty"`
	Error       string       `cbor:"error,omitempty"`
}

type blobRecord struct {
	Compression compression.Tag `cbor:"compression"`
	Size        int             `cbor:"size"`
	Data        []byte          `cbor:"data"`
}

type patternRecord struct {
	Module     string     `cbor:"module,omitempty"`
	Pattern    string     `cbor:"pattern"`
	Glob       bool       `cbor:"glob,omitempty"`
	Conditions [][]string `cbor:"conditions,omitempty"`
}

// Options configures Encode.
type Options struct {
	// Compression selects the per-payload compression. The zero
	// value is compression.Auto.
	Compression compression.Policy
}

// Encode serializes a frozen store.
func Encode(store *resource.Store, options Options) ([]byte, error) {
	if !store.Frozen() {
		return nil, errors.New("encoding resource bundle: store is still open for registration")
	}
	policy := options.Compression
	if policy == "" {
		policy = compression.Auto
	}

	doc := document{
		KeyMode:   store.Mode().String(),
		Timestamp: store.Timestamp(),
		Entries:   []entryRecord{},
		Patterns:  []patternRecord{},
	}
	for _, record := range store.Records() {
		entry := record.Entry
		out := entryRecord{
			Module:      record.Key.ModuleName(),
			Name:        record.Key.Name(),
			Kind:        entry.Kind().String(),
			Directory:   entry.IsDirectory(),
			FromArchive: entry.FromArchive(),
			Conditions:  encodeConditions(record.Conditions),
		}
		switch entry.Kind() {
		case resource.KindData:
			for _, blob := range entry.Blobs() {
				compressed, tag, err := policy.CompressAuto(blob)
				if err != nil {
					return nil, fmt.Errorf("compressing %s: %w", record.Key, err)
				}
				out.Blobs = append(out.Blobs, blobRecord{Compression: tag, Size: len(blob), Data: compressed})
			}
		case resource.KindException:
			out.Error = entry.Err().Error()
		}
		doc.Entries = append(doc.Entries, out)
	}
	for _, rule := range store.Patterns() {
		doc.Patterns = append(doc.Patterns, patternRecord{
			Module:     rule.ModuleName,
			Pattern:    rule.Pattern,
			Glob:       rule.Glob,
			Conditions: encodeConditions(rule.Conditions),
		})
	}

	body, err := codec.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding resource bundle: %w", err)
	}
	return frame(body), nil
}

// frame prefixes body with the magic, version and checksum.
func frame(body []byte) []byte {
	sum := digest.Compute(digest.Bundle, body)

	var buffer bytes.Buffer
	buffer.Grow(headerSize + len(body))
	buffer.WriteString(Magic)
	buffer.WriteByte(Version)
	buffer.Write(sum[:])
	buffer.Write(body)
	return buffer.Bytes()
}

// Decode rebuilds a frozen store from an encoded bundle. Instance-keyed
// bundles resolve module names through modules, which must then hold
// every named module the bundle refers to; with a nil modules each
// distinct name gets a fresh module.
func Decode(data []byte, modules *resource.ModuleLayer) (*resource.Store, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	mode, err := resource.ParseKeyMode(doc.KeyMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	resolver := moduleResolver{modules: modules, created: make(map[string]*resource.Module)}
	records := make([]resource.Record, 0, len(doc.Entries))
	for _, in := range doc.Entries {
		key, err := resolver.key(mode, in.Module, in.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		entry, err := decodeEntry(in)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s: %w", ErrFormat, key, err)
		}
		records = append(records, resource.Record{
			Key:        key,
			Conditions: decodeConditions(in.Conditions),
			Entry:      entry,
		})
	}
	patterns := make([]resource.PatternRule, 0, len(doc.Patterns))
	for _, in := range doc.Patterns {
		patterns = append(patterns, resource.PatternRule{
			ModuleName: in.Module,
			Pattern:    in.Pattern,
			Glob:       in.Glob,
			Conditions: decodeConditions(in.Conditions),
		})
	}

	store, err := resource.RestoreStore(mode, doc.Timestamp, records, patterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return store, nil
}

// WriteFile atomically writes the encoded store to path.
func WriteFile(path string, store *resource.Store, options Options) error {
	data, err := Encode(store, options)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, data, 0o644)
}

func decodeDocument(data []byte) (document, error) {
	body, err := Body(data)
	if err != nil {
		return document{}, err
	}
	var doc document
	if err := codec.Unmarshal(body, &doc); err != nil {
		return document{}, fmt.Errorf("%w: decoding body: %w", ErrFormat, err)
	}
	return doc, nil
}

// Body verifies the header and checksum and returns the CBOR body.
func Body(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, data[:len(Magic)])
	}
	if version := data[len(Magic)]; version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}
	var sum digest.Sum
	copy(sum[:], data[len(Magic)+1:headerSize])
	body := data[headerSize:]
	if err := digest.Verify(digest.Bundle, body, sum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return body, nil
}

func decodeEntry(in entryRecord) (*resource.Entry, error) {
	kind, err := resource.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case resource.KindNegative:
		return resource.NegativeEntry(), nil
	case resource.KindException:
		return resource.NewExceptionEntry(errors.New(in.Error)), nil
	}
	if len(in.Blobs) == 0 {
		return nil, errors.New("data entry has no payloads")
	}
	blobs := make([][]byte, 0, len(in.Blobs))
	for i, blob := range in.Blobs {
		if blob.Size < 0 || blob.Size > MaxBlobSize {
			return nil, fmt.Errorf("payload %d: size %d outside 0..%d", i, blob.Size, MaxBlobSize)
		}
		data, err := compression.Decompress(blob.Data, blob.Compression, blob.Size)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		if blob.Compression == compression.None {
			// Uncompressed payloads may alias the input, which the
			// caller is free to unmap.
			data = bytes.Clone(data)
		}
		blobs = append(blobs, data)
	}
	return resource.NewDataEntry(in.Directory, in.FromArchive, blobs...), nil
}

func encodeConditions(set resource.ConditionSet) [][]string {
	clauses := set.Clauses()
	if len(clauses) == 0 {
		return nil
	}
	result := make([][]string, 0, len(clauses))
	for _, clause := range clauses {
		result = append(result, clause.Types())
	}
	return result
}

func decodeConditions(clauses [][]string) resource.ConditionSet {
	conditions := make([]resource.Condition, 0, len(clauses))
	for _, types := range clauses {
		conditions = append(conditions, resource.TypeReachable(types...))
	}
	return resource.NewConditionSet(conditions...)
}

type moduleResolver struct {
	modules *resource.ModuleLayer
	created map[string]*resource.Module
}

func (r *moduleResolver) key(mode resource.KeyMode, moduleName, name string) (resource.Key, error) {
	if moduleName == "" {
		return resource.NewKey(mode, nil, name), nil
	}
	if mode == resource.KeyByName {
		return resource.NameKey(moduleName, name), nil
	}
	if r.modules != nil {
		module, ok := r.modules.Find(moduleName)
		if !ok {
			return resource.Key{}, fmt.Errorf("module %q is not in the module layer", moduleName)
		}
		return resource.NewKey(mode, module, name), nil
	}
	module, ok := r.created[moduleName]
	if !ok {
		module = resource.NewModule(moduleName)
		r.created[moduleName] = module
	}
	return resource.NewKey(mode, module, name), nil
}
