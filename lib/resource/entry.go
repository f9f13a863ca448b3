// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"errors"
	"fmt"
)

// Kind discriminates the Entry variants.
type Kind uint8

const (
	// KindData holds one or more payloads (or a directory listing).
	KindData Kind = iota + 1

	// KindException records a read failure that is replayed on access.
	KindException

	// KindNegative records that the resource was looked up at build
	// time and confirmed absent.
	KindNegative
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindException:
		return "exception"
	case KindNegative:
		return "negative"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "data":
		return KindData, nil
	case "exception":
		return KindException, nil
	case "negative":
		return KindNegative, nil
	default:
		return 0, fmt.Errorf("unknown entry kind %q", s)
	}
}

// Entry is the value stored for a key. Entries are immutable once
// published: appending a blob replaces the stored entry with a new
// one, so a reader holding an *Entry never observes a change.
type Entry struct {
	kind        Kind
	directory   bool
	fromArchive bool
	blobs       [][]byte
	err         error
}

var negativeEntry = &Entry{kind: KindNegative}

// NewDataEntry returns a data entry that takes ownership of blobs.
// Panics if no blob is given: a data entry always has content, even
// if that content is empty.
func NewDataEntry(directory, fromArchive bool, blobs ...[]byte) *Entry {
	if len(blobs) == 0 {
		panic("resource: data entry without blobs")
	}
	return &Entry{
		kind:        KindData,
		directory:   directory,
		fromArchive: fromArchive,
		blobs:       blobs,
	}
}

// NewExceptionEntry returns an entry replaying err on access. A nil
// err is replaced by a generic failure so replay always fails.
func NewExceptionEntry(err error) *Entry {
	if err == nil {
		err = errors.New("resource read failed")
	}
	return &Entry{kind: KindException, err: err}
}

// NegativeEntry returns the shared negative marker.
func NegativeEntry() *Entry { return negativeEntry }

// Kind returns the entry variant.
func (e *Entry) Kind() Kind { return e.kind }

// IsDirectory reports whether the entry is a directory listing.
func (e *Entry) IsDirectory() bool { return e.directory }

// FromArchive reports whether the entry was read from an archive
// source, which subjects it to exact-path lookup rules.
func (e *Entry) FromArchive() bool { return e.fromArchive }

// Blobs returns the payloads in registration order. The byte slices
// are shared with the store and must not be modified.
func (e *Entry) Blobs() [][]byte {
	result := make([][]byte, len(e.blobs))
	copy(result, e.blobs)
	return result
}

// BlobCount returns the number of payloads.
func (e *Entry) BlobCount() int { return len(e.blobs) }

// Blob returns the payload at index i. The slice must not be modified.
func (e *Entry) Blob(i int) ([]byte, bool) {
	if i < 0 || i >= len(e.blobs) {
		return nil, false
	}
	return e.blobs[i], true
}

// Err returns the recorded failure of an exception entry.
func (e *Entry) Err() error { return e.err }

// withBlob returns a copy of a data entry with blob appended.
func (e *Entry) withBlob(blob []byte) *Entry {
	blobs := make([][]byte, len(e.blobs), len(e.blobs)+1)
	copy(blobs, e.blobs)
	return &Entry{
		kind:        KindData,
		directory:   e.directory,
		fromArchive: e.fromArchive,
		blobs:       append(blobs, blob),
	}
}
