// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// Policy selects the tag for each payload.
type Policy string

const (
	// Auto picks per payload: small payloads stay uncompressed,
	// text-like payloads use zstd, everything else lz4.
	Auto Policy = "auto"

	PolicyNone Policy = "none"
	PolicyLZ4  Policy = "lz4"
	PolicyZstd Policy = "zstd"
)

// SmallPayload is the size below which Auto stores payloads as-is.
const SmallPayload = 64

// textSample bounds how much of a payload Auto inspects.
const textSample = 4096

// ParsePolicy parses a policy name. The empty string is Auto.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", Auto:
		return Auto, nil
	case PolicyNone, PolicyLZ4, PolicyZstd:
		return Policy(name), nil
	default:
		return "", fmt.Errorf("unknown compression policy %q (want auto, none, lz4 or zstd)", name)
	}
}

// Select returns the tag the policy chooses for data.
func (p Policy) Select(data []byte) Tag {
	switch p {
	case PolicyNone:
		return None
	case PolicyLZ4:
		return LZ4
	case PolicyZstd:
		return Zstd
	}
	if len(data) < SmallPayload {
		return None
	}
	if LooksLikeText(data) {
		return Zstd
	}
	return LZ4
}

// CompressAuto compresses data with the tag the policy selects. When
// compression would not shrink the payload it is returned as-is with
// None.
func (p Policy) CompressAuto(data []byte) ([]byte, Tag, error) {
	tag := p.Select(data)
	compressed, err := Compress(data, tag)
	if err != nil {
		if IsIncompressible(err) {
			return data, None, nil
		}
		return nil, 0, err
	}
	return compressed, tag, nil
}

// LooksLikeText reports whether the leading bytes of data are valid
// UTF-8 without NUL bytes. A multi-byte rune cut at the sample
// boundary is tolerated.
func LooksLikeText(data []byte) bool {
	sample := data
	if len(sample) > textSample {
		sample = sample[:textSample]
		for i := 0; i < utf8.UTFMax && len(sample) > 0 && !utf8.Valid(sample); i++ {
			sample = sample[:len(sample)-1]
		}
	}
	return utf8.Valid(sample) && bytes.IndexByte(sample, 0) < 0
}
