// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes the domain-separated BLAKE3 checksums that
// protect persisted layer snapshots and resource bundles.
package digest

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Sum is a 32-byte BLAKE3 keyed digest.
type Sum [32]byte

// String returns the lowercase hex encoding.
func (s Sum) String() string { return hex.EncodeToString(s[:]) }

// Equal compares in constant time.
func (s Sum) Equal(other Sum) bool {
	return subtle.ConstantTimeCompare(s[:], other[:]) == 1
}

// Domain is a 32-byte BLAKE3 key. Each file format hashes under its
// own domain so identical bytes never checksum the same across
// formats. The keys are ASCII names zero-padded to 32 bytes; changing
// one invalidates every file written under it.
type Domain [32]byte

var (
	LayerSnapshot = Domain{
		'i', 'm', 'a', 'g', 'e', 'r', 'e', 's', '.', 'l', 'a', 'y', 'e', 'r', '.', 's',
		'n', 'a', 'p', 's', 'h', 'o', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	Bundle = Domain{
		'i', 'm', 'a', 'g', 'e', 'r', 'e', 's', '.', 'b', 'u', 'n', 'd', 'l', 'e', 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Compute returns the keyed hash of data under domain.
func Compute(domain Domain, data []byte) Sum {
	hasher, err := blake3.NewKeyed(domain[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var sum Sum
	copy(sum[:], hasher.Sum(nil))
	return sum
}

// Verify checks data against want.
func Verify(domain Domain, data []byte, want Sum) error {
	if got := Compute(domain, data); !got.Equal(want) {
		return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
	}
	return nil
}
