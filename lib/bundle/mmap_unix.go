// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package bundle

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapFile maps path read-only. The returned release function unmaps
// it; the slice must not be used afterwards.
func mapFile(path string) ([]byte, func() error, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer unix.Close(fd)

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, nil, fmt.Errorf("stating %s: %w", path, err)
	}
	if stat.Size == 0 {
		return []byte{}, func() error { return nil }, nil
	}

	data, err := unix.Mmap(fd, 0, int(stat.Size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("memory-mapping %s: %w", path, err)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
