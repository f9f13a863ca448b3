// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"

	"github.com/bureau-foundation/imageres/lib/resource"
)

// OpenFile decodes the bundle stored at path. The file is memory
// mapped where the platform supports it; the mapping is released
// before OpenFile returns, as decoding copies every payload.
func OpenFile(path string, modules *resource.ModuleLayer) (*resource.Store, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening resource bundle: %w", err)
	}
	store, decodeErr := Decode(data, modules)
	if err := release(); err != nil && decodeErr == nil {
		return nil, fmt.Errorf("releasing %s: %w", path, err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", path, decodeErr)
	}
	return store, nil
}

// InspectFile summarizes the bundle stored at path.
func InspectFile(path string) (Info, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening resource bundle: %w", err)
	}
	defer release()
	return Inspect(data)
}
