// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotFound is returned by stream and URL operations when no visible
// entry exists. It matches fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("resource not found: %w", fs.ErrNotExist)

// ErrMissingRegistration matches every *MissingRegistrationError.
var ErrMissingRegistration = errors.New("resource access without registration")

// MissingRegistrationError reports an access, under strict
// enforcement, to a resource that was neither registered nor covered
// by an include pattern. It is distinct from an ordinary miss: the
// build configuration should be extended to cover the resource.
type MissingRegistrationError struct {
	Module string // "" for the unnamed module
	Name   string // as requested
}

func (e *MissingRegistrationError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("resource %q was accessed but not registered for the image", e.Name)
	}
	return fmt.Sprintf("resource %q in module %q was accessed but not registered for the image", e.Name, e.Module)
}

// Is makes errors.Is(err, ErrMissingRegistration) hold.
func (e *MissingRegistrationError) Is(target error) bool {
	return target == ErrMissingRegistration
}

// ResourceError wraps a read failure recorded at build time and
// replayed when the resource is accessed.
type ResourceError struct {
	Module string
	Name   string
	Err    error
}

func (e *ResourceError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("reading resource %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("reading resource %q in module %q: %v", e.Name, e.Module, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
