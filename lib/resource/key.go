// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"fmt"
	"strings"
)

// KeyMode selects how the module component of a Key is represented.
// It is a build-wide switch: every key in a Store uses the same mode.
type KeyMode uint8

const (
	// KeyByInstance keys on module identity. Used for standalone
	// (single-layer) builds.
	KeyByInstance KeyMode = iota

	// KeyByName keys on the module name. Used for layered builds,
	// where each layer has its own module instances but module names
	// are unique across layers.
	KeyByName
)

func (m KeyMode) String() string {
	switch m {
	case KeyByInstance:
		return "instance"
	case KeyByName:
		return "name"
	default:
		return fmt.Sprintf("KeyMode(%d)", m)
	}
}

// ParseKeyMode is the inverse of KeyMode.String.
func ParseKeyMode(s string) (KeyMode, error) {
	switch s {
	case "instance":
		return KeyByInstance, nil
	case "name":
		return KeyByName, nil
	default:
		return 0, fmt.Errorf("unknown key mode %q", s)
	}
}

// Key identifies a resource by owning module and resource path. Key is
// comparable and is used directly as a map key. Exactly one of module
// and moduleName is meaningful, depending on the mode that built it;
// both are zero for unnamed-module keys.
type Key struct {
	module     *Module
	moduleName string
	name       string
}

// NewKey builds the key for (module, name) under mode. Unnamed modules
// (nil or NewUnnamedModule) collapse to the same key component. The
// name is used as given; callers canonicalize first.
func NewKey(mode KeyMode, module *Module, name string) Key {
	if !module.IsNamed() {
		return Key{name: name}
	}
	if mode == KeyByName {
		return Key{moduleName: module.name, name: name}
	}
	return Key{module: module, name: name}
}

// NameKey builds a name-keyed key directly from a module name. Used
// when decoding persisted layers, where no module instance exists.
func NameKey(moduleName, name string) Key {
	return Key{moduleName: moduleName, name: name}
}

// Name returns the resource path component.
func (k Key) Name() string { return k.name }

// Module returns the module instance for instance-keyed keys, nil
// otherwise.
func (k Key) Module() *Module { return k.module }

// ModuleName returns the module name, or "" for the unnamed module.
func (k Key) ModuleName() string {
	if k.module != nil {
		return k.module.name
	}
	return k.moduleName
}

// IsModuleScoped reports whether the key belongs to a named module.
func (k Key) IsModuleScoped() bool {
	return k.ModuleName() != ""
}

// String returns the persisted form "<module>:<path>". Module names
// never contain ':', so the first colon always separates the two.
func (k Key) String() string {
	return k.ModuleName() + ":" + k.name
}

// ParseKey splits the persisted form produced by Key.String.
func ParseKey(s string) (moduleName, name string, err error) {
	moduleName, name, found := strings.Cut(s, ":")
	if !found {
		return "", "", fmt.Errorf("resource key %q has no module separator", s)
	}
	return moduleName, name, nil
}
