// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import "fmt"

// Module is a named module instance. Modules are compared by identity:
// two calls to NewModule with the same name produce distinct modules,
// the way two class loaders can define same-named modules. A nil
// *Module, or one created by NewUnnamedModule, is unnamed.
type Module struct {
	name string
}

// NewModule returns a new named module. Panics if name is empty; use
// NewUnnamedModule (or nil) for the unnamed module.
func NewModule(name string) *Module {
	if name == "" {
		panic("resource: NewModule called with empty name")
	}
	return &Module{name: name}
}

// NewUnnamedModule returns a distinct unnamed module instance. Keys
// treat it exactly like nil.
func NewUnnamedModule() *Module {
	return &Module{}
}

// Name returns the module name, or "" for an unnamed module.
func (m *Module) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// IsNamed reports whether m is a named module.
func (m *Module) IsNamed() bool {
	return m != nil && m.name != ""
}

func (m *Module) String() string {
	if !m.IsNamed() {
		return "unnamed module"
	}
	return "module " + m.name
}

// ModuleLayer is the ordered set of named modules resolvable at run
// time (the boot layer). Lookups that do not name a module fall back
// to scanning these modules in order.
type ModuleLayer struct {
	modules []*Module
	byName  map[string]*Module
}

// NewModuleLayer builds a layer from the given modules. Panics if a
// module is unnamed or two modules share a name: module names are
// unique within an image by construction, so a duplicate means the
// build pipeline is inconsistent.
func NewModuleLayer(modules ...*Module) *ModuleLayer {
	layer := &ModuleLayer{byName: make(map[string]*Module, len(modules))}
	for _, module := range modules {
		if !module.IsNamed() {
			panic("resource: module layer cannot contain an unnamed module")
		}
		if _, exists := layer.byName[module.name]; exists {
			panic(fmt.Sprintf("resource: duplicate module name %q in module layer", module.name))
		}
		layer.byName[module.name] = module
		layer.modules = append(layer.modules, module)
	}
	return layer
}

// Modules returns the layer's modules in declaration order.
func (l *ModuleLayer) Modules() []*Module {
	if l == nil {
		return nil
	}
	result := make([]*Module, len(l.modules))
	copy(result, l.modules)
	return result
}

// Find returns the module with the given name.
func (l *ModuleLayer) Find(name string) (*Module, bool) {
	if l == nil {
		return nil, false
	}
	module, ok := l.byName[name]
	return module, ok
}

// Len returns the number of modules in the layer.
func (l *ModuleLayer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.modules)
}
