// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resourcefs

import (
	"sort"
	"strings"

	"github.com/bureau-foundation/imageres/lib/resource"
)

// Top-level directory names.
const (
	UnnamedDir = "unnamed"
	ModulesDir = "modules"
)

// node is one path in the mounted tree. A node with children is a
// directory even if a file was registered under the same name.
type node struct {
	children  map[string]*node
	entry     *resource.Entry
	directory bool
}

func (n *node) isDirectory() bool {
	return n.directory || len(n.children) > 0
}

func (n *node) child(name string) *node {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	existing := n.children[name]
	if existing == nil {
		existing = &node{}
		n.children[name] = existing
	}
	return existing
}

// names returns the child names in lexical order.
func (n *node) names() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildTree lays out listings under the top-level directories. The
// unnamed and modules directories always exist.
func buildTree(listings []resource.Listing) *node {
	root := &node{directory: true}
	root.child(UnnamedDir).directory = true
	root.child(ModulesDir).directory = true

	for _, listing := range listings {
		base := root.child(UnnamedDir)
		if moduleName := listing.Key.ModuleName(); moduleName != "" {
			base = root.child(ModulesDir).child(moduleName)
			base.directory = true
		}
		current := base
		for segment := range strings.SplitSeq(listing.Key.Name(), "/") {
			if segment == "" {
				continue
			}
			current = current.child(segment)
		}
		if current == base {
			continue
		}
		if listing.Entry.IsDirectory() {
			current.directory = true
			continue
		}
		current.entry = listing.Entry
	}
	return root
}
