// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// scanDirectory walks a directory source in lexical order.
func (c *Collector) scanDirectory(ctx context.Context, source Source) error {
	info, err := os.Stat(source.Path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is neither a directory nor a .zip or .jar archive", source.Path)
	}

	root := os.DirFS(source.Path)
	return fs.WalkDir(root, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		resourceName := name
		if name == "." {
			resourceName = ""
		}
		if walkErr != nil {
			if entry != nil && entry.IsDir() && resourceName != "" {
				c.failures.Add(1)
				if err := c.registry.RegisterIOException(source.Module, resourceName, walkErr, c.failOnIOError); err != nil {
					return err
				}
				return fs.SkipDir
			}
			return walkErr
		}

		if entry.IsDir() {
			children, err := fs.ReadDir(root, name)
			if err != nil {
				// WalkDir reports the same failure on its next call.
				return nil
			}
			names := make([]string, 0, len(children))
			for _, child := range children {
				names = append(names, child.Name())
			}
			c.addDirectory(source.Module, resourceName, names, false)
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		return c.addFile(source.Module, resourceName, false, func() ([]byte, error) {
			return os.ReadFile(filepath.Join(source.Path, filepath.FromSlash(name)))
		})
	})
}
