// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// MaxEntrySize bounds the uncompressed size of one archive entry.
const MaxEntrySize = 1 << 30

// scanArchive registers the entries of a zip or jar. Directories are
// registered from explicit directory entries and from the parents of
// every file, so archives written without directory entries still
// produce listings.
func (c *Collector) scanArchive(ctx context.Context, source Source) error {
	reader, err := zip.OpenReader(source.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	files := make([]*zip.File, 0, len(reader.File))
	children := make(map[string]map[string]struct{})
	addChild := func(directory, child string) {
		set := children[directory]
		if set == nil {
			set = make(map[string]struct{})
			children[directory] = set
		}
		if child != "" {
			set[child] = struct{}{}
		}
	}

	for _, file := range reader.File {
		name := strings.TrimPrefix(file.Name, "/")
		isDirectory := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if name == "" {
			continue
		}
		if isDirectory {
			addChild(name, "")
		} else {
			files = append(files, file)
		}
		for current := name; current != "."; {
			parent := path.Dir(current)
			if parent == "." {
				addChild("", path.Base(current))
				break
			}
			addChild(parent, path.Base(current))
			current = parent
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := strings.TrimPrefix(file.Name, "/")
		if err := c.addFile(source.Module, name, true, func() ([]byte, error) {
			return readEntry(file)
		}); err != nil {
			return err
		}
	}

	directories := make([]string, 0, len(children))
	for directory := range children {
		directories = append(directories, directory)
	}
	sort.Strings(directories)
	for _, directory := range directories {
		if err := ctx.Err(); err != nil {
			return err
		}
		names := make([]string, 0, len(children[directory]))
		for child := range children[directory] {
			names = append(names, child)
		}
		c.addDirectory(source.Module, directory, names, true)
	}
	return nil
}

func readEntry(file *zip.File) ([]byte, error) {
	if file.UncompressedSize64 > MaxEntrySize {
		return nil, fmt.Errorf("entry %s is %d bytes, over the %d byte limit", file.Name, file.UncompressedSize64, MaxEntrySize)
	}
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	data, err := io.ReadAll(io.LimitReader(reader, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxEntrySize {
		return nil, fmt.Errorf("entry %s exceeds the %d byte limit", file.Name, MaxEntrySize)
	}
	return data, nil
}
