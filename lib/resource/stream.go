// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// OpenStream opens the first payload of (module, name). When module is
// unnamed and the resource is absent or unregistered there, each boot
// module is tried in order and the first positive result wins; a
// negative marker in one module does not stop the scan. A missing
// registration is reported only when no module resolves the name.
// Absence is reported as ErrNotFound.
func (i *Image) OpenStream(module *Module, name string) (io.ReadCloser, error) {
	entry, missing, err := i.lookupProbe(module, name)
	if err != nil {
		return nil, err
	}
	resolvable := missing == nil
	if entry == nil && !module.IsNamed() {
		for _, candidate := range i.modules.Modules() {
			found, miss, err := i.lookupProbe(candidate, name)
			if err != nil {
				return nil, err
			}
			if miss == nil {
				resolvable = true
			}
			if found != nil {
				entry = found
				break
			}
		}
	}
	if entry == nil {
		if !resolvable {
			i.reporter.ReportMissingRegistration(missing)
			return nil, missing
		}
		return nil, fmt.Errorf("opening %q: %w", name, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(entry.blobs[0])), nil
}

// URLs returns one URL per payload of name. When module is unnamed,
// every boot module contributes its payloads first, followed by the
// unnamed module's. A missing-registration diagnostic is reported and
// returned only if no module produced a resolvable answer.
func (i *Image) URLs(module *Module, name string) ([]URL, error) {
	var (
		urls       []URL
		resolvable bool
		missing    *MissingRegistrationError
	)
	collect := func(candidate *Module) error {
		entry, miss, err := i.lookupProbe(candidate, name)
		if err != nil {
			return err
		}
		if miss != nil {
			if missing == nil {
				missing = miss
			}
			return nil
		}
		resolvable = true
		if entry == nil {
			return nil
		}
		canonical := Canonicalize(name)
		for index := range entry.blobs {
			urls = append(urls, URL{Module: candidate.Name(), Name: canonical, Index: index})
		}
		return nil
	}

	if !module.IsNamed() {
		for _, candidate := range i.modules.Modules() {
			if err := collect(candidate); err != nil {
				return nil, err
			}
		}
	}
	if err := collect(module); err != nil {
		return nil, err
	}
	if !resolvable && missing != nil {
		i.reporter.ReportMissingRegistration(missing)
		return nil, missing
	}
	return urls, nil
}

// URL addresses one payload of a resource. Its string form is
// "resource:/<name>?module=<module>#<index>", with the query omitted
// for the unnamed module.
type URL struct {
	Module string
	Name   string
	Index  int
}

func (u URL) String() string {
	value := url.URL{
		Scheme:   "resource",
		Path:     "/" + u.Name,
		OmitHost: true,
		Fragment: strconv.Itoa(u.Index),
	}
	if u.Module != "" {
		value.RawQuery = url.Values{"module": {u.Module}}.Encode()
	}
	return value.String()
}

// ParseURL parses the form produced by URL.String.
func ParseURL(raw string) (URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("parsing resource URL: %w", err)
	}
	if parsed.Scheme != "resource" {
		return URL{}, fmt.Errorf("resource URL %q has scheme %q", raw, parsed.Scheme)
	}
	index := 0
	if parsed.Fragment != "" {
		index, err = strconv.Atoi(parsed.Fragment)
		if err != nil || index < 0 {
			return URL{}, fmt.Errorf("resource URL %q has invalid index %q", raw, parsed.Fragment)
		}
	}
	return URL{
		Module: parsed.Query().Get("module"),
		Name:   strings.TrimPrefix(parsed.Path, "/"),
		Index:  index,
	}, nil
}

// Connection is an opened resource URL.
type Connection struct {
	url      URL
	data     []byte
	modified time.Time
}

// OpenURL resolves u as a direct access. A named module must be in
// the boot layer.
func (i *Image) OpenURL(u URL) (*Connection, error) {
	var module *Module
	if u.Module != "" {
		found, ok := i.modules.Find(u.Module)
		if !ok {
			return nil, fmt.Errorf("opening %s: module %q is not in the boot layer: %w", u, u.Module, ErrNotFound)
		}
		module = found
	}
	entry, err := i.Lookup(module, u.Name, false)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("opening %s: %w", u, ErrNotFound)
	}
	data, ok := entry.Blob(u.Index)
	if !ok {
		return nil, fmt.Errorf("opening %s: resource has %d payloads: %w", u, entry.BlobCount(), ErrNotFound)
	}
	return &Connection{url: u, data: data, modified: i.Timestamp()}, nil
}

// URL returns the URL the connection was opened from.
func (c *Connection) URL() URL { return c.url }

// ContentLength returns the payload size in bytes.
func (c *Connection) ContentLength() int64 { return int64(len(c.data)) }

// LastModified returns the image build timestamp.
func (c *Connection) LastModified() time.Time { return c.modified }

// Reader returns a new reader over the payload.
func (c *Connection) Reader() io.Reader { return bytes.NewReader(c.data) }
