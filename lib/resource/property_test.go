// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bureau-foundation/imageres/lib/clock"
)

func propertyRegistry() *Registry {
	return NewRegistry(Options{Clock: clock.Fake(epoch), Logger: discardLogger()})
}

func lookupFrozen(registry *Registry, module *Module, name string) (*Entry, error) {
	registry.Freeze()
	image := NewImage(ImageOptions{Reporter: ReporterFunc(func(*MissingRegistrationError) {})}, registry.Store())
	return image.Lookup(module, name, false)
}

// Every registered payload comes back, in registration order.
func TestPropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("lookup returns registered blobs in order", prop.ForAll(
		func(directory, name string, payloads [][]byte) bool {
			if len(payloads) == 0 {
				return true
			}
			path := directory + "/" + name
			registry := propertyRegistry()
			for _, payload := range payloads {
				registry.RegisterResource(nil, path, payload, false)
			}
			entry, err := lookupFrozen(registry, nil, path)
			if err != nil || entry == nil || entry.BlobCount() != len(payloads) {
				return false
			}
			for i, payload := range payloads {
				blob, _ := entry.Blob(i)
				if !bytes.Equal(blob, payload) {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.SliceOf(gen.SliceOf(gen.UInt8())),
	))

	properties.TestingRun(t)
}

// A negative marker never survives a later positive registration, and
// never displaces an earlier one.
func TestPropertyNegativeOverlay(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("negative then positive yields the data", prop.ForAll(
		func(name string, payload []byte, moduleScoped bool) bool {
			var module *Module
			if moduleScoped {
				module = NewModule("app")
			}
			registry := propertyRegistry()
			registry.RegisterNegativeQuery(module, name)
			registry.RegisterResource(module, name, payload, false)
			entry, err := lookupFrozen(registry, module, name)
			return err == nil && entry != nil && entry.Kind() == KindData &&
				entry.BlobCount() == 1 && bytes.Equal(entry.Blobs()[0], payload)
		},
		gen.Identifier(),
		gen.SliceOf(gen.UInt8()),
		gen.Bool(),
	))

	properties.Property("positive then negative leaves the data", prop.ForAll(
		func(name string, payload []byte, repeats int) bool {
			registry := propertyRegistry()
			registry.RegisterResource(nil, name, payload, false)
			for range repeats {
				registry.RegisterNegativeQuery(nil, name)
			}
			entry, err := lookupFrozen(registry, nil, name)
			return err == nil && entry != nil && entry.Kind() == KindData &&
				entry.BlobCount() == 1 && bytes.Equal(entry.Blobs()[0], payload)
		},
		gen.Identifier(),
		gen.SliceOf(gen.UInt8()),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
