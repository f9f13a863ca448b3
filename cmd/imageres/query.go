// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/imageres/cmd/imageres/cli"
	"github.com/bureau-foundation/imageres/lib/bundle"
	"github.com/bureau-foundation/imageres/lib/config"
	"github.com/bureau-foundation/imageres/lib/resource"
)

// imageParams are the flags shared by commands that query bundles.
type imageParams struct {
	bundles    []string
	module     string
	strict     bool
	reached    []string
	allReached bool
}

func (p *imageParams) register(flagSet *pflag.FlagSet) {
	flagSet.StringArrayVar(&p.bundles, "bundle", nil, "resource bundle, one per layer, oldest first (repeatable)")
	flagSet.StringVarP(&p.module, "module", "m", "", "owning module (default the unnamed module)")
	flagSet.BoolVar(&p.strict, "strict", false, "report unregistered resources as missing registrations (also on when $IMAGERES_CONFIG sets enforcement: strict)")
	flagSet.StringArrayVar(&p.reached, "reached", nil, "type to treat as reachable (repeatable)")
	flagSet.BoolVar(&p.allReached, "all-reached", false, "treat every type as reachable")
}

// loadedImage is an image over bundle files plus the module instances
// the bundles use.
type loadedImage struct {
	image   *resource.Image
	modules *resource.ModuleLayer
}

// module resolves a module name for a query. An unknown name still
// yields a module so the query reports the miss.
func (l *loadedImage) module(name string) *resource.Module {
	if name == "" {
		return nil
	}
	if module, ok := l.modules.Find(name); ok {
		return module
	}
	return resource.NewModule(name)
}

// openImage opens every bundle. Instance-keyed bundles are decoded
// twice when there are several, so that all of them share one set of
// module instances.
func openImage(params imageParams, logger *slog.Logger) (*loadedImage, error) {
	if len(params.bundles) == 0 {
		return nil, cli.Validation("at least one --bundle is required")
	}

	stores := make([]*resource.Store, 0, len(params.bundles))
	found := make(map[string]*resource.Module)
	for _, path := range params.bundles {
		store, err := bundle.OpenFile(path, nil)
		if err != nil {
			return nil, err
		}
		for _, record := range store.Records() {
			name := record.Key.ModuleName()
			if name == "" || found[name] != nil {
				continue
			}
			if module := record.Key.Module(); module != nil {
				found[name] = module
			} else {
				found[name] = resource.NewModule(name)
			}
		}
		stores = append(stores, store)
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	modules := make([]*resource.Module, 0, len(names))
	for _, name := range names {
		modules = append(modules, found[name])
	}
	layer := resource.NewModuleLayer(modules...)

	if len(stores) > 1 && stores[0].Mode() == resource.KeyByInstance {
		for i, path := range params.bundles {
			store, err := bundle.OpenFile(path, layer)
			if err != nil {
				return nil, err
			}
			stores[i] = store
		}
	}
	for i, store := range stores[1:] {
		if store.Mode() != stores[0].Mode() {
			return nil, fmt.Errorf("%s keys by %s but %s keys by %s",
				params.bundles[i+1], store.Mode(), params.bundles[0], stores[0].Mode())
		}
	}

	var reachability resource.Reachability = resource.NewReachedSet(params.reached...)
	if params.allReached {
		reachability = resource.AllReached
	}
	image := resource.NewImage(resource.ImageOptions{
		Strict:       params.strict || configuredStrict(logger),
		Modules:      layer,
		Reachability: reachability,
		Reporter:     resource.LogReporter{Logger: logger},
		Logger:       logger,
	}, stores...)
	return &loadedImage{image: image, modules: layer}, nil
}

// configuredStrict reports whether the $IMAGERES_CONFIG file asks for
// strict enforcement. An unset variable means permissive.
func configuredStrict(logger *slog.Logger) bool {
	if os.Getenv("IMAGERES_CONFIG") == "" {
		return false
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("ignoring unreadable configuration", "error", err)
		return false
	}
	return cfg.Strict()
}

func lookupCommand(stdout io.Writer) *cli.Command {
	var (
		params  imageParams
		probe   bool
		content bool
	)
	return &cli.Command{
		Name:    "lookup",
		Summary: "Look up a resource the way the image does at run time",
		Description: `Look up NAME across the given bundles and print the entry: its kind,
flags and payload sizes. With --content the payload is copied to stdout
through the same stream the image hands to the program, including the
fallback scan over named modules when no --module is given.

Exits 1 when the resource is absent or its lookup fails.`,
		Usage: "imageres lookup --bundle FILE... [flags] NAME",
		Examples: []cli.Example{
			{
				Description: "Check a resource under strict enforcement",
				Command:     "imageres lookup --bundle out/resources.bundle --strict --module app config.properties",
			},
		},
		Flags: func() *pflag.FlagSet {
			params, probe, content = imageParams{}, false, false
			flagSet := pflag.NewFlagSet("lookup", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.BoolVar(&probe, "probe", false, "query as an existence probe (never reported)")
			flagSet.BoolVar(&content, "content", false, "copy the payload to stdout")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("exactly one resource name required\n\nUsage: imageres lookup --bundle FILE... [flags] NAME")
			}
			loaded, err := openImage(params, logger)
			if err != nil {
				return err
			}
			module := loaded.module(params.module)
			name := args[0]

			if content {
				stream, err := loaded.image.OpenStream(module, name)
				if err != nil {
					return lookupFailure(stdout, err)
				}
				defer stream.Close()
				_, err = io.Copy(stdout, stream)
				return err
			}

			entry, err := loaded.image.Lookup(module, name, probe)
			if err != nil {
				return lookupFailure(stdout, err)
			}
			if entry == nil || entry.Kind() == resource.KindNegative {
				fmt.Fprintf(stdout, "%s: not found\n", name)
				return &cli.ExitError{Code: 1}
			}
			printEntry(stdout, module, name, entry)
			return nil
		},
	}
}

// lookupFailure prints a query error and turns the expected kinds into
// exit status 1.
func lookupFailure(stdout io.Writer, err error) error {
	var resourceErr *resource.ResourceError
	if !errors.Is(err, resource.ErrMissingRegistration) &&
		!errors.Is(err, resource.ErrNotFound) &&
		!errors.As(err, &resourceErr) {
		return err
	}
	fmt.Fprintf(stdout, "%v\n", err)
	return &cli.ExitError{Code: 1}
}

func printEntry(w io.Writer, module *resource.Module, name string, entry *resource.Entry) {
	fmt.Fprintf(w, "resource:    %s\n", name)
	moduleName := module.Name()
	if moduleName == "" {
		moduleName = "(unnamed)"
	}
	fmt.Fprintf(w, "module:      %s\n", moduleName)
	fmt.Fprintf(w, "kind:        %s\n", entry.Kind())
	fmt.Fprintf(w, "directory:   %t\n", entry.IsDirectory())
	fmt.Fprintf(w, "archive:     %t\n", entry.FromArchive())
	fmt.Fprintf(w, "payloads:    %d\n", entry.BlobCount())
	for i, blob := range entry.Blobs() {
		fmt.Fprintf(w, "  [%d] %d bytes\n", i, len(blob))
	}
}

func urlsCommand(stdout io.Writer) *cli.Command {
	var (
		params imageParams
		open   bool
	)
	return &cli.Command{
		Name:    "urls",
		Summary: "List the URLs a resource name resolves to",
		Description: `Print one resource: URL per payload of NAME. Without --module the
named modules of the image are searched first, then the unnamed module.
With --open each URL is opened and its length and modification time
are printed alongside.`,
		Usage: "imageres urls --bundle FILE... [flags] NAME",
		Flags: func() *pflag.FlagSet {
			params, open = imageParams{}, false
			flagSet := pflag.NewFlagSet("urls", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.BoolVar(&open, "open", false, "open each URL and print its length and modification time")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("exactly one resource name required\n\nUsage: imageres urls --bundle FILE... [flags] NAME")
			}
			loaded, err := openImage(params, logger)
			if err != nil {
				return err
			}
			urls, err := loaded.image.URLs(loaded.module(params.module), args[0])
			if err != nil {
				return lookupFailure(stdout, err)
			}
			if len(urls) == 0 {
				return &cli.ExitError{Code: 1}
			}
			for _, u := range urls {
				if !open {
					fmt.Fprintln(stdout, u)
					continue
				}
				connection, err := loaded.image.OpenURL(u)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%s\t%d\t%s\n", u, connection.ContentLength(), connection.LastModified().UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
