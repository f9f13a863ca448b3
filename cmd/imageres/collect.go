// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/imageres/cmd/imageres/cli"
	"github.com/bureau-foundation/imageres/lib/bundle"
	"github.com/bureau-foundation/imageres/lib/collect"
	"github.com/bureau-foundation/imageres/lib/config"
	"github.com/bureau-foundation/imageres/lib/layerfile"
	"github.com/bureau-foundation/imageres/lib/resource"
	"github.com/bureau-foundation/imageres/lib/resourceconfig"
)

// Output file names written by collect.
const (
	BundleFile   = "resources.bundle"
	SnapshotFile = "layer.snapshot"
)

type collectParams struct {
	configPath      string
	layered         bool
	failOnIOError   bool
	compression     string
	workers         int
	resourceConfigs []string
	previousLayers  []string
	outputDir       string
}

func collectCommand(stdout io.Writer) *cli.Command {
	var params collectParams
	var flagSet *pflag.FlagSet
	return &cli.Command{
		Name:    "collect",
		Summary: "Scan resource sources and write a resource bundle",
		Description: `Scan directories and .zip/.jar archives, register every resource the
resource configuration admits, and write resources.bundle to the output
directory. Layered builds also write layer.snapshot, which later layers
pass back with --previous-layer.

Settings come from the file named by --config (or IMAGERES_CONFIG);
flags given on the command line override it. Sources listed on the
command line follow those from the file.`,
		Usage: "imageres collect [flags] SOURCE[=MODULE]...",
		Examples: []cli.Example{
			{
				Description: "Collect an application jar into the app module",
				Command:     "imageres collect --resource-config resources.jsonc --out out lib/app.jar=app",
			},
			{
				Description: "Build a layer on top of a base layer",
				Command:     "imageres collect --layered --previous-layer base/layer.snapshot --out top lib/ext.jar=ext",
			},
		},
		Flags: func() *pflag.FlagSet {
			params = collectParams{}
			flagSet = pflag.NewFlagSet("collect", pflag.ContinueOnError)
			flagSet.StringVar(&params.configPath, "config", "", "tool configuration file (default $IMAGERES_CONFIG)")
			flagSet.BoolVar(&params.layered, "layered", false, "key resources by module name and write a layer snapshot")
			flagSet.BoolVar(&params.failOnIOError, "fail-on-io-error", false, "abort at the first unreadable resource")
			flagSet.StringVar(&params.compression, "compression", "", "payload compression: auto, none, lz4 or zstd")
			flagSet.IntVar(&params.workers, "workers", 0, "sources scanned concurrently (default one per CPU)")
			flagSet.StringArrayVar(&params.resourceConfigs, "resource-config", nil, "JSONC resource configuration (repeatable)")
			flagSet.StringArrayVar(&params.previousLayers, "previous-layer", nil, "layer snapshot of an earlier layer (repeatable)")
			flagSet.StringVarP(&params.outputDir, "out", "o", "", "output directory")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := loadCollectConfig(params, flagSet, args)
			if err != nil {
				return err
			}
			return runCollect(ctx, cfg, stdout, logger)
		},
	}
}

// loadCollectConfig merges the configuration file with the flags that
// were set explicitly.
func loadCollectConfig(params collectParams, flagSet *pflag.FlagSet, args []string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case params.configPath != "":
		cfg, err = config.LoadFile(params.configPath)
	case os.Getenv("IMAGERES_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if flagSet.Changed("layered") {
		cfg.Layered = params.layered
	}
	if flagSet.Changed("fail-on-io-error") {
		cfg.FailOnIOError = params.failOnIOError
	}
	if flagSet.Changed("compression") {
		cfg.Compression = params.compression
	}
	if flagSet.Changed("workers") {
		cfg.Workers = params.workers
	}
	if flagSet.Changed("out") {
		cfg.Paths.OutputDir = params.outputDir
	}
	cfg.Paths.ResourceConfigs = append(cfg.Paths.ResourceConfigs, params.resourceConfigs...)
	cfg.Paths.PreviousLayers = append(cfg.Paths.PreviousLayers, params.previousLayers...)
	for _, arg := range args {
		source, err := config.ParseSource(arg)
		if err != nil {
			return nil, cli.Validation("%v", err)
		}
		cfg.Sources = append(cfg.Sources, source)
	}

	if len(cfg.Sources) == 0 {
		return nil, cli.Validation("no sources given\n\nUsage: imageres collect [flags] SOURCE[=MODULE]...")
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%v", err)
	}
	return cfg, nil
}

func runCollect(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	var resourceConfig *resourceconfig.Config
	if len(cfg.Paths.ResourceConfigs) > 0 {
		var err error
		resourceConfig, err = resourceconfig.ReadFiles(cfg.Paths.ResourceConfigs...)
		if err != nil {
			return err
		}
	}

	var previous *resource.PreviousLayer
	if len(cfg.Paths.PreviousLayers) > 0 {
		var err error
		previous, err = layerfile.LoadPrevious(cfg.Paths.PreviousLayers...)
		if err != nil {
			return fmt.Errorf("loading previous layers: %w", err)
		}
		logger.Info("loaded previous layers", "layers", len(cfg.Paths.PreviousLayers), "keys", previous.Len())
	}

	registry := resource.NewRegistry(resource.Options{
		Layered:  cfg.Layered,
		Previous: previous,
		Logger:   logger,
	})
	if resourceConfig != nil {
		if err := resourceConfig.Apply(registry); err != nil {
			return err
		}
	}

	modules := make(map[string]*resource.Module)
	sources := make([]collect.Source, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		var module *resource.Module
		if source.Module != "" {
			if previous.HasModule(source.Module) {
				return fmt.Errorf("module %q is already defined by a previous layer", source.Module)
			}
			module = modules[source.Module]
			if module == nil {
				module = resource.NewModule(source.Module)
				modules[source.Module] = module
			}
		}
		sources = append(sources, collect.Source{Path: source.Path, Module: module})
	}

	collector := collect.New(collect.Options{
		Registry:      registry,
		Config:        resourceConfig,
		FailOnIOError: cfg.FailOnIOError,
		Workers:       cfg.Workers,
		Logger:        logger,
	})
	stats, err := collector.Run(ctx, sources)
	if err != nil {
		return err
	}
	registry.Freeze()

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	bundlePath := filepath.Join(cfg.Paths.OutputDir, BundleFile)
	if err := bundle.WriteFile(bundlePath, registry.Store(), bundle.Options{Compression: cfg.CompressionPolicy()}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d entries, %d registered, %d skipped, %d failures, %d negatives)\n",
		bundlePath, registry.Store().Len(), stats.Registered, stats.Skipped, stats.Failures, stats.Negatives)

	if cfg.Layered {
		snapshotPath := filepath.Join(cfg.Paths.OutputDir, SnapshotFile)
		snapshot := registry.Snapshot()
		if err := layerfile.WriteFile(snapshotPath, snapshot); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s (%d keys, %d patterns)\n", snapshotPath, len(snapshot.Keys), len(snapshot.Patterns))
	}
	return nil
}
