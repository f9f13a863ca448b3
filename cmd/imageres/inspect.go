// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/imageres/cmd/imageres/cli"
	"github.com/bureau-foundation/imageres/lib/bundle"
	"github.com/bureau-foundation/imageres/lib/codec"
	"github.com/bureau-foundation/imageres/lib/compression"
	"github.com/bureau-foundation/imageres/lib/layerfile"
	"github.com/bureau-foundation/imageres/lib/resource"
)

func inspectCommand(stdout io.Writer) *cli.Command {
	var diag bool
	return &cli.Command{
		Name:    "inspect",
		Summary: "Summarize a resource bundle or layer snapshot",
		Description: `Verify the checksum of a resources.bundle or layer.snapshot file and
print a summary. With --diag the decoded CBOR body is printed in
diagnostic notation instead.`,
		Usage: "imageres inspect [--diag] FILE",
		Flags: func() *pflag.FlagSet {
			diag = false
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.BoolVar(&diag, "diag", false, "print the CBOR body in diagnostic notation")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("exactly one file required\n\nUsage: imageres inspect [--diag] FILE")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var body []byte
			switch {
			case bytes.HasPrefix(data, []byte(bundle.Magic)):
				if !diag {
					info, err := bundle.Inspect(data)
					if err != nil {
						return fmt.Errorf("%s: %w", args[0], err)
					}
					printBundleInfo(stdout, info)
					return nil
				}
				body, err = bundle.Body(data)
			case bytes.HasPrefix(data, []byte(layerfile.Magic)):
				if !diag {
					snapshot, err := layerfile.Unmarshal(data)
					if err != nil {
						return fmt.Errorf("%s: %w", args[0], err)
					}
					printSnapshot(stdout, snapshot)
					return nil
				}
				body, err = layerfile.Body(data)
			default:
				return fmt.Errorf("%s is neither a resource bundle nor a layer snapshot", args[0])
			}
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			notation, err := codec.Diagnose(body)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, notation)
			return nil
		},
	}
}

func printBundleInfo(w io.Writer, info bundle.Info) {
	fmt.Fprintf(w, "resource bundle\n")
	fmt.Fprintf(w, "  key mode:   %s\n", info.KeyMode)
	if info.Timestamp.IsZero() {
		fmt.Fprintf(w, "  timestamp:  (none)\n")
	} else {
		fmt.Fprintf(w, "  timestamp:  %s\n", info.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	fmt.Fprintf(w, "  entries:    %d data, %d exception, %d negative\n",
		info.Entries[resource.KindData], info.Entries[resource.KindException], info.Entries[resource.KindNegative])
	fmt.Fprintf(w, "  payloads:   %d none, %d lz4, %d zstd\n",
		info.Payloads[compression.None], info.Payloads[compression.LZ4], info.Payloads[compression.Zstd])
	fmt.Fprintf(w, "  bytes:      %d payload, %d stored\n", info.PayloadBytes, info.StoredBytes)
	fmt.Fprintf(w, "  patterns:   %d include, %d glob\n", info.Patterns, info.Globs)
}

func printSnapshot(w io.Writer, snapshot resource.LayerSnapshot) {
	positive := 0
	for _, flag := range snapshot.Positive {
		if flag {
			positive++
		}
	}
	modules := append([]string(nil), snapshot.Modules...)
	sort.Strings(modules)

	fmt.Fprintf(w, "layer snapshot\n")
	fmt.Fprintf(w, "  keys:       %d (%d positive, %d negative)\n", len(snapshot.Keys), positive, len(snapshot.Keys)-positive)
	fmt.Fprintf(w, "  patterns:   %d\n", len(snapshot.Patterns))
	fmt.Fprintf(w, "  modules:    %d\n", len(modules))
	for _, module := range modules {
		fmt.Fprintf(w, "    %s\n", module)
	}
}
