// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/imageres/cmd/imageres/cli"
	"github.com/bureau-foundation/imageres/lib/resourcefs"
)

func mountCommand(stdout io.Writer) *cli.Command {
	var (
		params     imageParams
		allowOther bool
	)
	return &cli.Command{
		Name:    "mount",
		Summary: "Mount the resources of bundles as a read-only filesystem",
		Description: `Mount the resources the image would serve at MOUNTPOINT until
interrupted. Unnamed-module resources appear under unnamed/, named
modules under modules/<name>/. --reached and --all-reached decide which
conditional resources are visible.`,
		Usage: "imageres mount --bundle FILE... [flags] MOUNTPOINT",
		Flags: func() *pflag.FlagSet {
			params, allowOther = imageParams{}, false
			flagSet := pflag.NewFlagSet("mount", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.BoolVar(&allowOther, "allow-other", false, "let other users access the mount")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("exactly one mountpoint required\n\nUsage: imageres mount --bundle FILE... [flags] MOUNTPOINT")
			}
			loaded, err := openImage(params, logger)
			if err != nil {
				return err
			}
			server, err := resourcefs.Mount(resourcefs.Options{
				Mountpoint: args[0],
				Image:      loaded.image,
				AllowOther: allowOther,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "mounted at %s; interrupt to unmount\n", args[0])

			done := make(chan struct{})
			go func() {
				server.Wait()
				close(done)
			}()
			select {
			case <-ctx.Done():
				return server.Unmount()
			case <-done:
				return nil
			}
		},
	}
}
