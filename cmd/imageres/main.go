// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/imageres/cmd/imageres/cli"
	"github.com/bureau-foundation/imageres/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an error with
		// the desired exit code. Don't print a redundant line for
		// those, except usage errors.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			if _, usage := err.(*cli.ValidationError); usage {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root(os.Stdout, os.Stderr).Execute(ctx, os.Args[1:], cli.NewCommandLogger())
}

// root builds the command tree. Command output goes to stdout; help
// goes to stderr.
func root(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "imageres",
		Summary:     "Build and query image resource tables",
		HelpOutput:  stderr,
		Subcommands: []*cli.Command{
			collectCommand(stdout),
			lookupCommand(stdout),
			urlsCommand(stdout),
			inspectCommand(stdout),
			mountCommand(stdout),
			versionCommand(stdout),
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) == 1 && (args[0] == "--version" || args[0] == "-v") {
				fmt.Fprintf(stdout, "imageres %s\n", version.Info())
				return nil
			}
			return cli.Validation("subcommand required\n\nRun 'imageres --help' for usage.")
		},
	}
}

func versionCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Show version information",
		Run: func(context.Context, []string, *slog.Logger) error {
			fmt.Fprintf(stdout, "imageres %s\n", version.Full())
			return nil
		},
	}
}
