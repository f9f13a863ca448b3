// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the structured logger for CLI commands.
// When stderr is a terminal it uses slog.TextHandler for human-readable
// output; when stderr is piped or redirected (CI, build scripts) it
// uses slog.JSONHandler. IMAGERES_DEBUG enables debug records.
func NewCommandLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("IMAGERES_DEBUG") != "" {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
