// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"log/slog"
)

// Reporter receives missing-registration diagnostics for direct
// (non-probing) accesses under strict enforcement.
type Reporter interface {
	ReportMissingRegistration(err *MissingRegistrationError)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err *MissingRegistrationError)

func (f ReporterFunc) ReportMissingRegistration(err *MissingRegistrationError) { f(err) }

// LogReporter writes each diagnostic as a structured warning. A nil
// Logger uses slog.Default().
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) ReportMissingRegistration(err *MissingRegistrationError) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("missing resource registration",
		"module", err.Module,
		"resource", err.Name,
	)
}
