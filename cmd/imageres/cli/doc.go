// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the imageres
// binary: a tree of [Command] values with pflag flag sets, help
// output, typo suggestions for commands and flags, and the exit-code
// convention used by main.
package cli
