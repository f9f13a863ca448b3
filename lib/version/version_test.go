// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoUsesLinkerValues(t *testing.T) {
	savedCommit, savedDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = savedCommit, savedDirty })

	GitCommit = "abc1234"
	GitDirty = "true"

	info := Info()
	if !strings.HasPrefix(info, Version+" (abc1234-dirty, ") {
		t.Errorf("Info() = %q, want prefix %q", info, Version+" (abc1234-dirty, ")
	}
}

func TestFullMentionsGoVersion(t *testing.T) {
	if full := Full(); !strings.Contains(full, "Go: go") {
		t.Errorf("Full() = %q, want Go version line", full)
	}
}
