// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package testutil holds gates for tests that touch the real host.
package testutil

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

// HostTestEnv enables tests that read real kernel state.
const HostTestEnv = "LINKGUARD_HOST_TEST"

// RequireHost skips the test unless LINKGUARD_HOST_TEST is set.
// Such tests read live interface counters and need a Linux host, not a
// sandbox with a stripped /proc.
func RequireHost(t *testing.T) {
	t.Helper()
	if os.Getenv(HostTestEnv) == "" {
		t.Skip("Skipping test: requires " + HostTestEnv + " environment")
	}
}

// RequirePrivileged skips the test unless it runs as root on an enabled
// host. Used by tests that program nftables.
func RequirePrivileged(t *testing.T) {
	t.Helper()
	RequireHost(t)
	if unix.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}
