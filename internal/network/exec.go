// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package network rewrites routing-daemon configuration so the monitored
// link is deprioritized, then restarts the daemon.
package network

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor runs external commands.
type CommandExecutor interface {
	RunCommand(ctx context.Context, name string, arg ...string) (string, error)
}

// RealCommandExecutor runs commands on the host.
type RealCommandExecutor struct{}

// RunCommand runs name and returns its trimmed stdout. On failure the error
// carries stderr.
func (RealCommandExecutor) RunCommand(ctx context.Context, name string, arg ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, arg...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(arg, " "), err, msg)
		}
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(arg, " "), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// DefaultCommandExecutor is the default RealCommandExecutor instance.
var DefaultCommandExecutor CommandExecutor = RealCommandExecutor{}
