// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/logging"
)

// Backend names accepted by NewBlocker.
const (
	BackendNetlink = "netlink"
	BackendScript  = "script"
)

// Blocker installs a drop rule.
type Blocker interface {
	Block(ctx context.Context, rule DropRule) error
}

// ScriptRunner feeds an nft script to the kernel.
type ScriptRunner interface {
	// Apply runs the script atomically.
	Apply(ctx context.Context, script string) error
	// Check validates the script without applying it.
	Check(ctx context.Context, script string) error
}

// NftRunner runs the nft binary.
type NftRunner struct {
	Path string
}

func (n NftRunner) run(ctx context.Context, script string, args ...string) error {
	path := n.Path
	if path == "" {
		path = "nft"
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Apply runs `nft -f -`.
func (n NftRunner) Apply(ctx context.Context, script string) error {
	if err := n.run(ctx, script, "-f", "-"); err != nil {
		return fmt.Errorf("atomic update failed: %w", err)
	}
	return nil
}

// Check runs `nft -c -f -`.
func (n NftRunner) Check(ctx context.Context, script string) error {
	if err := n.run(ctx, script, "-c", "-f", "-"); err != nil {
		return fmt.Errorf("dry run failed: %w", err)
	}
	return nil
}

// ScriptBlocker installs the rule with a single nft transaction.
type ScriptBlocker struct {
	runner ScriptRunner
	table  string
	logger *logging.Logger
}

// NewScriptBlocker creates a script backend. A nil runner uses nft from PATH.
func NewScriptBlocker(runner ScriptRunner, table string, logger *logging.Logger) *ScriptBlocker {
	if runner == nil {
		runner = NftRunner{}
	}
	if table == "" {
		table = DefaultTableName
	}
	if logger == nil {
		logger = logging.WithComponent("firewall")
	}
	return &ScriptBlocker{runner: runner, table: table, logger: logger}
}

// Block validates and then applies the suppress script.
func (b *ScriptBlocker) Block(ctx context.Context, rule DropRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	script := SuppressScript(b.table, rule)
	if err := b.runner.Check(ctx, script); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindMitigation, "nft rejected suppress ruleset"), "backend", BackendScript)
	}
	if err := b.runner.Apply(ctx, script); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindMitigation, "failed to apply suppress ruleset"), "backend", BackendScript)
	}
	b.logger.Info("Installed drop rule", "table", b.table, "rule", rule.String())
	return nil
}

// NewBlocker constructs the named backend.
func NewBlocker(backend, table string, logger *logging.Logger) (Blocker, error) {
	switch backend {
	case "", BackendNetlink:
		return newNetlinkBlocker(table, logger)
	case BackendScript:
		return NewScriptBlocker(nil, table, logger), nil
	default:
		return nil, errors.Errorf(errors.KindValidation, "unknown firewall backend %q", backend)
	}
}
