// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

func isValidIdentifier(s string) bool {
	return identifierRegex.MatchString(s)
}

func quote(s string) string {
	if isValidIdentifier(s) {
		return s
	}
	return fmt.Sprintf("%q", s)
}

// ScriptBuilder builds nftables scripts for atomic application with `nft -f`.
// Tables are emitted before chains, and chains before rules.
type ScriptBuilder struct {
	tableName  string
	family     string
	tables     []string
	chains     []string
	rules      map[string][]string
	chainOrder []string
}

// NewScriptBuilder creates a builder for one table.
func NewScriptBuilder(tableName, family string) *ScriptBuilder {
	return &ScriptBuilder{
		tableName: tableName,
		family:    family,
		rules:     make(map[string][]string),
	}
}

func (sb *ScriptBuilder) AddTable() {
	sb.tables = append(sb.tables, fmt.Sprintf("add table %s %s", sb.family, quote(sb.tableName)))
}

func (sb *ScriptBuilder) AddChain(name, typeName, hook string, priority int, policy string) {
	sb.chains = append(sb.chains, fmt.Sprintf("add chain %s %s %s { type %s hook %s priority %d; policy %s; }",
		sb.family, quote(sb.tableName), quote(name), typeName, hook, priority, policy))
	sb.chainOrder = append(sb.chainOrder, name)
}

func (sb *ScriptBuilder) AddRule(chain, rule string, comment ...string) {
	if len(comment) > 0 && comment[0] != "" && !strings.Contains(rule, "comment \"") {
		rule += fmt.Sprintf(" comment %q", comment[0])
	}
	sb.rules[chain] = append(sb.rules[chain], fmt.Sprintf("add rule %s %s %s %s",
		sb.family, quote(sb.tableName), quote(chain), rule))
}

// Build assembles the script.
func (sb *ScriptBuilder) Build() string {
	var lines []string
	lines = append(lines, sb.tables...)
	lines = append(lines, sb.chains...)
	for _, chain := range sb.chainOrder {
		lines = append(lines, sb.rules[chain]...)
	}
	return strings.Join(lines, "\n") + "\n"
}

// SuppressScript renders the table, both hook chains and the drop rule.
// `add` is idempotent for tables and chains, so the script can be applied to
// a host where the table already exists.
func SuppressScript(table string, r DropRule) string {
	if table == "" {
		table = DefaultTableName
	}
	sb := NewScriptBuilder(table, "inet")
	sb.AddTable()
	sb.AddChain(ChainInput, "filter", "input", ChainPriority, "accept")
	sb.AddChain(ChainForward, "filter", "forward", ChainPriority, "accept")
	for _, chain := range []string{ChainInput, ChainForward} {
		sb.AddRule(chain, r.Expression()+" counter drop", RuleComment)
	}
	return sb.Build()
}
