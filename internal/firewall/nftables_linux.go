// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package firewall

import (
	"context"
	"net/netip"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/logging"
)

// NFTablesConn is the subset of *nftables.Conn the blocker uses.
type NFTablesConn interface {
	AddTable(t *nftables.Table) *nftables.Table
	AddChain(c *nftables.Chain) *nftables.Chain
	AddRule(r *nftables.Rule) *nftables.Rule
	Flush() error
}

// NetlinkBlocker installs the rule over the nftables netlink API.
type NetlinkBlocker struct {
	conn      NFTablesConn
	table     string
	linkCheck func(name string) error
	logger    *logging.Logger
}

func newNetlinkBlocker(table string, logger *logging.Logger) (Blocker, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "failed to open nftables connection")
	}
	return NewNetlinkBlockerWithConn(conn, table, logger), nil
}

// NewNetlinkBlockerWithConn creates a blocker with an injected connection.
func NewNetlinkBlockerWithConn(conn NFTablesConn, table string, logger *logging.Logger) *NetlinkBlocker {
	if table == "" {
		table = DefaultTableName
	}
	if logger == nil {
		logger = logging.WithComponent("firewall")
	}
	return &NetlinkBlocker{
		conn:  conn,
		table: table,
		linkCheck: func(name string) error {
			_, err := netlink.LinkByName(name)
			return err
		},
		logger: logger,
	}
}

// Block queues the table, chains and rules and commits them in one batch.
func (b *NetlinkBlocker) Block(_ context.Context, rule DropRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if b.linkCheck != nil {
		if err := b.linkCheck(rule.Interface); err != nil {
			return errors.Attr(errors.Wrap(err, errors.KindMitigation, "suppress interface not found"), "interface", rule.Interface)
		}
	}

	table := b.conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyINet,
		Name:   b.table,
	})

	policy := nftables.ChainPolicyAccept
	hooks := []struct {
		name string
		hook *nftables.ChainHook
	}{
		{ChainInput, nftables.ChainHookInput},
		{ChainForward, nftables.ChainHookForward},
	}
	exprs := ruleExprs(rule)
	for _, h := range hooks {
		chain := b.conn.AddChain(&nftables.Chain{
			Name:     h.name,
			Table:    table,
			Type:     nftables.ChainTypeFilter,
			Hooknum:  h.hook,
			Priority: nftables.ChainPriorityRef(ChainPriority),
			Policy:   &policy,
		})
		b.conn.AddRule(&nftables.Rule{
			Table:    table,
			Chain:    chain,
			Exprs:    exprs,
			UserData: []byte(RuleComment),
		})
	}

	if err := b.conn.Flush(); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindMitigation, "failed to commit suppress rule"), "backend", BackendNetlink)
	}
	b.logger.Info("Installed drop rule", "table", b.table, "rule", rule.String())
	return nil
}

// ruleExprs compiles rule into nftables expressions ending in counter + drop.
func ruleExprs(rule DropRule) []expr.Any {
	rule = rule.Masked()
	exprs := []expr.Any{
		&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(rule.Interface)},
	}

	if rule.Source.IsValid() {
		exprs = append(exprs, sourceExprs(rule.Source)...)
	}

	if rule.Protocol != "" {
		proto := byte(unix.IPPROTO_TCP)
		if rule.Protocol == "udp" {
			proto = unix.IPPROTO_UDP
		}
		exprs = append(exprs,
			&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{proto}},
		)
		if rule.Port != 0 {
			exprs = append(exprs,
				&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseTransportHeader, Offset: 2, Len: 2},
				&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: binaryutil.BigEndian.PutUint16(rule.Port)},
			)
		}
	}

	return append(exprs,
		&expr.Counter{},
		&expr.Verdict{Kind: expr.VerdictDrop},
	)
}

func sourceExprs(p netip.Prefix) []expr.Any {
	addr := p.Addr()
	nfproto := byte(ProtoIPv4)
	offset, length := uint32(12), uint32(4)
	if addr.Is6() {
		nfproto = ProtoIPv6
		offset, length = 8, 16
	}
	bits := p.Bits()
	mask := make([]byte, length)
	for i := 0; i < bits; i++ {
		mask[i/8] |= 0x80 >> (i % 8)
	}

	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyNFPROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{nfproto}},
		&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: offset, Len: length},
		&expr.Bitwise{SourceRegister: 1, DestRegister: 1, Len: length, Mask: mask, Xor: make([]byte, length)},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: addr.AsSlice()},
	}
}

// ifname pads an interface name to IFNAMSIZ as nftables expects.
func ifname(n string) []byte {
	b := make([]byte, unix.IFNAMSIZ)
	copy(b, n)
	return b
}
