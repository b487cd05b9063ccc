// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package firewall installs the packet-filter drop rule used by the
// suppress mitigation.
package firewall

import (
	"fmt"
	"net/netip"
	"strings"

	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/validation"
)

// Defaults for the mitigation table.
const (
	DefaultTableName = "linkguard"
	ChainInput       = "mitigation_input"
	ChainForward     = "mitigation_forward"
	// ChainPriority runs ahead of the standard filter priority (0).
	ChainPriority = -10
	RuleComment   = "linkguard suppress"
)

// Protocol constants for rule generation
const (
	ProtoIPv4 = 2  // unix.NFPROTO_IPV4
	ProtoIPv6 = 10 // unix.NFPROTO_IPV6
)

// DropRule describes the traffic to discard. Zero fields match anything.
type DropRule struct {
	Interface string
	Source    netip.Prefix
	Protocol  string // "tcp", "udp" or empty
	Port      uint16
}

// ParseDropRule builds a rule from configuration strings.
func ParseDropRule(iface, source, protocol string, port int) (DropRule, error) {
	r := DropRule{Interface: iface, Protocol: strings.ToLower(protocol)}
	if source != "" {
		p, err := netip.ParsePrefix(source)
		if err != nil {
			addr, aerr := netip.ParseAddr(source)
			if aerr != nil {
				return DropRule{}, errors.Attr(errors.Wrap(err, errors.KindValidation, "invalid suppress source"), "source", source)
			}
			p = netip.PrefixFrom(addr, addr.BitLen())
		}
		if p.Addr().Is4In6() && p.Bits() >= 96 {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
		}
		r.Source = p
	}
	if port < 0 || port > 65535 {
		return DropRule{}, errors.Attr(errors.Errorf(errors.KindValidation, "suppress port %d out of range", port), "port", port)
	}
	r.Port = uint16(port)
	return r, r.Validate()
}

// Validate checks that the rule can be expressed.
func (r DropRule) Validate() error {
	if r.Interface == "" {
		return errors.New(errors.KindValidation, "suppress rule requires an interface")
	}
	if err := validation.ValidateInterfaceName(r.Interface); err != nil {
		return err
	}
	switch r.Protocol {
	case "", "tcp", "udp":
	default:
		return errors.Attr(errors.Errorf(errors.KindValidation, "unsupported suppress protocol %q", r.Protocol), "protocol", r.Protocol)
	}
	if r.Port != 0 && r.Protocol == "" {
		return errors.New(errors.KindValidation, "suppress port requires protocol tcp or udp")
	}
	return nil
}

// Masked returns the rule with the source prefix normalized.
func (r DropRule) Masked() DropRule {
	if r.Source.IsValid() {
		r.Source = r.Source.Masked()
	}
	return r
}

// Expression renders the match part of the rule in nft syntax.
func (r DropRule) Expression() string {
	r = r.Masked()
	parts := []string{fmt.Sprintf("iifname %q", r.Interface)}
	if r.Source.IsValid() {
		family := "ip"
		if r.Source.Addr().Is6() {
			family = "ip6"
		}
		parts = append(parts, fmt.Sprintf("%s saddr %s", family, r.Source))
	}
	switch {
	case r.Protocol != "" && r.Port != 0:
		parts = append(parts, fmt.Sprintf("%s dport %d", r.Protocol, r.Port))
	case r.Protocol != "":
		parts = append(parts, "meta l4proto "+r.Protocol)
	}
	return strings.Join(parts, " ")
}

func (r DropRule) String() string {
	return r.Expression()
}
