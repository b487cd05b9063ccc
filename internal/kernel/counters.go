// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package kernel provides an abstraction over the operating system's
// per-interface traffic counters.
// On Linux, counters come from /proc/net/dev or netlink.
// Elsewhere, gopsutil supplies the subset the platform exposes.
// In tests, a scripted source replays prepared snapshots.
package kernel

import (
	"context"
	"fmt"
	"runtime"

	"grimm.is/linkguard/internal/errors"
)

// InterfaceCounters holds the cumulative counters of one interface at the
// moment a snapshot was taken.
type InterfaceCounters struct {
	Name string

	RxBytes      uint64
	RxPackets    uint64
	RxErrors     uint64
	RxDrops      uint64
	RxFIFO       uint64
	RxFrame      uint64
	RxCompressed uint64
	RxMulticast  uint64

	TxBytes      uint64
	TxPackets    uint64
	TxErrors     uint64
	TxDrops      uint64
	TxFIFO       uint64
	TxCollisions uint64
	TxCarrier    uint64
	TxCompressed uint64
}

// Snapshot is one point-in-time read of all interfaces, in source order.
type Snapshot []InterfaceCounters

// Find returns the counters for the named interface.
func (s Snapshot) Find(name string) (InterfaceCounters, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return InterfaceCounters{}, false
}

// Names lists interface names in snapshot order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		names = append(names, c.Name)
	}
	return names
}

// CounterSource yields snapshots on demand.
// An interface missing from a snapshot is not an error; failing to read the
// counters at all is reported as errors.KindUnavailable.
type CounterSource interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Source names accepted by NewSource.
const (
	SourceProcfs   = "procfs"
	SourceNetlink  = "netlink"
	SourceGopsutil = "gopsutil"
)

// DefaultSourceName returns the preferred source for the running platform.
func DefaultSourceName() string {
	if runtime.GOOS == "linux" {
		return SourceProcfs
	}
	return SourceGopsutil
}

// NewSource constructs a CounterSource by name.
func NewSource(name string) (CounterSource, error) {
	if name == "" {
		name = DefaultSourceName()
	}
	switch name {
	case SourceProcfs:
		return NewProcNetDev(""), nil
	case SourceNetlink:
		return newNetlinkSource()
	case SourceGopsutil:
		return NewGopsutilSource(), nil
	default:
		return nil, errors.Errorf(errors.KindValidation, "unknown counter source %q", name)
	}
}

func unavailable(err error, source string) error {
	return errors.Attr(errors.Wrap(err, errors.KindUnavailable, fmt.Sprintf("%s counters unavailable", source)), "source", source)
}
