// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package kernel

import (
	"context"

	"github.com/vishvananda/netlink"
)

// NetlinkSource reads counters via RTM_GETLINK.
type NetlinkSource struct {
	list func() ([]netlink.Link, error)
}

// NewNetlinkSource returns a source backed by the host's netlink socket.
func NewNetlinkSource() *NetlinkSource {
	return &NetlinkSource{list: netlink.LinkList}
}

func newNetlinkSource() (CounterSource, error) {
	return NewNetlinkSource(), nil
}

// Snapshot lists all links and converts their 64-bit statistics.
// A link reporting no statistics block is skipped for this snapshot.
func (n *NetlinkSource) Snapshot(_ context.Context) (Snapshot, error) {
	links, err := n.list()
	if err != nil {
		return nil, unavailable(err, SourceNetlink)
	}

	snap := make(Snapshot, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil || attrs.Statistics == nil {
			continue
		}
		snap = append(snap, fromLinkStatistics(attrs.Name, attrs.Statistics))
	}
	return snap, nil
}

// fromLinkStatistics maps rtnl_link_stats64 onto the /proc/net/dev columns,
// following the kernel's own dev_seq_printf_stats aggregation.
func fromLinkStatistics(name string, s *netlink.LinkStatistics) InterfaceCounters {
	return InterfaceCounters{
		Name:         name,
		RxBytes:      s.RxBytes,
		RxPackets:    s.RxPackets,
		RxErrors:     s.RxErrors,
		RxDrops:      s.RxDropped + s.RxMissedErrors,
		RxFIFO:       s.RxFifoErrors,
		RxFrame:      s.RxLengthErrors + s.RxOverErrors + s.RxCrcErrors + s.RxFrameErrors,
		RxCompressed: s.RxCompressed,
		RxMulticast:  s.Multicast,
		TxBytes:      s.TxBytes,
		TxPackets:    s.TxPackets,
		TxErrors:     s.TxErrors,
		TxDrops:      s.TxDropped,
		TxFIFO:       s.TxFifoErrors,
		TxCollisions: s.Collisions,
		TxCarrier:    s.TxCarrierErrors + s.TxAbortedErrors + s.TxWindowErrors + s.TxHeartbeatErrors,
		TxCompressed: s.TxCompressed,
	}
}
