// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package kernel

import (
	"context"

	"github.com/shirou/gopsutil/v3/net"
)

// GopsutilSource reads counters through gopsutil, for platforms without
// /proc/net/dev. Frame, compressed, multicast, collision and carrier
// counters are not exposed by gopsutil and stay zero.
type GopsutilSource struct {
	counters func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
}

// NewGopsutilSource returns a gopsutil-backed source.
func NewGopsutilSource() *GopsutilSource {
	return &GopsutilSource{counters: net.IOCountersWithContext}
}

// Snapshot returns per-NIC counters.
func (g *GopsutilSource) Snapshot(ctx context.Context) (Snapshot, error) {
	stats, err := g.counters(ctx, true)
	if err != nil {
		return nil, unavailable(err, SourceGopsutil)
	}

	snap := make(Snapshot, 0, len(stats))
	for _, s := range stats {
		snap = append(snap, InterfaceCounters{
			Name:      s.Name,
			RxBytes:   s.BytesRecv,
			RxPackets: s.PacketsRecv,
			RxErrors:  s.Errin,
			RxDrops:   s.Dropin,
			RxFIFO:    s.Fifoin,
			TxBytes:   s.BytesSent,
			TxPackets: s.PacketsSent,
			TxErrors:  s.Errout,
			TxDrops:   s.Dropout,
			TxFIFO:    s.Fifoout,
		})
	}
	return snap, nil
}
