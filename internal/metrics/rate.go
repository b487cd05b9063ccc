// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics turns cumulative interface counters into per-interval
// samples, persists them, and exports them to Prometheus.
package metrics

import (
	"time"

	"grimm.is/linkguard/internal/kernel"
)

// Sample holds the per-interval traffic of one interface.
type Sample struct {
	TxBytes   uint64
	TxPackets uint64
	RxBytes   uint64
	RxPackets uint64

	// Reset is set if any counter went backwards between the two reads.
	Reset bool
}

// Compute returns current-previous for each traffic counter.
// Both arguments must describe the same interface.
//
// A counter lower than its previous value means the interface was reset
// (driver reload, link re-creation). That field's delta is then the current
// value, i.e. the traffic accumulated since the reset, and Reset is set.
func Compute(previous, current kernel.InterfaceCounters) Sample {
	var s Sample
	s.TxBytes = delta(current.TxBytes, previous.TxBytes, &s.Reset)
	s.TxPackets = delta(current.TxPackets, previous.TxPackets, &s.Reset)
	s.RxBytes = delta(current.RxBytes, previous.RxBytes, &s.Reset)
	s.RxPackets = delta(current.RxPackets, previous.RxPackets, &s.Reset)
	return s
}

func delta(current, previous uint64, reset *bool) uint64 {
	if current < previous {
		*reset = true
		return current
	}
	return current - previous
}

// Utilization returns bytes as a percentage of what a link of capacityBPS
// bits per second can carry in interval.
func Utilization(bytes uint64, capacityBPS float64, interval time.Duration) float64 {
	capacityBits := capacityBPS * interval.Seconds()
	if capacityBits <= 0 {
		return 0
	}
	return (float64(bytes) * 8 / capacityBits) * 100
}
