// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sentinel

import "math"

// BreachTracker counts consecutive samples at or above a trigger threshold.
type BreachTracker struct {
	count int
}

// Observe updates and returns the consecutive breach count.
func (t *BreachTracker) Observe(txPct, rxPct, thresholdPct float64) int {
	if math.Max(txPct, rxPct) >= thresholdPct {
		t.count++
	} else {
		t.count = 0
	}
	return t.count
}

// Count returns the current streak length.
func (t *BreachTracker) Count() int {
	return t.count
}
