// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sentinel turns per-interval utilization into severity bands and
// tracks sustained overload.
package sentinel

import (
	"fmt"
	"math"

	"grimm.is/linkguard/internal/errors"
)

// Threshold is one configured band boundary.
type Threshold struct {
	Percent float64
	Label   string
}

// Band is a utilization severity level. Index 0 is the base band.
type Band struct {
	Index   int
	Percent float64
	Label   string
}

func (b Band) String() string { return b.Label }

// DefaultBaseLabel names the band below the lowest threshold.
const DefaultBaseLabel = "<50%"

// DefaultThresholds is the standard 50/70/90 band set.
var DefaultThresholds = []Threshold{
	{Percent: 50, Label: ">=50%"},
	{Percent: 70, Label: ">=70%"},
	{Percent: 90, Label: ">=90%"},
}

// BandSet is a totally ordered list of bands.
type BandSet struct {
	bands []Band
}

// NewBandSet builds a band set from strictly increasing thresholds.
func NewBandSet(baseLabel string, thresholds []Threshold) (BandSet, error) {
	if baseLabel == "" {
		baseLabel = DefaultBaseLabel
	}
	if len(thresholds) == 0 {
		return BandSet{}, errors.New(errors.KindValidation, "at least one band threshold is required")
	}

	bands := make([]Band, 0, len(thresholds)+1)
	bands = append(bands, Band{Index: 0, Percent: math.Inf(-1), Label: baseLabel})
	seen := map[string]bool{baseLabel: true}

	for i, th := range thresholds {
		if math.IsNaN(th.Percent) || th.Percent < 0 {
			return BandSet{}, errors.Attr(errors.Errorf(errors.KindValidation, "band %d: percent must be non-negative", i), "index", i)
		}
		if i > 0 && th.Percent <= thresholds[i-1].Percent {
			return BandSet{}, errors.Attr(errors.Errorf(errors.KindValidation,
				"band %d: percent %.4g must be greater than %.4g", i, th.Percent, thresholds[i-1].Percent), "index", i)
		}
		label := th.Label
		if label == "" {
			label = fmt.Sprintf(">=%g%%", th.Percent)
		}
		if seen[label] {
			return BandSet{}, errors.Attr(errors.Errorf(errors.KindValidation, "band %d: duplicate label %q", i, label), "index", i)
		}
		seen[label] = true
		bands = append(bands, Band{Index: i + 1, Percent: th.Percent, Label: label})
	}
	return BandSet{bands: bands}, nil
}

// DefaultBandSet returns the <50%, >=50%, >=70%, >=90% set.
func DefaultBandSet() BandSet {
	s, err := NewBandSet(DefaultBaseLabel, DefaultThresholds)
	if err != nil {
		panic(err)
	}
	return s
}

// Base returns the band below every threshold.
func (s BandSet) Base() Band { return s.bands[0] }

// Bands returns a copy of all bands, base first.
func (s BandSet) Bands() []Band {
	out := make([]Band, len(s.bands))
	copy(out, s.bands)
	return out
}

// Lookup finds a band by label.
func (s BandSet) Lookup(label string) (Band, bool) {
	for _, b := range s.bands {
		if b.Label == label {
			return b, true
		}
	}
	return Band{}, false
}

// Classify returns the highest band whose threshold pct reaches.
func (s BandSet) Classify(pct float64) Band {
	current := s.bands[0]
	for _, b := range s.bands[1:] {
		if pct < b.Percent {
			break
		}
		current = b
	}
	return current
}

// Classifier holds the current band and reports only transitions.
// It is owned by a single goroutine.
type Classifier struct {
	bands   BandSet
	current Band
}

// NewClassifier starts in the base band.
func NewClassifier(bands BandSet) *Classifier {
	return &Classifier{bands: bands, current: bands.Base()}
}

// Observe classifies the larger of the two directions. changed is true only
// when the band differs from the previous observation.
func (c *Classifier) Observe(txPct, rxPct float64) (band Band, changed bool) {
	next := c.bands.Classify(math.Max(txPct, rxPct))
	if next.Index == c.current.Index {
		return c.current, false
	}
	c.current = next
	return next, true
}

// Current returns the band of the last observation.
func (c *Classifier) Current() Band {
	return c.current
}
