// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sentinel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkguard/internal/errors"
)

func TestBandSet_Classify(t *testing.T) {
	bands := DefaultBandSet()

	tests := []struct {
		pct  float64
		want string
	}{
		{0, "<50%"},
		{49.99, "<50%"},
		{50, ">=50%"},
		{69.9, ">=50%"},
		{70, ">=70%"},
		{80, ">=70%"},
		{90, ">=90%"},
		{250, ">=90%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bands.Classify(tt.pct).Label, "pct=%v", tt.pct)
	}
}

func TestNewBandSet_Validation(t *testing.T) {
	_, err := NewBandSet("", nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))

	_, err = NewBandSet("", []Threshold{{Percent: 80}, {Percent: 50}})
	require.Error(t, err)
	assert.Equal(t, 1, errors.GetAttributes(err)["index"])

	_, err = NewBandSet("", []Threshold{{Percent: 50, Label: "hot"}, {Percent: 60, Label: "hot"}})
	assert.Error(t, err)

	legacy, err := NewBandSet("<50%", []Threshold{{50, ""}, {80, ""}, {90, ""}})
	require.NoError(t, err)
	assert.Equal(t, ">=80%", legacy.Classify(85).Label)
	assert.Len(t, legacy.Bands(), 4)
}

func TestClassifier_Observe(t *testing.T) {
	c := NewClassifier(DefaultBandSet())
	assert.Equal(t, "<50%", c.Current().Label)

	// 5,000,000 bytes in 1s on a 50 Mbps link is 80%.
	band, changed := c.Observe(80, 0)
	assert.True(t, changed)
	assert.Equal(t, ">=70%", band.Label)

	band, changed = c.Observe(75, 10)
	assert.False(t, changed)
	assert.Equal(t, ">=70%", band.Label)

	band, changed = c.Observe(10, 95)
	assert.True(t, changed, "rx direction also counts")
	assert.Equal(t, ">=90%", band.Label)

	band, changed = c.Observe(0, 0)
	assert.True(t, changed)
	assert.Equal(t, 0, band.Index)
}

func TestClassifier_NeverRepeats(t *testing.T) {
	c := NewClassifier(DefaultBandSet())
	samples := []float64{10, 55, 55, 72, 71, 95, 99, 40, 40, 0, 91, 91}

	last := c.Current().Index
	for _, pct := range samples {
		band, changed := c.Observe(pct, 0)
		if changed {
			assert.NotEqual(t, last, band.Index)
			last = band.Index
		} else {
			assert.Equal(t, last, band.Index)
		}
	}
}

func TestBreachTracker(t *testing.T) {
	var bt BreachTracker

	var got []int
	for _, pct := range []float64{75, 72, 40, 80, 85, 90} {
		got = append(got, bt.Observe(pct, 0, 70))
	}
	assert.Equal(t, []int{1, 2, 0, 1, 2, 3}, got)
	assert.Equal(t, 3, bt.Count())

	assert.Equal(t, 4, bt.Observe(0, 70, 70), "threshold is inclusive on either direction")
	assert.Equal(t, 0, bt.Observe(69.9, 69.9, 70))
}
