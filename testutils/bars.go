package testutils

import (
	"math"
	"time"

	"github.com/evdnx/gomr/types"
)

// Epoch is the timestamp of the first synthetic bar.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// BarsFromCloses builds daily bars whose open/high/low collapse onto close.
func BarsFromCloses(closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   Epoch.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1,
		}
	}
	return bars
}

// Ramp returns n closes starting at start and moving by step each bar.
func Ramp(start, step float64, n int) []types.Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}
	return BarsFromCloses(closes...)
}

// Wave returns n closes oscillating around base with the given amplitude
// and period (in bars), rounded to cents so results are reproducible.
func Wave(n int, base, amplitude float64, period int) []types.Bar {
	closes := make([]float64, n)
	for i := range closes {
		v := base + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
		closes[i] = math.Round(v*100) / 100
	}
	return BarsFromCloses(closes...)
}
