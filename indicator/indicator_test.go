package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/gomr/testutils"
	"github.com/evdnx/gomr/types"
)

var scenarioCloses = []float64{100, 102, 104, 103, 101, 99, 97, 95, 93, 91}

func TestComputeRowCountProperty(t *testing.T) {
	for _, slow := range []int{1, 2, 4, 7, 10} {
		for _, n := range []int{slow, slow + 1, 25} {
			bars := testutils.Wave(n, 100, 10, 9)
			rows, err := Compute(bars, Params{FastWindow: 2, SlowWindow: slow})
			require.NoError(t, err)
			assert.Len(t, rows, n-(slow-1), "slow=%d n=%d", slow, n)
			for i, r := range rows {
				assert.Equal(t, i, r.Index)
				assert.False(t, math.IsNaN(r.SlowMA))
				assert.Equal(t, bars[i+slow-1].Time, r.Bar.Time)
			}
		}
	}
}

func TestComputeScenarioAverages(t *testing.T) {
	rows, err := Compute(testutils.BarsFromCloses(scenarioCloses...), Params{FastWindow: 2, SlowWindow: 4})
	require.NoError(t, err)
	require.Len(t, rows, 7)

	first := rows[0]
	assert.Equal(t, 103.0, first.Close())
	assert.InDelta(t, 103.5, first.FastMA, 1e-12)
	assert.InDelta(t, 102.25, first.SlowMA, 1e-12)

	assert.InDelta(t, 102.0, rows[1].FastMA, 1e-12)
	assert.InDelta(t, 102.5, rows[1].SlowMA, 1e-12)
	assert.True(t, math.IsNaN(first.RSI), "rsi disabled")
}

func TestComputeShortSeriesIsEmpty(t *testing.T) {
	rows, err := Compute(testutils.BarsFromCloses(1, 2, 3), Params{FastWindow: 2, SlowWindow: 4})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = Compute(nil, Params{FastWindow: 2, SlowWindow: 4})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestComputeFastLongerThanSlow(t *testing.T) {
	rows, err := Compute(testutils.Ramp(10, 1, 6), Params{FastWindow: 4, SlowWindow: 2})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.True(t, math.IsNaN(rows[0].FastMA))
	assert.True(t, math.IsNaN(rows[1].FastMA))
	assert.InDelta(t, 11.5, rows[2].FastMA, 1e-12)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	_, err := Compute(testutils.BarsFromCloses(1, 2), Params{FastWindow: 0, SlowWindow: 2})
	assert.Error(t, err)

	bars := testutils.BarsFromCloses(1, math.NaN(), 3)
	_, err = Compute(bars, Params{FastWindow: 1, SlowWindow: 2})
	assert.ErrorIs(t, err, ErrInvalidBar)

	bars = testutils.BarsFromCloses(1, -2, 3)
	_, err = Compute(bars, Params{FastWindow: 1, SlowWindow: 2})
	assert.ErrorIs(t, err, ErrInvalidBar)

	_, err = Compute(testutils.BarsFromCloses(1, 2), Params{
		FastWindow: 1, SlowWindow: 2, WithRSI: true, RSIWindow: 14, RSIOversold: 70, RSIOverbought: 30,
	})
	assert.Error(t, err)
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	bars := testutils.BarsFromCloses(scenarioCloses...)
	before := types.CloneBars(bars)
	_, err := Compute(bars, Params{FastWindow: 2, SlowWindow: 4, WithRSI: true, RSIWindow: 3, RSIOversold: 30, RSIOverbought: 70})
	require.NoError(t, err)
	assert.Equal(t, before, bars)
}

func TestComputeRSIWarmupAndBounds(t *testing.T) {
	p := Params{FastWindow: 2, SlowWindow: 4, WithRSI: true, RSIWindow: 14, RSIOversold: 30, RSIOverbought: 70}

	// RSI is computed over all bars, so it is defined from bar index 14,
	// which is row index 11 once the first three bars are dropped.
	rows, err := Compute(testutils.Ramp(100, 1, 30), p)
	require.NoError(t, err)
	for _, r := range rows {
		if r.Index < 11 {
			assert.True(t, math.IsNaN(r.RSI), "row %d should still be warming up", r.Index)
			continue
		}
		assert.Equal(t, 100.0, r.RSI, "monotonic rise saturates RSI")
	}

	rows, err = Compute(testutils.Wave(120, 100, 15, 17), p)
	require.NoError(t, err)
	for _, r := range rows {
		if math.IsNaN(r.RSI) {
			continue
		}
		assert.GreaterOrEqual(t, r.RSI, 0.0)
		assert.LessOrEqual(t, r.RSI, 100.0)
	}
}

func TestWindowMean(t *testing.T) {
	w := newWindow(3)
	for _, v := range []float64{1, 2, 3, 4} {
		w.Add(v)
	}
	assert.True(t, w.Full())
	assert.Equal(t, []float64{2, 3, 4}, w.buf)
	assert.InDelta(t, 3.0, w.Mean(), 1e-12)
}
