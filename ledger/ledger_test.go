package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/gomr/indicator"
	"github.com/evdnx/gomr/signal"
	"github.com/evdnx/gomr/testutils"
	"github.com/evdnx/gomr/types"
)

func steps(closes []float64, sigs ...types.Signal) []signal.Step {
	bars := testutils.BarsFromCloses(closes...)
	out := make([]signal.Step, len(sigs))
	for i, s := range sigs {
		out[i] = signal.Step{Row: indicator.Row{Index: i, Bar: bars[i]}, Signal: s}
	}
	return out
}

func TestAccountScenarioNetProfitIsExact(t *testing.T) {
	bars := testutils.BarsFromCloses(100, 102, 104, 103, 101, 99, 97, 95, 93, 91)
	rows, err := indicator.Compute(bars, indicator.Params{FastWindow: 2, SlowWindow: 4})
	require.NoError(t, err)
	rules, err := signal.Preset("price")
	require.NoError(t, err)

	l, err := Account("TEST", signal.Generate(rows, rules, 50), 100)
	require.NoError(t, err)
	require.Len(t, l.Trades, 1)

	tr := l.Trades[0]
	assert.Equal(t, 103.0, tr.EntryPrice)
	assert.Equal(t, 101.0, tr.ExitPrice)
	ret := (101.0 - 103.0) / 103.0
	assert.Equal(t, ret, tr.ReturnPct)
	assert.Equal(t, 100*ret, l.Summary.NetProfit)
	assert.Equal(t, 100+100*ret, l.Summary.FinalCapital)
	assert.Equal(t, 0.0, l.Summary.WinRatio)
	assert.Equal(t, StatusOK, l.Summary.Status)
	assert.Nil(t, l.Summary.Open)
	assert.NoError(t, l.Summary.Err())
}

func TestAccountCompoundsCapital(t *testing.T) {
	closes := []float64{50, 55, 60, 54, 70}
	l, err := Account("X", steps(closes,
		types.Bought, types.Sold, types.Bought, types.Sold, types.Bought), 100)
	require.NoError(t, err)

	require.Len(t, l.Trades, 2)
	assert.InDelta(t, 110.0, l.Trades[0].CapitalAfter, 1e-9)
	assert.InDelta(t, 110.0, l.Trades[1].CapitalBefore, 1e-9)
	assert.InDelta(t, 99.0, l.Trades[1].CapitalAfter, 1e-9)
	assert.InDelta(t, -1.0, l.Summary.NetProfit, 1e-9)
	assert.InDelta(t, l.Summary.FinalCapital-l.Summary.InitialCapital, l.Summary.NetProfit, 1e-9)
	assert.Equal(t, 0.5, l.Summary.WinRatio)
	assert.Equal(t, 1, l.Summary.Wins)

	// open position at the end is reported, not realized
	require.NotNil(t, l.Summary.Open)
	assert.Equal(t, 70.0, l.Summary.Open.EntryPrice)
	assert.Equal(t, 4, l.Summary.Open.EntryIndex)
	assert.InDelta(t, 99.0, l.Summary.Open.CapitalAtEntry, 1e-9)

	require.Len(t, l.Orders, 5)
	assert.Equal(t, types.Buy, l.Orders[0].Side)
	assert.InDelta(t, 2.0, l.Orders[0].Qty, 1e-12)
	assert.Equal(t, l.Orders[0].Qty, l.Orders[1].Qty)
	assert.Equal(t, "X", l.Orders[1].Symbol)
	assert.Len(t, l.Capital, 5)
}

func TestAccountNoTradesIsUndefined(t *testing.T) {
	l, err := Account("X", steps([]float64{1, 2, 3}, types.WaitingToBuy, types.Bought, types.Hold), 100)
	require.NoError(t, err)
	s := l.Summary
	assert.True(t, math.IsNaN(s.NetProfit))
	assert.True(t, math.IsNaN(s.WinRatio))
	assert.Equal(t, StatusNoTrades, s.Status)
	assert.False(t, s.Defined())
	assert.True(t, errors.Is(s.Err(), ErrNoTradesClosed))
	_, ok := s.Metric()
	assert.False(t, ok)
	assert.Equal(t, 100.0, s.FinalCapital)
}

func TestAccountBreakEvenIsDefinedZero(t *testing.T) {
	l, err := Account("X", steps([]float64{10, 10}, types.Bought, types.Sold), 100)
	require.NoError(t, err)
	m, ok := l.Summary.Metric()
	assert.True(t, ok)
	assert.Equal(t, 0.0, m)
	assert.Equal(t, 0.0, l.Summary.WinRatio)
}

func TestAccountIsDeterministic(t *testing.T) {
	bars := testutils.Wave(150, 100, 12, 11)
	rows, err := indicator.Compute(bars, indicator.Params{FastWindow: 3, SlowWindow: 7})
	require.NoError(t, err)
	rules, err := signal.Preset("price")
	require.NoError(t, err)
	st := signal.Generate(rows, rules, 5)

	a, err := Account("X", st, 1000)
	require.NoError(t, err)
	b, err := Account("X", st, 1000)
	require.NoError(t, err)
	assert.Equal(t, a.Trades, b.Trades)
	assert.Equal(t, a.Summary.NetProfit, b.Summary.NetProfit)
	assert.Equal(t, a.Summary.WinRatio, b.Summary.WinRatio)
	assert.Equal(t, a.Orders, b.Orders)
}

func TestAccountErrors(t *testing.T) {
	_, err := Account("X", steps([]float64{1}, types.Sold), 100)
	assert.ErrorIs(t, err, ErrSequence)
	assert.ErrorIs(t, err, signal.ErrInvalidSequence)

	_, err = Account("X", steps([]float64{1, 2}, types.Bought, types.Bought), 100)
	assert.ErrorIs(t, err, ErrSequence)

	_, err = Account("X", nil, 0)
	assert.Error(t, err)
	_, err = Account("X", nil, math.NaN())
	assert.Error(t, err)
}

func TestInsufficientHistorySummary(t *testing.T) {
	s := InsufficientHistory(250)
	assert.Equal(t, StatusInsufficientHistory, s.Status)
	assert.ErrorIs(t, s.Err(), indicator.ErrInsufficientHistory)
	assert.True(t, math.IsNaN(s.NetProfit))
	assert.Equal(t, 250.0, s.FinalCapital)
}
