package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/ledger"
	"github.com/evdnx/gomr/optimizer"
	"github.com/evdnx/gomr/strategy"
	"github.com/evdnx/gomr/testutils"
)

var day = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func scenarioRun(t *testing.T) *strategy.Result {
	t.Helper()
	cfg := config.DefaultStrategyConfig()
	cfg.FastWindow, cfg.SlowWindow, cfg.StopLossPct = 2, 4, 50
	mr, err := strategy.NewMeanReversion("BTCUSDT", cfg, nil, nil)
	require.NoError(t, err)
	res, err := mr.Run(testutils.BarsFromCloses(100, 102, 104, 103, 101, 99, 97, 95, 93, 91))
	require.NoError(t, err)
	return res
}

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	recs, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "MRS_BTCUSDT_2026-10-19.csv", FileName(TracePrefix, "BTCUSDT", day))
	assert.Equal(t, "MRS_GRID_ETHUSDT_2026-10-19.csv", FileName(GridPrefix, "ETHUSDT", day))
}

func TestWriteTrace(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, scenarioRun(t)))
	recs := readCSV(t, buf.String())

	require.Len(t, recs, 8)
	assert.Equal(t, traceHeader, recs[0])

	bought := recs[1]
	assert.Equal(t, "103", bought[1])
	assert.Equal(t, "103.5", bought[2])
	assert.Equal(t, "102.25", bought[3])
	assert.Equal(t, NA, bought[4], "rsi disabled")
	assert.Equal(t, "Bought", bought[5])
	assert.Equal(t, "", bought[6])

	sold := recs[2]
	assert.Equal(t, "Sold", sold[5])
	entry, exit := 103.0, 101.0
	ret := (exit - entry) / entry
	profit := 100 * ret
	assert.Equal(t, num(ret), sold[6])
	assert.Equal(t, num(profit), sold[7])
	assert.Equal(t, num(100+profit), sold[8])

	assert.Equal(t, "Waiting to Buy", recs[3][5])
	assert.Equal(t, sold[8], recs[7][8], "capital carries forward")
}

func TestWriteGrid(t *testing.T) {
	table := &optimizer.Table{Symbol: "BTCUSDT", Results: []optimizer.Result{
		{StopLossPct: 5, FastWindow: 3, SlowWindow: 10, Metric: 12.5, Defined: true, WinRatio: 0.5, Trades: 4, Status: ledger.StatusOK},
		{StopLossPct: 10, FastWindow: 5, SlowWindow: 20, Metric: math.NaN(), WinRatio: math.NaN(), Status: ledger.StatusNoTrades},
		{StopLossPct: 2.5, FastWindow: 5, SlowWindow: 10, Metric: math.NaN(), WinRatio: math.NaN(),
			Status: optimizer.StatusFailed, Err: errors.New("boom")},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteGrid(&buf, table))
	recs := readCSV(t, buf.String())

	require.Len(t, recs, 4)
	assert.Equal(t, gridHeader, recs[0])
	assert.Equal(t, []string{"5", "3", "10", "12.5", "0.5", "4", "ok"}, recs[1])
	assert.Equal(t, []string{"10", "5", "20", NA, NA, "0", "no_trades"}, recs[2])
	assert.Equal(t, "failed: boom", recs[3][6])
}

func TestSaveFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := scenarioRun(t)

	path, err := SaveTrace(dir, day, res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "MRS_BTCUSDT_2026-10-19.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Date,Close,Fast_MA"))

	o, err := optimizer.New(config.DefaultStrategyConfig(), nil, optimizer.WithSymbol("BTCUSDT"))
	require.NoError(t, err)
	table, err := o.Optimize(context.Background(), testutils.Wave(120, 100, 10, 19), config.GridConfig{
		StopLossPct: []float64{5}, FastWindow: []int{3}, SlowWindow: []int{10, 20},
	})
	require.NoError(t, err)
	path, err = SaveGrid(dir, day, table)
	require.NoError(t, err)
	assert.Equal(t, "MRS_GRID_BTCUSDT_2026-10-19.csv", filepath.Base(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, string(data)), 3)
}

func TestWriteTable(t *testing.T) {
	table := &optimizer.Table{Results: []optimizer.Result{
		{StopLossPct: 5, FastWindow: 3, SlowWindow: 10, Metric: 12.5, Defined: true, WinRatio: 0.5, Trades: 4, Status: ledger.StatusOK},
		{StopLossPct: 10, FastWindow: 5, SlowWindow: 20, Metric: math.NaN(), WinRatio: math.NaN(), Status: ledger.StatusNoTrades},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, table, 1))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "NET PROFIT")
	assert.Contains(t, lines[1], "12.5000")
	assert.NotContains(t, buf.String(), "no_trades")

	buf.Reset()
	require.NoError(t, WriteTable(&buf, table, 0))
	assert.Contains(t, buf.String(), NA)
}
