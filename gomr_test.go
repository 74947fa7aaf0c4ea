package gomr

import (
	"context"
	"errors"
	"testing"

	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/executor"
	"github.com/evdnx/gomr/marketdata"
	"github.com/evdnx/gomr/optimizer"
	"github.com/evdnx/gomr/testutils"
)

func TestBacktestFromStaticProvider(t *testing.T) {
	p := marketdata.NewStatic(testutils.BarsFromCloses(100, 102, 104, 103, 101, 99, 97, 95, 93, 91))
	cfg := config.DefaultStrategyConfig()
	cfg.FastWindow, cfg.SlowWindow, cfg.StopLossPct = 2, 4, 50
	exec := executor.NewPaperExecutor(cfg.Capital, nil)

	res, err := Backtest(context.Background(), p, marketdata.Query{Symbol: "BTCUSDT"}, cfg, exec, testutils.NewMockLogger())
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.Symbol != "BTCUSDT" || res.Bars != 10 {
		t.Fatalf("unexpected result header %q/%d", res.Symbol, res.Bars)
	}
	if got := res.Summary().TradesClosed; got != 1 {
		t.Fatalf("expected 1 closed trade, got %d", got)
	}
	if qty, _ := exec.Position("BTCUSDT"); qty != 0 {
		t.Fatalf("paper position should be flat, got %v", qty)
	}
}

func TestBacktestHaltsWithoutData(t *testing.T) {
	p := marketdata.NewStatic(nil)
	_, err := Backtest(context.Background(), p, marketdata.Query{Symbol: "X"}, config.DefaultStrategyConfig(), nil, nil)
	if !errors.Is(err, marketdata.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	_, err = Search(context.Background(), p, marketdata.Query{Symbol: "X"}, config.DefaultStrategyConfig(), config.DefaultGrid(), nil)
	if !errors.Is(err, marketdata.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestSearchRanksGrid(t *testing.T) {
	p := marketdata.NewStatic(testutils.Wave(250, 100, 18, 33))
	grid := config.GridConfig{StopLossPct: []float64{5, 10}, FastWindow: []int{3, 5}, SlowWindow: []int{10, 20}}

	table, err := Search(context.Background(), p, marketdata.Query{Symbol: "ETHUSDT"},
		config.DefaultStrategyConfig(), grid, nil, optimizer.WithWorkers(4))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(table.Results) != 8 || table.Symbol != "ETHUSDT" || table.Bars != 250 {
		t.Fatalf("unexpected table: %d rows, symbol %q", len(table.Results), table.Symbol)
	}
}
