// Package report exports backtest results as CSV and console tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/evdnx/gomr/optimizer"
	"github.com/evdnx/gomr/strategy"
	"github.com/evdnx/gomr/types"
)

// NA is written wherever a number is undefined.
const NA = "N/A"

const (
	TracePrefix = "MRS"
	GridPrefix  = "MRS_GRID"
)

var (
	gridHeader  = []string{"Stop_Loss_PCT", "Fast_MA", "Slow_MA", "Performance_Metric", "Win_Ratio", "Trades", "Status"}
	traceHeader = []string{"Date", "Close", "Fast_MA", "Slow_MA", "RSI", "Signal", "Return_PCT", "Profit", "Capital"}
)

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FileName builds names such as MRS_BTCUSDT_2026-10-19.csv.
func FileName(prefix, symbol string, day time.Time) string {
	return fmt.Sprintf("%s_%s_%s.csv", prefix, symbol, day.Format("2006-01-02"))
}

func status(r optimizer.Result) string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Status, r.Err)
	}
	return string(r.Status)
}

// WriteGrid writes one row per grid point in ranked order.
func WriteGrid(w io.Writer, table *optimizer.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(gridHeader); err != nil {
		return err
	}
	for _, r := range table.Results {
		rec := []string{
			num(r.StopLossPct),
			strconv.Itoa(r.FastWindow),
			strconv.Itoa(r.SlowWindow),
			num(r.Metric),
			num(r.WinRatio),
			strconv.Itoa(r.Trades),
			status(r),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrace writes the per-row signal trace of a single run. Return_PCT
// and Profit are only filled on rows that closed a trade.
func WriteTrace(w io.Writer, res *strategy.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return err
	}
	trades := res.Ledger.Trades
	next := 0
	for i, st := range res.Steps {
		ret, profit := "", ""
		if st.Signal == types.Sold && next < len(trades) {
			ret, profit = num(trades[next].ReturnPct), num(trades[next].Profit)
			next++
		}
		capital := res.Config.Capital
		if i < len(res.Ledger.Capital) {
			capital = res.Ledger.Capital[i]
		}
		rec := []string{
			st.Row.Bar.Time.UTC().Format(time.RFC3339),
			num(st.Row.Close()),
			num(st.Row.FastMA),
			num(st.Row.SlowMA),
			num(st.Row.RSI),
			st.Signal.String(),
			ret,
			profit,
			num(capital),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveGrid writes the grid table into dir and returns the file path.
func SaveGrid(dir string, day time.Time, table *optimizer.Table) (string, error) {
	return save(dir, FileName(GridPrefix, table.Symbol, day), func(w io.Writer) error {
		return WriteGrid(w, table)
	})
}

// SaveTrace writes the trace of res into dir and returns the file path.
func SaveTrace(dir string, day time.Time, res *strategy.Result) (string, error) {
	return save(dir, FileName(TracePrefix, res.Symbol, day), func(w io.Writer) error {
		return WriteTrace(w, res)
	})
}

func save(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}

// WriteTable prints the top rows of a grid search as an aligned table.
// top <= 0 prints every row.
func WriteTable(w io.Writer, table *optimizer.Table, top int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "RANK\tSTOP%\tFAST\tSLOW\tNET PROFIT\tWIN RATIO\tTRADES\tSTATUS\t")
	for i, r := range table.Results {
		if top > 0 && i >= top {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%d\t%s\t\n",
			i+1, num(r.StopLossPct), r.FastWindow, r.SlowWindow,
			fixed(r.Metric, 4), fixed(r.WinRatio, 2), r.Trades, r.Status)
	}
	return tw.Flush()
}

func fixed(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
