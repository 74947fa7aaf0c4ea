// Command gomr backtests the moving-average crossover strategy on exchange
// or CSV data and searches parameter grids.
//
//	gomr run      -symbol BTCUSDT -interval 1d -fast 20 -slow 50 -stop 5
//	gomr grid     -symbol BTCUSDT -interval 1d -workers 4
//	gomr download -symbol BTCUSDT -interval 1h -start 2024-01-01
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/evdnx/gomr"
	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/executor"
	"github.com/evdnx/gomr/logger"
	"github.com/evdnx/gomr/marketdata"
	"github.com/evdnx/gomr/optimizer"
	"github.com/evdnx/gomr/report"
	"github.com/evdnx/gomr/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

const usage = "usage: gomr <run|grid|download> [flags]"

// usageError marks a malformed command line. The flag package has already
// printed the details.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return usageError{err: err}
}

// common holds the flags shared by every sub-command.
type common struct {
	symbol, interval string
	limit            int
	start, end       string
	csvPath          string
	envFile          string
	outDir           string
	jsonLogs         bool
	metricsFile      string
	logOut           io.Writer
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.symbol, "symbol", "BTCUSDT", "trading pair")
	fs.StringVar(&c.interval, "interval", "1d", "kline interval")
	fs.IntVar(&c.limit, "limit", 0, "number of most recent bars, ignored with -start (0: the whole CSV file, 500 from the exchange)")
	fs.StringVar(&c.start, "start", "", "range start, YYYY-MM-DD")
	fs.StringVar(&c.end, "end", "", "range end, YYYY-MM-DD")
	fs.StringVar(&c.csvPath, "csv", "", "read bars from this CSV file instead of the exchange")
	fs.StringVar(&c.envFile, "env", ".env", "dotenv file with API_KEY / API_SECRET")
	fs.StringVar(&c.outDir, "out", "", "directory for CSV exports (empty: no export)")
	fs.BoolVar(&c.jsonLogs, "json", false, "log as JSON")
	fs.StringVar(&c.metricsFile, "metrics", "", "write prometheus metrics to this textfile on exit")
}

func (c *common) query() (marketdata.Query, error) {
	q := marketdata.Query{Symbol: c.symbol, Interval: c.interval, Limit: c.limit}
	var err error
	if c.start != "" {
		if q.Start, err = time.Parse("2006-01-02", c.start); err != nil {
			return q, fmt.Errorf("-start: %w", err)
		}
		q.Limit = 0
	}
	if c.end != "" {
		if q.End, err = time.Parse("2006-01-02", c.end); err != nil {
			return q, fmt.Errorf("-end: %w", err)
		}
	}
	return q, nil
}

func (c *common) provider(env config.Env, log logger.Logger) marketdata.Provider {
	if c.csvPath != "" {
		return marketdata.CSVFile{Path: c.csvPath}
	}
	return marketdata.NewBinance(env, log)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "run":
		err = runSingle(ctx, args[1:], stdout, stderr)
	case "grid":
		err = runGrid(ctx, args[1:], stdout, stderr)
	case "download":
		err = runDownload(ctx, args[1:], stdout, stderr)
	default:
		fmt.Fprintln(stderr, usage)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "gomr:", err)
		return 1
	}
	return 0
}

// setup loads the environment once and builds the logger and bar source.
func setup(c *common) (config.Env, logger.Logger, func(), error) {
	env, err := config.LoadEnv(c.envFile)
	if err != nil {
		return env, nil, nil, err
	}
	log, closer, err := logger.New(logger.Options{Level: env.LogLevel, JSON: c.jsonLogs, Writer: c.logOut, File: env.LogFile})
	if err != nil {
		return env, nil, nil, err
	}
	done := func() {
		if c.metricsFile != "" {
			if err := prometheus.WriteToTextfile(c.metricsFile, prometheus.DefaultGatherer); err != nil {
				log.Error("metrics_write_failed", logger.String("file", c.metricsFile), logger.Err(err))
			}
		}
		_ = closer.Close()
	}
	return env, log, done, nil
}

func loadBars(ctx context.Context, c *common, env config.Env, log logger.Logger) ([]types.Bar, error) {
	q, err := c.query()
	if err != nil {
		return nil, err
	}
	return c.provider(env, log).Bars(ctx, q)
}

func runSingle(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := common{logOut: stderr}
	c.register(fs)
	cfg := config.DefaultStrategyConfig()
	fs.Float64Var(&cfg.Capital, "capital", cfg.Capital, "starting capital")
	fs.IntVar(&cfg.FastWindow, "fast", cfg.FastWindow, "fast moving-average window")
	fs.IntVar(&cfg.SlowWindow, "slow", cfg.SlowWindow, "slow moving-average window")
	fs.Float64Var(&cfg.StopLossPct, "stop", cfg.StopLossPct, "stop-loss in percent of the entry price")
	fs.StringVar(&cfg.Rules, "rules", cfg.Rules, "rule preset: crossover, price or rsi")
	fs.IntVar(&cfg.RSIWindow, "rsi-window", cfg.RSIWindow, "RSI window (rsi preset)")
	fs.Float64Var(&cfg.RSIOversold, "rsi-low", cfg.RSIOversold, "RSI oversold band (rsi preset)")
	fs.Float64Var(&cfg.RSIOverbought, "rsi-high", cfg.RSIOverbought, "RSI overbought band (rsi preset)")
	paper := fs.Bool("paper", false, "replay the trades through the paper executor")
	if err := parse(fs, args); err != nil {
		return err
	}

	env, log, done, err := setup(&c)
	if err != nil {
		return err
	}
	defer done()

	var exec executor.Executor
	if *paper {
		exec = executor.NewPaperExecutor(cfg.Capital, log)
	}
	q, err := c.query()
	if err != nil {
		return err
	}
	res, err := gomr.Backtest(ctx, c.provider(env, log), q, cfg, exec, log)
	if err != nil {
		return err
	}
	s := res.Summary()
	fmt.Fprintf(stdout, "%s %s fast=%d slow=%d stop=%v%% rules=%s bars=%d\n",
		c.symbol, c.interval, cfg.FastWindow, cfg.SlowWindow, cfg.StopLossPct, res.Rules, res.Bars)
	if err := s.Err(); err != nil {
		fmt.Fprintf(stdout, "net profit: %s  win ratio: %s  (%v)\n", report.NA, report.NA, err)
	} else {
		fmt.Fprintf(stdout, "net profit: %.4f  win ratio: %.2f  trades: %d  final capital: %.4f\n",
			s.NetProfit, s.WinRatio, s.TradesClosed, s.FinalCapital)
	}
	if s.Open != nil {
		fmt.Fprintf(stdout, "open position since %s at %.4f\n", s.Open.EntryTime.Format(time.RFC3339), s.Open.EntryPrice)
	}
	if exec != nil {
		fmt.Fprintf(stdout, "paper cash: %.4f  equity at entry prices: %.4f\n",
			exec.Equity(), executor.EquityAtCost(exec, c.symbol))
	}
	if c.outDir != "" {
		path, err := report.SaveTrace(c.outDir, time.Now(), res)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, "trace written to", path)
	}
	return nil
}

func runGrid(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("grid", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := common{logOut: stderr}
	c.register(fs)
	cfg := config.DefaultStrategyConfig()
	fs.Float64Var(&cfg.Capital, "capital", cfg.Capital, "starting capital")
	fs.StringVar(&cfg.Rules, "rules", cfg.Rules, "rule preset: crossover, price or rsi")
	def := config.DefaultGrid()
	stops := fs.String("stops", joinFloats(def.StopLossPct), "comma separated stop-loss percents")
	fasts := fs.String("fasts", joinInts(def.FastWindow), "comma separated fast windows")
	slows := fs.String("slows", joinInts(def.SlowWindow), "comma separated slow windows")
	workers := fs.Int("workers", 1, "grid points evaluated concurrently")
	top := fs.Int("top", 10, "rows shown in the console table (0 = all)")
	if err := parse(fs, args); err != nil {
		return err
	}

	var grid config.GridConfig
	var err error
	if grid.StopLossPct, err = parseFloats(*stops); err != nil {
		return fmt.Errorf("-stops: %w", err)
	}
	if grid.FastWindow, err = parseInts(*fasts); err != nil {
		return fmt.Errorf("-fasts: %w", err)
	}
	if grid.SlowWindow, err = parseInts(*slows); err != nil {
		return fmt.Errorf("-slows: %w", err)
	}

	env, log, done, err := setup(&c)
	if err != nil {
		return err
	}
	defer done()

	q, err := c.query()
	if err != nil {
		return err
	}
	table, err := gomr.Search(ctx, c.provider(env, log), q, cfg, grid, log, optimizer.WithWorkers(*workers))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "grid %s: %d points over %d bars in %s\n", table.RunID, len(table.Results), table.Bars, table.Duration.Round(time.Millisecond))
	if err := report.WriteTable(stdout, table, *top); err != nil {
		return err
	}
	if c.outDir != "" {
		path, err := report.SaveGrid(c.outDir, time.Now(), table)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, "grid written to", path)
	}
	return nil
}

func runDownload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := common{logOut: stderr}
	c.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if c.outDir == "" {
		c.outDir = "."
	}
	env, log, done, err := setup(&c)
	if err != nil {
		return err
	}
	defer done()

	bars, err := loadBars(ctx, &c, env, log)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(c.outDir, fmt.Sprintf("%s_%s_%s.csv", c.symbol, c.interval, time.Now().Format("2006-01-02")))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := marketdata.WriteCSV(f, bars); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d bars written to %s\n", len(bars), path)
	return nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func joinInts(vs []int) string {
	return strings.Join(lo.Map(vs, func(v int, _ int) string { return strconv.Itoa(v) }), ",")
}

func joinFloats(vs []float64) string {
	return strings.Join(lo.Map(vs, func(v float64, _ int) string { return strconv.FormatFloat(v, 'f', -1, 64) }), ",")
}
