package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Rule presets understood by the signal package.
const (
	RulesCrossover = "crossover"
	RulesPrice     = "price"
	RulesRSI       = "rsi"
)

// StrategyConfig holds all tunable parameters of one backtest run.
type StrategyConfig struct {
	// Capital is the starting amount, fully reinvested trade to trade.
	Capital float64

	// Moving-average windows in bars. Fast < Slow is customary but not required.
	FastWindow int // default 20
	SlowWindow int // default 50

	// StopLossPct is in percent of the entry price, e.g. 5 = 5 %.
	StopLossPct float64 // default 5

	// Rules names the entry/exit predicate preset.
	Rules string // default "price"

	// RSI filter, only consulted by the "rsi" preset.
	RSIWindow     int     // default 14
	RSIOversold   float64 // default 30
	RSIOverbought float64 // default 70
}

// DefaultStrategyConfig returns the documented defaults.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Capital:       100,
		FastWindow:    20,
		SlowWindow:    50,
		StopLossPct:   5,
		Rules:         RulesPrice,
		RSIWindow:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
	}
}

// Validate checks that all numeric fields are within sensible bounds.
// It returns the first encountered error.
func (c *StrategyConfig) Validate() error {
	if !(c.Capital > 0) || math.IsInf(c.Capital, 0) {
		return fmt.Errorf("Capital (%f) must be a positive finite amount", c.Capital)
	}
	if c.FastWindow <= 0 {
		return errors.New("FastWindow must be positive")
	}
	if c.SlowWindow <= 0 {
		return errors.New("SlowWindow must be positive")
	}
	if c.StopLossPct < 0 || c.StopLossPct > 100 || math.IsNaN(c.StopLossPct) {
		return fmt.Errorf("StopLossPct (%f) must be between 0 and 100", c.StopLossPct)
	}
	switch c.Rules {
	case RulesCrossover, RulesPrice:
	case RulesRSI:
		if c.RSIWindow <= 0 {
			return errors.New("RSIWindow must be positive")
		}
		if c.RSIOverbought <= c.RSIOversold {
			return errors.New("RSIOverbought must be greater than RSIOversold")
		}
		if c.RSIOversold < 0 || c.RSIOverbought > 100 {
			return fmt.Errorf("RSI bands (%f, %f) must lie within [0, 100]", c.RSIOversold, c.RSIOverbought)
		}
	default:
		return fmt.Errorf("unknown Rules preset %q", c.Rules)
	}
	return nil
}

// GridConfig lists the candidate values of every searched axis. The grid
// is the full Cartesian product, enumerated stop-loss → fast → slow with
// the slow window varying fastest.
type GridConfig struct {
	StopLossPct []float64
	FastWindow  []int
	SlowWindow  []int
}

// DefaultGrid is the search space used when none is configured.
func DefaultGrid() GridConfig {
	return GridConfig{
		StopLossPct: []float64{1, 3, 5, 10},
		FastWindow:  []int{4, 5, 8, 12},
		SlowWindow:  []int{18, 21, 30, 35, 40},
	}
}

// Size is the number of grid points.
func (g *GridConfig) Size() int {
	return len(g.StopLossPct) * len(g.FastWindow) * len(g.SlowWindow)
}

// Validate rejects empty axes, out-of-range values and repeated values,
// which would yield duplicate parameter tuples.
func (g *GridConfig) Validate() error {
	if len(g.StopLossPct) == 0 || len(g.FastWindow) == 0 || len(g.SlowWindow) == 0 {
		return errors.New("every grid axis needs at least one value")
	}
	if d := lo.FindDuplicates(g.StopLossPct); len(d) > 0 {
		return fmt.Errorf("duplicate StopLossPct values %v", d)
	}
	if d := lo.FindDuplicates(g.FastWindow); len(d) > 0 {
		return fmt.Errorf("duplicate FastWindow values %v", d)
	}
	if d := lo.FindDuplicates(g.SlowWindow); len(d) > 0 {
		return fmt.Errorf("duplicate SlowWindow values %v", d)
	}
	for _, v := range g.StopLossPct {
		if v < 0 || v > 100 || math.IsNaN(v) {
			return fmt.Errorf("StopLossPct value %f out of range", v)
		}
	}
	for _, v := range append(append([]int(nil), g.FastWindow...), g.SlowWindow...) {
		if v <= 0 {
			return fmt.Errorf("window value %d must be positive", v)
		}
	}
	return nil
}
