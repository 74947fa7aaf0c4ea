// Package indicator derives moving averages and RSI from a bar series.
package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/evdnx/goti"

	"github.com/evdnx/gomr/types"
)

var (
	// ErrInvalidBar marks a bar whose close cannot be used for averaging.
	ErrInvalidBar = errors.New("invalid bar")
	// ErrInsufficientHistory means the series is shorter than the slow window.
	ErrInsufficientHistory = errors.New("insufficient history for slow window")
)

// Params selects the windows computed by Compute.
type Params struct {
	FastWindow int
	SlowWindow int

	WithRSI       bool
	RSIWindow     int
	RSIOversold   float64
	RSIOverbought float64
}

func (p Params) validate() error {
	if p.FastWindow <= 0 || p.SlowWindow <= 0 {
		return fmt.Errorf("windows must be positive (fast=%d slow=%d)", p.FastWindow, p.SlowWindow)
	}
	if p.WithRSI {
		if p.RSIWindow <= 0 {
			return fmt.Errorf("rsi window must be positive, got %d", p.RSIWindow)
		}
		if p.RSIOverbought <= p.RSIOversold {
			return errors.New("rsi overbought must be greater than oversold")
		}
	}
	return nil
}

// Row is a bar that survived the warm-up drop, with its indicator values.
// FastMA is NaN only while a fast window longer than the slow one is still
// filling. RSI is NaN when disabled or warming up.
type Row struct {
	Index  int
	Bar    types.Bar
	FastMA float64
	SlowMA float64
	RSI    float64
}

// Close is shorthand for r.Bar.Close.
func (r Row) Close() float64 { return r.Bar.Close }

// Compute returns one Row per bar whose slow average is defined, in input
// order and re-indexed from zero. A series shorter than the slow window
// yields an empty slice and no error. bars is not modified.
func Compute(bars []types.Bar, p Params) ([]Row, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return nil, fmt.Errorf("%w: bar %d has close %v", ErrInvalidBar, i, b.Close)
		}
	}

	var rsi *goti.RelativeStrengthIndex
	if p.WithRSI {
		cfg := goti.DefaultConfig()
		cfg.RSIOversold = p.RSIOversold
		cfg.RSIOverbought = p.RSIOverbought
		var err error
		if rsi, err = goti.NewRelativeStrengthIndexWithParams(p.RSIWindow, cfg); err != nil {
			return nil, fmt.Errorf("rsi: %w", err)
		}
	}

	n := len(bars) - p.SlowWindow + 1
	if n < 0 {
		n = 0
	}
	rows := make([]Row, 0, n)
	fast, slow := newWindow(p.FastWindow), newWindow(p.SlowWindow)
	for i, b := range bars {
		fast.Add(b.Close)
		slow.Add(b.Close)

		// RSI sees every bar, including the ones dropped below.
		rsiVal := math.NaN()
		if rsi != nil {
			if err := rsi.Add(b.Close); err != nil {
				return nil, fmt.Errorf("rsi at bar %d: %w", i, err)
			}
			if v, err := rsi.Calculate(); err == nil {
				rsiVal = v
			}
		}
		if !slow.Full() {
			continue
		}
		fastVal := math.NaN()
		if fast.Full() {
			fastVal = fast.Mean()
		}
		rows = append(rows, Row{
			Index:  len(rows),
			Bar:    b,
			FastMA: fastVal,
			SlowMA: slow.Mean(),
			RSI:    rsiVal,
		})
	}
	return rows, nil
}
