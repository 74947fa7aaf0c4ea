package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // fill price; the backtest always fills at the bar close
	// meta
	Time    time.Time
	Comment string
}

// Bar is one OHLCV candle. Close drives every strategy decision.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Signal is the per-bar state emitted by the signal generator.
type Signal int

const (
	WaitingToBuy Signal = iota
	Bought
	Hold
	Sold
)

func (s Signal) String() string {
	switch s {
	case WaitingToBuy:
		return "Waiting to Buy"
	case Bought:
		return "Bought"
	case Hold:
		return "Hold"
	case Sold:
		return "Sold"
	default:
		return "Unknown"
	}
}

// CloneBars returns an independent copy of bars.
func CloneBars(bars []Bar) []Bar {
	if bars == nil {
		return nil
	}
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out
}
