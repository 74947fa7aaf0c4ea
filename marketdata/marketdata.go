// Package marketdata supplies bar series to the backtester.
package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/evdnx/gomr/types"
)

// ErrDataUnavailable is returned when a provider has no bars for a query.
var ErrDataUnavailable = errors.New("market data unavailable")

// Query selects a bar series. Either Limit (most recent N bars) or a
// Start/End range may be given; a zero End means "up to now".
type Query struct {
	Symbol   string
	Interval string
	Limit    int
	Start    time.Time
	End      time.Time
}

// Provider returns bars ordered by time, oldest first.
type Provider interface {
	Bars(ctx context.Context, q Query) ([]types.Bar, error)
}

// Static serves a fixed in-memory series, whatever the symbol.
type Static struct {
	series []types.Bar
}

func NewStatic(bars []types.Bar) *Static {
	return &Static{series: types.CloneBars(bars)}
}

func (s *Static) Bars(ctx context.Context, q Query) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := selectRange(s.series, q)
	if len(out) == 0 {
		return nil, ErrDataUnavailable
	}
	return out, nil
}

// selectRange applies the Start/End bounds and then keeps the last Limit
// bars. The result never aliases bars.
func selectRange(bars []types.Bar, q Query) []types.Bar {
	out := lo.Filter(bars, func(b types.Bar, _ int) bool {
		if !q.Start.IsZero() && b.Time.Before(q.Start) {
			return false
		}
		if !q.End.IsZero() && b.Time.After(q.End) {
			return false
		}
		return true
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}
