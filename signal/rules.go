package signal

import (
	"fmt"

	"github.com/evdnx/gomr/config"
)

// Rules is a capability set: the entry predicates checked while flat and
// the exit predicates checked while a position is open. Any single
// predicate holding is enough.
type Rules struct {
	Name       string
	Entry      []Predicate
	Exit       []Predicate
	Oversold   float64
	Overbought float64
}

// NeedsRSI reports whether any predicate reads the RSI column.
func (r Rules) NeedsRSI() bool {
	for _, p := range append(append([]Predicate(nil), r.Entry...), r.Exit...) {
		if p.Name == RSIOversold.Name || p.Name == RSIOverbought.Name {
			return true
		}
	}
	return false
}

// Preset returns one of the built-in rule sets with RSI bands 30/70.
func Preset(name string) (Rules, error) {
	r := Rules{Name: name, Oversold: 30, Overbought: 70}
	switch name {
	case config.RulesCrossover:
		r.Entry = []Predicate{GoldenCross}
		r.Exit = []Predicate{DeathCross, StopLoss}
	case config.RulesPrice, "":
		r.Name = config.RulesPrice
		r.Entry = []Predicate{GoldenCross, PriceAboveFast}
		r.Exit = []Predicate{DeathCross, PriceBelowFast, StopLoss}
	case config.RulesRSI:
		r.Entry = []Predicate{GoldenCross, RSIOversold}
		r.Exit = []Predicate{DeathCross, StopLoss, RSIOverbought}
	default:
		return Rules{}, fmt.Errorf("unknown rules preset %q", name)
	}
	return r, nil
}

// FromConfig resolves the preset named by cfg and applies its RSI bands.
func FromConfig(cfg config.StrategyConfig) (Rules, error) {
	r, err := Preset(cfg.Rules)
	if err != nil {
		return Rules{}, err
	}
	if cfg.RSIOverbought > cfg.RSIOversold {
		r.Oversold, r.Overbought = cfg.RSIOversold, cfg.RSIOverbought
	}
	return r, nil
}
