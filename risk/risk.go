package risk

// StopLossPrice is the price floor of a long position opened at entry.
// pct is expressed in percent, so 5 means 5 % below the entry price.
func StopLossPrice(entry, pct float64) float64 {
	return entry * (1 - pct/100)
}

// ReturnPct is the fractional return of a long round trip.
func ReturnPct(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	return (exit - entry) / entry
}

// FullyInvestedQty is the quantity bought when the whole capital is put
// into one position at price. No lot rounding is applied.
func FullyInvestedQty(capital, price float64) float64 {
	if price <= 0 || capital <= 0 {
		return 0
	}
	return capital / price
}
