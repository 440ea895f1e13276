package aggregate

import "math"

// Stats summarises a list of price samples. All fields are zero when Empty is set.
type Stats struct {
	Count   int   `json:"count"`
	Min     int64 `json:"min"`
	Max     int64 `json:"max"`
	Average int64 `json:"average"`
	Spread  int64 `json:"spread"`
	// SpreadPercent is (max-min)/min*100; nil when there are no items or min is 0
	SpreadPercent *float64 `json:"spread_percent"`
	Empty         bool     `json:"empty"`
}

// Compute derives min, max, rounded average and spread from items
func Compute(items []int64) Stats {
	if len(items) == 0 {
		return Stats{Empty: true}
	}

	lo, hi := items[0], items[0]
	var sum int64
	for _, v := range items {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}

	s := Stats{
		Count:   len(items),
		Min:     lo,
		Max:     hi,
		Average: roundHalfUp(float64(sum) / float64(len(items))),
		Spread:  hi - lo,
	}
	if lo != 0 {
		pct := float64(hi-lo) / float64(lo) * 100
		s.SpreadPercent = &pct
	}
	return s
}

// roundHalfUp matches the browser's rounding: .5 goes towards +Inf
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
