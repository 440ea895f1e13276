package views

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sol-erda/tracker/internal/aggregate"
)

// NotAvailable is shown wherever a statistic cannot be computed
const NotAvailable = "N/A"

const mesoSuffix = " 메소"

// Price formats a meso amount with thousands separators
func Price(v int64) string {
	return humanize.Comma(v)
}

// Meso formats a meso amount followed by the unit
func Meso(v int64) string {
	return Price(v) + mesoSuffix
}

// StatText renders one statistic of s, or N/A for an empty bucket
func StatText(s aggregate.Stats, field string, withUnit bool) string {
	if s.Empty {
		return NotAvailable
	}

	var v int64
	switch field {
	case "min":
		v = s.Min
	case "max":
		v = s.Max
	case "avg":
		v = s.Average
	case "spread":
		v = s.Spread
	default:
		return NotAvailable
	}

	if withUnit {
		return Meso(v)
	}
	return Price(v)
}

// SpreadPercentText renders the spread as a percentage with one decimal
func SpreadPercentText(s aggregate.Stats) string {
	if s.Empty || s.SpreadPercent == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", *s.SpreadPercent)
}

// DateTime renders t the way Korean browsers print a local timestamp,
// e.g. "2024. 3. 5. 오후 1:47:00"
func DateTime(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%s %s %d:%02d:%02d", Date(t, loc), meridiem(t), hour12(t), t.Minute(), t.Second())
}

// Date renders the date part, e.g. "2024. 3. 5."
func Date(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%d. %d. %d.", t.Year(), int(t.Month()), t.Day())
}

func meridiem(t time.Time) string {
	if t.Hour() < 12 {
		return "오전"
	}
	return "오후"
}

func hour12(t time.Time) int {
	h := t.Hour() % 12
	if h == 0 {
		return 12
	}
	return h
}
