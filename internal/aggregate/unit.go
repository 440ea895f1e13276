/**
 * @description
 * Bucket granularity for the price history.
 * A Unit decides how a snapshot timestamp is truncated into a group key.
 *
 * @dependencies
 * - standard "errors", "fmt", "time"
 */

package aggregate

import (
	"errors"
	"fmt"
	"time"
)

// Unit is the time-truncation resolution used to form buckets
type Unit string

const (
	Minute    Unit = "minute"
	TenMinute Unit = "tenMinute"
	Hour      Unit = "hour"
	Day       Unit = "day"
	Month     Unit = "month"
)

// ErrUnknownUnit is returned by ParseUnit for values outside the known set
var ErrUnknownUnit = errors.New("unknown bucket unit")

// Units lists every unit in the order the history page shows its buttons
var Units = []Unit{Minute, TenMinute, Hour, Day, Month}

var unitLabels = map[Unit]string{
	Minute:    "분당",
	TenMinute: "10분당",
	Hour:      "시간당",
	Day:       "일당",
	Month:     "월당",
}

// ParseUnit validates a raw query value
func ParseUnit(raw string) (Unit, error) {
	u := Unit(raw)
	if _, ok := unitLabels[u]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, raw)
	}
	return u, nil
}

// Label returns the Korean button label for the unit
func (u Unit) Label() string {
	return unitLabels[u]
}

func (u Unit) String() string {
	return string(u)
}

// FormatGroupKey truncates t to the unit and renders it as a group key.
// t is expected to be in the display location already.
//
//	minute    -> 2006-01-02 15:04
//	tenMinute -> 2006-01-02 15:M0
//	hour      -> 2006-01-02 15
//	day       -> 2006-01-02
//	month     -> 2006-01
func FormatGroupKey(t time.Time, unit Unit) string {
	switch unit {
	case Minute:
		return t.Format("2006-01-02 15:04")
	case TenMinute:
		return fmt.Sprintf("%s:%02d", t.Format("2006-01-02 15"), (t.Minute()/10)*10)
	case Hour:
		return t.Format("2006-01-02 15")
	case Day:
		return t.Format("2006-01-02")
	case Month:
		return t.Format("2006-01")
	default:
		return ""
	}
}
