package evaluate

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundRating rounds a provider rating to the single decimal shown to players.
func RoundRating(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(1)
}

// HigherOrEqual reports whether the selected rating is at least the other one,
// both rounded to one decimal. Ties favour the selection.
func HigherOrEqual(selected, other float64) bool {
	return RoundRating(selected).GreaterThanOrEqual(RoundRating(other))
}

// EarlierOrSame reports whether the selected release date is not after the
// other one. Dates use the provider's YYYY-MM-DD layout; an unparsable
// selection is never correct, an unparsable other date always loses.
func EarlierOrSame(selected, other string) bool {
	s, err := time.Parse(time.DateOnly, selected)
	if err != nil {
		return false
	}
	o, err := time.Parse(time.DateOnly, other)
	if err != nil {
		return true
	}
	return !s.After(o)
}
