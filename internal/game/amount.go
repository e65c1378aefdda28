package game

import "github.com/GriffinCanCode/crumbot/internal/numparse"

// Amount is a number that may not have been observed.
type Amount struct {
	Value float64 `json:"value"`
	Known bool    `json:"known"`
}

// Of wraps an observed value.
func Of(v float64) Amount { return Amount{Value: v, Known: true} }

// Unknown is the absent amount.
var Unknown = Amount{}

// Observed returns Of(v) for positive v, otherwise Unknown. OCR reads of
// zero or less are treated as misses.
func Observed(v float64) Amount {
	if v > 0 {
		return Of(v)
	}
	return Unknown
}

// Positive reports whether the amount is known and above zero.
func (a Amount) Positive() bool { return a.Known && a.Value > 0 }

func (a Amount) String() string {
	if !a.Known {
		return "?"
	}
	return numparse.Format(a.Value)
}
