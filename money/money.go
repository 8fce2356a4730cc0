/*
Package money converts between display-formatted currency strings and the
integer minor-unit representation the store persists.

Currency is never stored as a float. The display layer works in strings
("1952.14"), the store works in minor units (195214), and this package is
the only place the two meet. Round-trip law: for any valid x >= 0,
ToStorage(FromStorage(x)) == x.

Parsing uses shopspring/decimal so "0.1"-style inputs never pick up binary
float error before truncation.
*/
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseError reports a display string that is not a decimal number.
// Validation upstream should catch these before the codec; the codec
// still refuses to coerce garbage to zero.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("not a currency amount: %q", e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ToStorage parses a decimal display string and returns minor units.
// Digits beyond the second decimal place are truncated, not rounded.
func ToStorage(display string) (int64, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return 0, &ParseError{Input: display, Err: err}
	}
	return d.Mul(hundred).Truncate(0).IntPart(), nil
}

// FromStorage formats minor units as a fixed two-decimal display string.
func FromStorage(minorUnits int64) string {
	return decimal.NewFromInt(minorUnits).Div(hundred).StringFixed(2)
}
