// Package money provides the fixed-point decimal helpers used throughout
// the estimation core. All monetary arithmetic is done on
// shopspring/decimal values; rounding is half-away-from-zero and the
// default display scale is 2.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the default scale for monetary display values.
const DisplayPlaces = 2

var (
	// Zero is the decimal zero, for readability at call sites.
	Zero = decimal.Zero

	// One is the decimal one.
	One = decimal.NewFromInt(1)

	hundred = decimal.NewFromInt(100)
)

// Currency rounds x half-away-from-zero to the given number of decimal
// places.
func Currency(x decimal.Decimal, places int32) decimal.Decimal {
	return x.Round(places)
}

// Round2 rounds x to the default display scale.
func Round2(x decimal.Decimal) decimal.Decimal {
	return Currency(x, DisplayPlaces)
}

// Step is a fractional rounding step. The step size is
// Base * 10^(-Places); a zero Base means "round to Places decimal
// places" with no fractional step.
//
// On disk a step is a single numeric field holding Places + Base/10
// (e.g. 1.5 for the 0.5 step, 2.1 for 0.01, plain 0 for whole units).
// DecodeStep and Encode convert between the two forms.
type Step struct {
	Places int32
	Base   int32
}

// DecodeStep splits the persisted numeric form into a Step. The integer
// part is the number of decimal places, the first fractional digit the
// step base.
func DecodeStep(v decimal.Decimal) Step {
	places := v.IntPart()
	frac := v.Sub(decimal.NewFromInt(places)).Abs()
	base := frac.Mul(decimal.NewFromInt(10)).IntPart()
	return Step{Places: int32(places), Base: int32(base)}
}

// Encode returns the single-numeric persisted form of the step.
func (s Step) Encode() decimal.Decimal {
	return decimal.NewFromInt(int64(s.Places)).
		Add(decimal.New(int64(s.Base), -1))
}

// Size returns the step size Base * 10^(-Places), or zero when the step
// has no fractional base.
func (s Step) Size() decimal.Decimal {
	if s.Base == 0 {
		return decimal.Zero
	}
	return decimal.New(int64(s.Base), -s.Places)
}

// RoundToStep rounds x to the nearest multiple of the step, then to the
// step's decimal-place scale. With a zero base it is a plain Currency
// rounding to s.Places.
func RoundToStep(x decimal.Decimal, s Step) decimal.Decimal {
	size := s.Size()
	if size.IsZero() {
		return Currency(x, s.Places)
	}
	n := x.Div(size).Round(0)
	return Currency(n.Mul(size), s.Places)
}

// EffectiveRate applies percentage vat and discount to a base rate and
// rounds to the display scale:
//
//	round2(rate * (1 + vat/100) * (1 - discount/100))
func EffectiveRate(rate, vat, discount decimal.Decimal) decimal.Decimal {
	r := rate.
		Mul(One.Add(vat.Div(hundred))).
		Mul(One.Sub(discount.Div(hundred)))
	return Round2(r)
}

// FromCell parses a spreadsheet cell into a decimal. Empty or
// unparseable cells coerce to zero, matching the import layer's
// numeric-cell contract.
func FromCell(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
