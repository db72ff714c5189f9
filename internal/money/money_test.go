package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCurrencyHalfUp(t *testing.T) {
	assert.True(t, Currency(dec("1.005"), 2).Equal(dec("1.01")))
	assert.True(t, Currency(dec("1.004"), 2).Equal(dec("1.00")))
	assert.True(t, Currency(dec("-1.005"), 2).Equal(dec("-1.01")))
	assert.True(t, Currency(dec("114.5"), 0).Equal(dec("115")))
}

func TestStepEncodeDecode(t *testing.T) {
	cases := []struct {
		encoded string
		places  int32
		base    int32
		size    string
	}{
		{"0", 0, 0, "0"},
		{"1.1", 1, 1, "0.1"},
		{"2.1", 2, 1, "0.01"},
		{"1.5", 1, 5, "0.5"},
	}
	for _, c := range cases {
		s := DecodeStep(dec(c.encoded))
		assert.Equal(t, c.places, s.Places, c.encoded)
		assert.Equal(t, c.base, s.Base, c.encoded)
		assert.True(t, s.Size().Equal(dec(c.size)), c.encoded)
		assert.True(t, s.Encode().Equal(dec(c.encoded)), c.encoded)
	}
}

// Rounding to a 0.5 step: 114.30 snaps up to 114.50, 114.20 down to 114.00.
func TestRoundToHalfStep(t *testing.T) {
	step := Step{Places: 1, Base: 5}
	assert.True(t, RoundToStep(dec("114.30"), step).Equal(dec("114.5")))
	assert.True(t, RoundToStep(dec("114.20"), step).Equal(dec("114.0")))
	assert.True(t, RoundToStep(dec("114.25"), step).Equal(dec("114.5")))
}

func TestRoundToStepWholeUnits(t *testing.T) {
	step := Step{Places: 0, Base: 0}
	assert.True(t, RoundToStep(dec("115.00"), step).Equal(dec("115")))
	assert.True(t, RoundToStep(dec("114.49"), step).Equal(dec("114")))
}

func TestEffectiveRate(t *testing.T) {
	// 200 * 1.12 * 0.90 = 201.60
	got := EffectiveRate(dec("200"), dec("12"), dec("10"))
	assert.True(t, got.Equal(dec("201.60")), got.String())

	// vat=0, discount=0 leaves the base rate untouched.
	assert.True(t, EffectiveRate(dec("123.45"), Zero, Zero).Equal(dec("123.45")))
}

func TestFromCell(t *testing.T) {
	assert.True(t, FromCell("").IsZero())
	assert.True(t, FromCell("n/a").IsZero())
	assert.True(t, FromCell(" 1,234.50 ").Equal(dec("1234.50")))
}
