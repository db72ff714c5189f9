package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// One group of a single 100-rate resource, 15% overhead, total, round
// to whole units.
func buildOverheadModel(t *testing.T) *Model {
	m := NewModel("A", "Test item", "m")
	m.SetResource(&Resource{Code: "R", Description: "Cement", Unit: "bag", Rate: dec("100")})
	m.AppendGroup("MATERIAL", "M")
	require.NoError(t, m.AppendLine("R", dec("1"), ""))
	m.AppendWeight("OH @ 15%", dec("0.15"))
	m.AppendSum("TOTAL")
	m.AppendRound("Say", dec("0"))
	return m
}

func TestEvaluateTwoStepRounding(t *testing.T) {
	m := buildOverheadModel(t)
	require.NoError(t, m.Evaluate())
	require.Len(t, m.Results, 4)

	group := m.Results[0]
	require.Len(t, group.Lines, 1)
	assert.True(t, group.Lines[0].Rate.Equal(dec("100.00")))
	assert.True(t, group.Lines[0].Amount.Equal(dec("100.00")))
	assert.True(t, group.Value.Equal(dec("100.00")))

	assert.True(t, m.Results[1].Value.Equal(dec("15.00")))
	assert.True(t, m.Results[2].Value.Equal(dec("115.00")))
	assert.True(t, m.Results[3].Value.Equal(dec("115.00")))
	assert.True(t, m.AnaRate().Equal(dec("115.00")))
}

func TestEvaluateVatAndDiscount(t *testing.T) {
	m := NewModel("B", "Vat item", "m")
	m.SetResource(&Resource{
		Code: "R2", Description: "Steel", Unit: "kg",
		Rate: dec("200"), Vat: dec("12"), Discount: dec("10"),
	})
	m.AppendGroup("MATERIAL", "")
	require.NoError(t, m.AppendLine("R2", dec("2"), ""))
	require.NoError(t, m.Evaluate())

	group := m.Results[0]
	assert.True(t, group.Lines[0].Rate.Equal(dec("201.60")), group.Lines[0].Rate.String())
	assert.True(t, group.Lines[0].Amount.Equal(dec("403.20")))
	assert.True(t, group.Value.Equal(dec("403.20")))
	assert.True(t, m.AnaRate().Equal(dec("403.20")))
}

// A fractional 0.5 step (encoded 1.5) snaps 114.30 up and 114.20 down.
func TestEvaluateFractionalRound(t *testing.T) {
	for _, c := range []struct{ rate, want string }{
		{"114.30", "114.50"},
		{"114.20", "114.00"},
	} {
		m := NewModel("C", "Round item", "m")
		m.SetResource(&Resource{Code: "R", Rate: dec(c.rate)})
		m.AppendGroup("MATERIAL", "")
		require.NoError(t, m.AppendLine("R", dec("1"), ""))
		m.AppendRound("Say", dec("1.5"))
		require.NoError(t, m.Evaluate())
		assert.True(t, m.AnaRate().Equal(dec(c.want)),
			"%s -> %s, want %s", c.rate, m.AnaRate(), c.want)
	}
}

func TestTimesReplacesTotals(t *testing.T) {
	m := NewModel("D", "Times item", "cum")
	m.SetResource(&Resource{Code: "R", Rate: dec("100")})
	m.AppendGroup("MATERIAL", "")
	require.NoError(t, m.AppendLine("R", dec("1"), ""))
	m.AppendSum("TOTAL")
	m.AppendTimes("Rate per 0.5 cum", dec("0.5"))
	m.AppendWeight("Add @ 10%", dec("0.10"))
	m.AppendSum("RATE")
	require.NoError(t, m.Evaluate())

	// times: 100*0.5=50 replaces both totals; weight: 50*0.10=5 added.
	assert.True(t, m.Results[2].Value.Equal(dec("50.00")))
	assert.True(t, m.Results[3].Value.Equal(dec("5.00")))
	assert.True(t, m.AnaRate().Equal(dec("55.00")))
}

func TestEvaluateDeterministic(t *testing.T) {
	m := buildOverheadModel(t)
	require.NoError(t, m.Evaluate())
	first := m.AnaRate()
	require.NoError(t, m.Evaluate())
	assert.True(t, first.Equal(m.AnaRate()))
	assert.Len(t, m.Results, 4)
}

func TestEvaluateMissingResource(t *testing.T) {
	m := NewModel("E", "Broken", "m")
	m.SetResource(&Resource{Code: "R", Rate: dec("10")})
	m.AppendGroup("MATERIAL", "")
	require.NoError(t, m.AppendLine("R", dec("1"), ""))
	delete(m.Resources, "R")

	err := m.Evaluate()
	var notFound ErrResourceNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "R", notFound.Code)
}

func TestTimesFactorDefaultsToOne(t *testing.T) {
	m := buildOverheadModel(t)
	assert.True(t, m.TimesFactor().Equal(dec("1")))
	m.AppendTimes("Rate per 10 sqm", dec("0.1"))
	assert.True(t, m.TimesFactor().Equal(dec("0.1")))
}

func TestDeleteStepPaths(t *testing.T) {
	m := buildOverheadModel(t)
	require.NoError(t, m.DeleteStep([]int{0, 0}))
	assert.Empty(t, m.Steps[0].Lines)
	require.NoError(t, m.DeleteStep([]int{0}))
	assert.Len(t, m.Steps, 3)
	assert.Error(t, m.DeleteStep([]int{9}))
	assert.Error(t, m.DeleteStep(nil))
}

func TestStepDeepCopyIsIndependent(t *testing.T) {
	m := buildOverheadModel(t)
	s, err := m.StepDeep(0)
	require.NoError(t, err)
	require.Len(t, s.Lines, 1)
	s.Lines[0].Qty = dec("99")
	assert.True(t, m.Steps[0].Lines[0].Qty.Equal(dec("1")))
}

func TestModelCopy(t *testing.T) {
	m := buildOverheadModel(t)
	cp := m.Copy()
	cp.Steps[0].Lines[0].Qty = dec("5")
	cp.Resources["R"].Rate = dec("1")
	assert.True(t, m.Steps[0].Lines[0].Qty.Equal(dec("1")))
	assert.True(t, m.Resources["R"].Rate.Equal(dec("100")))
}
