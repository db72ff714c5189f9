package parse

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(code, desc, unit, qty, rate, amount string) Row {
	r := Row{Code: code, Description: desc, Unit: unit}
	if qty != "" {
		r.Qty = dec(qty)
	}
	if rate != "" {
		r.Rate = dec(rate)
	}
	if amount != "" {
		r.Amount = dec(amount)
	}
	return r
}

func TestParseScheduleMultilineChild(t *testing.T) {
	rows := []Row{
		row("1", "Parent", "", "", "", ""),
		row("", "continuation", "", "", "", ""),
		row("1.1", "Child A", "m", "2", "100", "200"),
	}
	res := ParseSchedule(rows)
	require.Len(t, res.Items, 2)
	assert.Empty(t, res.Warnings)

	parent := res.Items[0]
	assert.Equal(t, "1", parent.Code)
	assert.Equal(t, "Parent\ncontinuation", parent.Description)
	assert.True(t, parent.IsHeader())

	child := res.Items[1]
	assert.Equal(t, "1.1", child.Code)
	assert.Equal(t, "1", child.Parent)
	assert.Equal(t, "m", child.Unit)
	assert.True(t, dec("2").Equal(child.Qty))
}

func TestParseScheduleCategories(t *testing.T) {
	rows := []Row{
		row("", "EARTHWORK", "", "", "", ""),
		row("1", "Excavation", "cum", "10", "50", "500"),
		row("", "CONCRETE", "", "", "", ""),
		row("2", "PCC 1:4:8", "cum", "5", "4000", "20000"),
	}
	res := ParseSchedule(rows)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "EARTHWORK", res.Items[0].Category)
	assert.Equal(t, "CONCRETE", res.Items[1].Category)
	// Category boundary closes any open parent.
	assert.Empty(t, res.Items[1].Parent)
}

func TestParseScheduleParentStack(t *testing.T) {
	rows := []Row{
		row("1", "Head", "", "", "", ""),
		row("1.1", "Sub head", "", "", "", ""),
		row("1.1.1", "Leaf", "m", "1", "10", "10"),
		row("1.2", "Back up a level", "m", "1", "10", "10"),
		row("2", "Sibling head", "", "", "", ""),
	}
	res := ParseSchedule(rows)
	require.Len(t, res.Items, 5)
	assert.Equal(t, "1", res.Items[1].Parent)
	assert.Equal(t, "1.1", res.Items[2].Parent)
	assert.Equal(t, "1", res.Items[3].Parent)
	assert.Empty(t, res.Items[4].Parent)
	// "10" must not read as a child of "1".
	assert.False(t, isChildCode("10", "1"))
}

func analysisSheet() []Row {
	return []Row{
		row("A1", "", "", "", "", ""),
		row("", "Description of work", "Unit", "", "", ""),
		row("", "Rate for one cum of excavation", "", "", "", ""),
		row("", "MATERIAL", "", "", "", ""),
		row("CEM", "Cement", "bag", "2", "400", "800"),
		row("SND", "Sand", "cum", "0.5", "1200", "600"),
		row("", "Material total", "", "", "", "1400"),
		row("", "Total", "", "", "", "1400"),
		row("", "Add overheads @ 15%", "", "", "", "210"),
		row("", "Grand total", "", "", "", "1610"),
		row("", "Say", "", "", "", "1610"),
	}
}

func TestParseAnalysisFull(t *testing.T) {
	m := analysis.NewModel("", "", "cum")
	next, warnings := ParseAnalysis(analysisSheet(), 0, m, AnalysisSettings{SetCode: true})

	assert.Empty(t, warnings)
	assert.Equal(t, 11, next)
	assert.Equal(t, "A1", m.Code)
	assert.Equal(t, "Rate for one cum of excavation", m.AnaRemarks)

	require.Len(t, m.Steps, 5)
	assert.Equal(t, models.StepGroup, m.Steps[0].Kind)
	require.Len(t, m.Steps[0].Lines, 2)
	assert.Equal(t, models.StepSum, m.Steps[1].Kind)
	assert.Equal(t, models.StepWeight, m.Steps[2].Kind)
	assert.True(t, dec("0.15").Equal(m.Steps[2].Value), m.Steps[2].Value.String())
	assert.Equal(t, models.StepSum, m.Steps[3].Kind)
	assert.Equal(t, models.StepRound, m.Steps[4].Kind)
	assert.True(t, dec("0").Equal(m.Steps[4].Value))

	require.Contains(t, m.Resources, "CEM")
	assert.True(t, dec("400").Equal(m.Resources["CEM"].Rate))
}

func TestParseAnalysisWeightVersusTimes(t *testing.T) {
	rows := []Row{
		row("", "Description", "Unit", "", "", ""),
		row("", "LABOUR", "", "", "", ""),
		row("L1", "Mason", "day", "1", "100", "100"),
		row("", "Labour total", "", "", "", "100"),
		// Percent marker beats the rate-per keyword set.
		row("", "Add cartage @ 1%", "", "", "", "1"),
	}
	m := analysis.NewModel("", "", "")
	_, warnings := ParseAnalysis(rows, 0, m, AnalysisSettings{})
	assert.Empty(t, warnings)

	require.Len(t, m.Steps, 2)
	last := m.Steps[1]
	assert.Equal(t, models.StepWeight, last.Kind)
	assert.True(t, dec("0.010").Equal(last.Value), last.Value.String())

	rows[4] = row("", "Rate per half unit", "", "", "", "50")
	m = analysis.NewModel("", "", "")
	_, warnings = ParseAnalysis(rows, 0, m, AnalysisSettings{})
	assert.Empty(t, warnings)
	require.Len(t, m.Steps, 2)
	last = m.Steps[1]
	assert.Equal(t, models.StepTimes, last.Kind)
	assert.True(t, dec("0.500000").Equal(last.Value), last.Value.String())
}

func TestParseAnalysisImplicitGroup(t *testing.T) {
	rows := []Row{
		row("", "Description", "Unit", "", "", ""),
		row("R1", "Boulder", "cum", "1", "300", "300"),
		row("", "Total", "", "", "", "300"),
	}
	m := analysis.NewModel("", "", "")
	_, warnings := ParseAnalysis(rows, 0, m, AnalysisSettings{})
	assert.Empty(t, warnings)
	require.NotEmpty(t, m.Steps)
	assert.Equal(t, models.StepGroup, m.Steps[0].Kind)
	assert.Equal(t, "RESOURCE", m.Steps[0].Description)
	require.Len(t, m.Steps[0].Lines, 1)
}

func TestParseAnalysisCommentPlacement(t *testing.T) {
	below := []Row{
		row("", "Description", "Unit", "", "", ""),
		row("", "MATERIAL", "", "", "", ""),
		row("CEM", "Cement", "bag", "2", "400", "800"),
		row("", "as per site survey", "", "", "", ""),
		row("", "Material total", "", "", "", "800"),
	}
	m := analysis.NewModel("", "", "")
	_, warnings := ParseAnalysis(below, 0, m, AnalysisSettings{CommentsBelow: true})
	assert.Empty(t, warnings)
	require.Len(t, m.Steps[0].Lines, 1)
	assert.Equal(t, "as per site survey", m.Steps[0].Lines[0].Remark)

	above := []Row{
		row("", "Description", "Unit", "", "", ""),
		row("", "MATERIAL", "", "", "", ""),
		row("", "as per site survey", "", "", "", ""),
		row("CEM", "Cement", "bag", "2", "400", "800"),
		row("", "Material total", "", "", "", "800"),
	}
	m = analysis.NewModel("", "", "")
	_, warnings = ParseAnalysis(above, 0, m, AnalysisSettings{})
	assert.Empty(t, warnings)
	require.Len(t, m.Steps[0].Lines, 1)
	assert.Equal(t, "as per site survey", m.Steps[0].Lines[0].Remark)
}

func TestParseAnalysisRoundOverride(t *testing.T) {
	override := dec("1.5")
	rows := analysisSheet()
	m := analysis.NewModel("", "", "")
	_, warnings := ParseAnalysis(rows, 0, m, AnalysisSettings{RoundOverride: &override})
	assert.Empty(t, warnings)
	last := m.Steps[len(m.Steps)-1]
	assert.Equal(t, models.StepRound, last.Kind)
	assert.True(t, dec("1.5").Equal(last.Value))
}

func TestParseAnalysisStepFromDecimals(t *testing.T) {
	rows := []Row{
		row("", "Description", "Unit", "", "", ""),
		row("", "LABOUR", "", "", "", ""),
		row("L1", "Mason", "day", "1", "114.27", "114.27"),
		row("", "Labour total", "", "", "", "114.27"),
		row("", "Say", "", "", "", "114.30"),
	}
	m := analysis.NewModel("", "", "")
	_, warnings := ParseAnalysis(rows, 0, m, AnalysisSettings{})
	assert.Empty(t, warnings)
	last := m.Steps[len(m.Steps)-1]
	require.Equal(t, models.StepRound, last.Kind)
	assert.True(t, dec("1.1").Equal(last.Value), last.Value.String())
}

// A nonzero tenths digit wins even when the hundredths digit is also
// set; only amounts like x.05 fall through to the hundredths step.
func TestParseAnalysisStepTenthsBeforeHundredths(t *testing.T) {
	cases := []struct {
		say  string
		step string
	}{
		{"114.25", "1.1"},
		{"114.05", "2.1"},
		{"114.00", "0"},
	}
	for _, tc := range cases {
		rows := []Row{
			row("", "Description", "Unit", "", "", ""),
			row("", "LABOUR", "", "", "", ""),
			row("L1", "Mason", "day", "1", tc.say, tc.say),
			row("", "Labour total", "", "", "", tc.say),
			row("", "Say", "", "", "", tc.say),
		}
		m := analysis.NewModel("", "", "")
		_, warnings := ParseAnalysis(rows, 0, m, AnalysisSettings{})
		assert.Empty(t, warnings, tc.say)
		last := m.Steps[len(m.Steps)-1]
		require.Equal(t, models.StepRound, last.Kind, tc.say)
		assert.True(t, dec(tc.step).Equal(last.Value), "%s: %s", tc.say, last.Value.String())
	}
}
