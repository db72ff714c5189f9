package report

import (
	"fmt"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/parse"
	"github.com/civilworks/estimator/internal/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory(store.Options{})
	require.NoError(t, err)
	return s
}

func seedProject(t *testing.T, s *store.Store) {
	t.Helper()
	require.NoError(t, s.InsertCategory(store.KindSchedule, "EARTHWORK", nil))

	require.NoError(t, s.InsertResource(store.ResourceInput{
		Code: "LAB", Description: "Labourer", Unit: "day",
		Rate: dec("800"), Category: "MANPOWER",
	}, nil))

	parent := analysis.NewModel("1", "Site preparation", "")
	parent.Category = "EARTHWORK"
	_, err := s.InsertItem(parent, nil, false, false)
	require.NoError(t, err)

	child := analysis.NewModel("1.1", "Clearing and grubbing", "sqm")
	child.Category = "EARTHWORK"
	child.Parent = "1"
	child.Qty = dec("150")
	child.Remarks = "as per drawing"
	child.SetResource(&analysis.Resource{
		Code: "LAB", Description: "Labourer", Unit: "day", Rate: dec("800"),
	})
	child.AppendGroup("LABOUR", "")
	require.NoError(t, child.AppendLine("LAB", dec("0.02"), ""))
	child.AppendSum("Total")
	child.AppendRound("Say", dec("0"))
	_, err = s.InsertItem(child, nil, false, false)
	require.NoError(t, err)
	require.NoError(t, s.UpdateRates([]string{"1.1"}))
}

func TestBuildScheduleLayout(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s)

	lines, err := BuildSchedule(s)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.True(t, lines[0].IsCategory)
	assert.Equal(t, "EARTHWORK", lines[0].Description)
	assert.Equal(t, "1", lines[1].Code)
	assert.True(t, lines[1].IsHeader())
	assert.Equal(t, "1.1", lines[2].Code)
	assert.Equal(t, 1, lines[2].Indent)
	assert.True(t, dec("16").Equal(lines[2].Rate), lines[2].Rate.String())
}

func TestBuildAnalysisPromotesSubAnalyses(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s)

	// An item that is also a resource is a sub-analysis.
	sub := analysis.NewModel("MIX", "Concrete mix", "cum")
	sub.SetResource(&analysis.Resource{
		Code: "LAB", Description: "Labourer", Unit: "day", Rate: dec("800"),
	})
	sub.AppendGroup("LABOUR", "")
	require.NoError(t, sub.AppendLine("LAB", dec("1"), ""))
	_, err := s.InsertItem(sub, nil, false, false)
	require.NoError(t, err)
	require.NoError(t, s.InsertResource(store.ResourceInput{
		Code: "MIX", Description: "Concrete mix", Unit: "cum", Rate: dec("800"),
	}, nil))

	blocks, err := BuildAnalysis(s)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "1.1", blocks[0].Code)
	last := blocks[len(blocks)-1]
	assert.Equal(t, "MIX", last.Code)
	assert.Equal(t, "Sub Analysis", last.Category)
}

func TestBuildUsageAppliesTimesFactor(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertResource(store.ResourceInput{
		Code: "CEM", Description: "Cement", Unit: "bag", Rate: dec("400"),
	}, nil))

	m := analysis.NewModel("A1", "Concrete", "cum")
	m.Qty = dec("2")
	m.SetResource(&analysis.Resource{
		Code: "CEM", Description: "Cement", Unit: "bag", Rate: dec("400"),
	})
	m.AppendGroup("MATERIAL", "")
	require.NoError(t, m.AppendLine("CEM", dec("3"), ""))
	m.AppendTimes("Rate per half unit", dec("0.5"))
	_, err := s.InsertItem(m, nil, false, false)
	require.NoError(t, err)

	lines, err := BuildUsage(s)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	// 3 per unit, 2 units, halved by the TIMES factor.
	assert.True(t, dec("3").Equal(lines[0].Qty), lines[0].Qty.String())
	assert.True(t, dec("1200").Equal(lines[0].Amount))
}

func TestReaderCoercion(t *testing.T) {
	s := newTestStore(t)
	f, err := Workbook(s)
	require.NoError(t, err)
	defer f.Close()

	f.SetCellValue(SheetSchedule, "A2", "1")
	f.SetCellValue(SheetSchedule, "B2", "  Excavation  ")
	f.SetCellValue(SheetSchedule, "C2", "cum")
	f.SetCellValue(SheetSchedule, "D2", "1,250.5")
	f.SetCellValue(SheetSchedule, "E2", "not a number")

	rows, err := ReadRows(f, SheetSchedule, scheduleColumns)
	require.NoError(t, err)
	rows = dropHeader(rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Excavation", rows[0].Description)
	assert.True(t, dec("1250.5").Equal(rows[0].Qty))
	assert.True(t, rows[0].Rate.IsZero())
	assert.True(t, rows[0].Amount.IsZero())
}

// scheduleTuples keys the comparable content of a store's schedule.
func scheduleTuples(t *testing.T, s *store.Store) []string {
	t.Helper()
	cats, err := s.GetCategories(store.KindSchedule)
	require.NoError(t, err)
	var out []string
	for _, cat := range cats {
		items, err := s.GetItemsFlat(cat)
		require.NoError(t, err)
		for _, it := range items {
			out = append(out, fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
				cat, it.Code, it.Description, it.Unit,
				it.Rate.String(), it.Qty.String(), it.Remarks))
		}
	}
	sort.Strings(out)
	return out
}

func TestScheduleRoundTrip(t *testing.T) {
	src := newTestStore(t)
	seedProject(t, src)

	f, err := Workbook(src)
	require.NoError(t, err)
	defer f.Close()

	rows, err := ReadRows(f, SheetSchedule, scheduleColumns)
	require.NoError(t, err)
	parsed := parse.ParseSchedule(dropHeader(rows))
	assert.Empty(t, parsed.Warnings)

	dst := newTestStore(t)
	_, err = dst.InsertItemMultiple(parsed.Items, true, nil)
	require.NoError(t, err)

	assert.Equal(t, scheduleTuples(t, src), scheduleTuples(t, dst))
}

// Category names stored in mixed case must still come back as
// categories on reimport; the sheet convention keys them by uppercase.
func TestScheduleRoundTripMixedCaseCategory(t *testing.T) {
	src := newTestStore(t)
	require.NoError(t, src.InsertCategory(store.KindSchedule, "Earthwork", nil))
	item := analysis.NewModel("1", "Excavation in soil", "cum")
	item.Category = "Earthwork"
	item.Qty = dec("10")
	_, err := src.InsertItem(item, nil, false, false)
	require.NoError(t, err)

	f, err := Workbook(src)
	require.NoError(t, err)
	defer f.Close()

	rows, err := ReadRows(f, SheetSchedule, scheduleColumns)
	require.NoError(t, err)
	parsed := parse.ParseSchedule(dropHeader(rows))
	assert.Empty(t, parsed.Warnings)
	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "EARTHWORK", parsed.Items[0].Category)
	assert.Equal(t, "Excavation in soil", parsed.Items[0].Description)
}

func TestImportWorkbookFullCircle(t *testing.T) {
	src := newTestStore(t)
	seedProject(t, src)

	f, err := Workbook(src)
	require.NoError(t, err)
	defer f.Close()

	dst := newTestStore(t)
	res, err := Import(dst, f, ImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Contains(t, res.ItemCodes, "1.1")
	assert.Contains(t, res.ResourceCodes, "LAB")

	m, err := dst.GetItem("1.1", false, true)
	require.NoError(t, err)
	require.NotEmpty(t, m.Steps)
	require.NoError(t, m.Evaluate())
	assert.True(t, dec("16").Equal(m.AnaRate()), m.AnaRate().String())
}
