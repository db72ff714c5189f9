package report

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/civilworks/estimator/internal/store"
)

// Sheet names of the exported workbook.
const (
	SheetSchedule  = "Schedule"
	SheetResources = "Resources"
	SheetAnalysis  = "Analysis"
	SheetUsage     = "Res Usage"
)

var cols = []string{"A", "B", "C", "D", "E", "F", "G"}

// Export writes the four report sheets to an xlsx file at path.
func Export(s *store.Store, path string) error {
	f, err := Workbook(s)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Info().Str("path", path).Msg("workbook exported")
	return nil
}

// Workbook builds the export workbook in memory.
func Workbook(s *store.Store) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSchedule); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetResources, SheetAnalysis, SheetUsage} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	if err := writeSchedule(f, s, styles); err != nil {
		return nil, err
	}
	if err := writeResources(f, s, styles); err != nil {
		return nil, err
	}
	if err := writeAnalysis(f, s, styles); err != nil {
		return nil, err
	}
	if err := writeUsage(f, s, styles); err != nil {
		return nil, err
	}
	return f, nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

// num converts a decimal to a cell value; zero writes as an empty cell
// so re-imports see the same blank the parsers expect.
func num(d decimal.Decimal) any {
	if d.IsZero() {
		return ""
	}
	v, _ := d.Float64()
	return v
}

type sheetStyles struct {
	header   int
	category int
	parent   int
}

func newStyles(f *excelize.File) (*sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	category, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})
	if err != nil {
		return nil, fmt.Errorf("create category style: %w", err)
	}
	parent, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
	})
	if err != nil {
		return nil, fmt.Errorf("create parent style: %w", err)
	}
	return &sheetStyles{header: header, category: category, parent: parent}, nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		if v == nil || v == "" {
			continue
		}
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", cols[i], row), v)
	}
}

func writeSchedule(f *excelize.File, s *store.Store, st *sheetStyles) error {
	lines, err := BuildSchedule(s)
	if err != nil {
		return err
	}
	widths := []float64{10, 48, 8, 10, 12, 14, 24}
	for i, col := range cols {
		f.SetColWidth(SheetSchedule, col, col, widths[i])
	}
	setRow(f, SheetSchedule, 1, "Code", "Description", "Unit", "Qty", "Rate", "Amount", "Remarks")
	f.SetCellStyle(SheetSchedule, "A1", "G1", st.header)

	row := 2
	for _, l := range lines {
		switch {
		case l.IsCategory:
			// Category rows are written uppercase, the form the sheet
			// reader recognises them by.
			setRow(f, SheetSchedule, row, "", strings.ToUpper(l.Description))
			f.SetCellStyle(SheetSchedule, "A"+itoa(row), "G"+itoa(row), st.category)
		case l.IsHeader():
			setRow(f, SheetSchedule, row, l.Code, l.Description, "", "", "", "", l.Remarks)
			f.SetCellStyle(SheetSchedule, "A"+itoa(row), "G"+itoa(row), st.parent)
		default:
			desc := l.Description
			if l.Indent > 0 {
				desc = "  " + desc
			}
			setRow(f, SheetSchedule, row, l.Code, desc, l.Unit,
				num(l.Qty), num(l.Rate), "", l.Remarks)
			// Amounts stay formulas so edited rates flow through.
			formula := fmt.Sprintf("ROUND(D%d*E%d,2)", row, row)
			if err := f.SetCellFormula(SheetSchedule, "F"+itoa(row), formula); err != nil {
				return fmt.Errorf("amount formula row %d: %w", row, err)
			}
		}
		row++
	}
	return nil
}

func writeResources(f *excelize.File, s *store.Store, st *sheetStyles) error {
	lines, err := BuildResources(s)
	if err != nil {
		return err
	}
	setRow(f, SheetResources, 1, "Code", "Description", "Unit", "Rate", "Vat %", "Discount %", "Reference")
	f.SetCellStyle(SheetResources, "A1", "G1", st.header)

	row := 2
	for _, l := range lines {
		if l.IsCategory {
			setRow(f, SheetResources, row, "", l.Description)
			f.SetCellStyle(SheetResources, "A"+itoa(row), "G"+itoa(row), st.category)
		} else {
			setRow(f, SheetResources, row, l.Code, l.Description, l.Unit,
				num(l.Rate), num(l.Vat), num(l.Discount), l.Reference)
		}
		row++
	}
	return nil
}

func writeAnalysis(f *excelize.File, s *store.Store, st *sheetStyles) error {
	blocks, err := BuildAnalysis(s)
	if err != nil {
		return err
	}
	row := 1
	lastCategory := ""
	for _, b := range blocks {
		if b.Category != lastCategory {
			setRow(f, SheetAnalysis, row, "", b.Category)
			f.SetCellStyle(SheetAnalysis, "A"+itoa(row), "G"+itoa(row), st.category)
			lastCategory = b.Category
			row += 2
		}
		for _, r := range b.Rows {
			setRow(f, SheetAnalysis, row, r.Code, r.Description, r.Unit,
				num(r.Qty), num(r.Rate), num(r.Amount), r.Remarks)
			row++
		}
		row += 2
	}
	return nil
}

func writeUsage(f *excelize.File, s *store.Store, st *sheetStyles) error {
	lines, err := BuildUsage(s)
	if err != nil {
		return err
	}
	setRow(f, SheetUsage, 1, "Code", "Description", "Unit", "Qty", "Rate", "Amount")
	f.SetCellStyle(SheetUsage, "A1", "F1", st.header)

	row := 2
	for _, l := range lines {
		setRow(f, SheetUsage, row, l.Code, l.Description, l.Unit, num(l.Qty), num(l.Rate), "")
		formula := fmt.Sprintf("ROUND(D%d*E%d,2)", row, row)
		if err := f.SetCellFormula(SheetUsage, "F"+itoa(row), formula); err != nil {
			return fmt.Errorf("usage formula row %d: %w", row, err)
		}
		row++
	}
	return nil
}
