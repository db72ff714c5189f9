package report

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/parse"
	"github.com/civilworks/estimator/internal/store"
)

// ImportOptions tunes a workbook import.
type ImportOptions struct {
	// Analysis passes through to the analysis parser when the workbook
	// carries an Analysis sheet.
	Analysis parse.AnalysisSettings
	// Progress, when set, receives batch progress and abort requests.
	Progress *store.Progress
}

// ImportResult reports what a workbook import did.
type ImportResult struct {
	ItemCodes     []string
	ResourceCodes []string
	Warnings      []string
}

// ImportFile imports the workbook at path.
func ImportFile(s *store.Store, path string, opts ImportOptions) (*ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return Import(s, f, opts)
}

// Import loads resources, schedule items and analysis programs from
// the workbook's known sheets, in that order so the programs attach to
// items and resources that already exist.
func Import(s *store.Store, f *excelize.File, opts ImportOptions) (*ImportResult, error) {
	res := &ImportResult{}

	if hasSheet(f, SheetResources) {
		if err := importResources(s, f, res, opts.Progress); err != nil {
			return res, err
		}
	}
	if hasSheet(f, SheetSchedule) {
		if err := importSchedule(s, f, res, opts.Progress); err != nil {
			return res, err
		}
	}
	if hasSheet(f, SheetAnalysis) {
		if err := importAnalysis(s, f, res, opts); err != nil {
			return res, err
		}
	}

	log.Info().
		Int("items", len(res.ItemCodes)).
		Int("resources", len(res.ResourceCodes)).
		Int("warnings", len(res.Warnings)).
		Msg("workbook imported")
	return res, nil
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func importResources(s *store.Store, f *excelize.File, res *ImportResult, prog *store.Progress) error {
	// Layout: code, description, unit, rate, vat, discount, reference.
	kinds := []ColKind{ColText, ColText, ColText, ColFloat, ColFloat, ColFloat, ColText}
	rows, err := ReadRows(f, SheetResources, kinds)
	if err != nil {
		return err
	}

	var inputs []store.ResourceInput
	category := ""
	for _, row := range rows {
		if row.Code == "" {
			if row.Description != "" && row.Description != "Description" {
				category = row.Description
			}
			continue
		}
		if row.Code == "Code" {
			continue // header row
		}
		inputs = append(inputs, store.ResourceInput{
			Code:        row.Code,
			Description: row.Description,
			Unit:        row.Unit,
			Rate:        row.Qty,
			Vat:         row.Rate,
			Discount:    row.Amount,
			Reference:   row.Remarks,
			Category:    category,
		})
	}
	codes, err := s.InsertResourceMultiple(inputs, prog)
	if err != nil {
		return err
	}
	res.ResourceCodes = append(res.ResourceCodes, codes...)
	return nil
}

func importSchedule(s *store.Store, f *excelize.File, res *ImportResult, prog *store.Progress) error {
	rows, err := ReadRows(f, SheetSchedule, scheduleColumns)
	if err != nil {
		return err
	}
	rows = dropHeader(rows)
	parsed := parse.ParseSchedule(rows)
	res.Warnings = append(res.Warnings, parsed.Warnings...)

	codes, err := s.InsertItemMultiple(parsed.Items, true, prog)
	if err != nil {
		return err
	}
	res.ItemCodes = append(res.ItemCodes, codes...)
	return nil
}

// importAnalysis scans the sheet repeatedly; every header the parser
// finds starts a fresh item model.
func importAnalysis(s *store.Store, f *excelize.File, res *ImportResult, opts ImportOptions) error {
	rows, err := ReadRows(f, SheetAnalysis, scheduleColumns)
	if err != nil {
		return err
	}

	cfg := opts.Analysis
	cfg.SetCode = true
	var parsed []*analysis.Model
	cursor := 0
	for cursor < len(rows) {
		m := analysis.NewModel("", "", "")
		next, warnings := parse.ParseAnalysis(rows, cursor, m, cfg)
		if len(m.Steps) > 0 || next < len(rows) {
			res.Warnings = append(res.Warnings, warnings...)
		}
		if next <= cursor {
			break
		}
		cursor = next
		if len(m.Steps) > 0 && m.Code != "" {
			parsed = append(parsed, m)
		}
	}

	for _, m := range parsed {
		if opts.Progress.Aborted() {
			break
		}
		// The schedule sheet may already have inserted the bare item;
		// writing with update attaches the program to it. Fields the
		// analysis sheet does not carry keep their stored values.
		if existing, err := s.GetItem(m.Code, false, false); err == nil {
			if m.Description == "" {
				m.Description = existing.Description
			}
			if m.Unit == "" {
				m.Unit = existing.Unit
			}
			if m.Qty.IsZero() {
				m.Qty = existing.Qty
			}
			if m.Remarks == "" {
				m.Remarks = existing.Remarks
			}
		}
		code, err := s.InsertItem(m, nil, true, false)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("analysis %s: %v", m.Code, err))
			continue
		}
		res.ItemCodes = append(res.ItemCodes, code)
	}
	return nil
}

// dropHeader strips the column-title row a generated sheet carries.
func dropHeader(rows []parse.Row) []parse.Row {
	if len(rows) > 0 && rows[0].Code == "Code" && rows[0].Unit == "Unit" {
		return rows[1:]
	}
	return rows
}
