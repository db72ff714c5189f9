// Package report builds layout-free row streams for the four project
// reports and moves them in and out of xlsx workbooks.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/models"
	"github.com/civilworks/estimator/internal/money"
	"github.com/civilworks/estimator/internal/parse"
	"github.com/civilworks/estimator/internal/store"
)

// ScheduleLine is one bill-of-quantities row. Category rows carry only
// the description; header rows have no unit and no amount.
type ScheduleLine struct {
	Code        string
	Description string
	Unit        string
	Qty         decimal.Decimal
	Rate        decimal.Decimal
	Remarks     string
	Indent      int
	IsCategory  bool
}

// IsHeader reports a parent row, which gets no amount formula.
func (l ScheduleLine) IsHeader() bool {
	return !l.IsCategory && l.Unit == ""
}

// BuildSchedule streams every category followed by its items in
// display order, children indented beneath their parents.
func BuildSchedule(s *store.Store) ([]ScheduleLine, error) {
	cats, err := s.GetCategories(store.KindSchedule)
	if err != nil {
		return nil, err
	}
	var out []ScheduleLine
	for _, cat := range cats {
		items, err := s.GetItemsFlat(cat)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, ScheduleLine{Description: cat, IsCategory: true})
		for _, it := range items {
			indent := 0
			if it.Suborder != nil {
				indent = 1
			}
			out = append(out, ScheduleLine{
				Code:        it.Code,
				Description: it.Description,
				Unit:        it.Unit,
				Qty:         it.Qty,
				Rate:        it.Rate,
				Remarks:     it.Remarks,
				Indent:      indent,
			})
		}
	}
	return out, nil
}

// ResourceLine is one resource-catalogue row.
type ResourceLine struct {
	Code        string
	Description string
	Unit        string
	Rate        decimal.Decimal
	Vat         decimal.Decimal
	Discount    decimal.Decimal
	Reference   string
	IsCategory  bool
}

// BuildResources streams the resource catalogue grouped by category.
func BuildResources(s *store.Store) ([]ResourceLine, error) {
	cats, err := s.GetCategories(store.KindResource)
	if err != nil {
		return nil, err
	}
	var out []ResourceLine
	for _, cat := range cats {
		rows, err := s.GetResourcesFlat(cat)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		out = append(out, ResourceLine{Description: cat, IsCategory: true})
		for _, r := range rows {
			line := ResourceLine{
				Code:        r.Code,
				Description: r.Description,
				Unit:        r.Unit,
				Rate:        r.Rate,
				Vat:         r.Vat,
				Discount:    r.Discount,
			}
			if r.Reference != nil {
				line.Reference = *r.Reference
			}
			out = append(out, line)
		}
	}
	return out, nil
}

// AnalysisBlock is the printable analysis of one item. Rows reuse the
// parser's row shape so an exported block reads back through
// ParseAnalysis unchanged.
type AnalysisBlock struct {
	Category string
	Code     string
	Rows     []parse.Row
}

// BuildAnalysis renders an analysis block per analysed item.
// Sub-analysis items, those that double as resources, are promoted
// under a synthesised category of their own.
func BuildAnalysis(s *store.Store) ([]AnalysisBlock, error) {
	codes, err := s.ItemCodes()
	if err != nil {
		return nil, err
	}
	var plain, sub []AnalysisBlock
	for _, code := range codes {
		m, err := s.GetItem(code, false, true)
		if err != nil {
			return nil, err
		}
		if len(m.Steps) == 0 {
			continue
		}
		if err := m.Evaluate(); err != nil {
			return nil, err
		}
		block := AnalysisBlock{
			Category: m.Category,
			Code:     code,
			Rows:     analysisRows(m),
		}
		if _, err := s.GetResource(code, false); err == nil {
			block.Category = models.SubAnalysisName
			sub = append(sub, block)
		} else {
			plain = append(plain, block)
		}
	}
	return append(plain, sub...), nil
}

// analysisRows lays one evaluated model out as parser-readable rows:
// code and header, the analysis remark, one block per step.
func analysisRows(m *analysis.Model) []parse.Row {
	rows := []parse.Row{
		{Code: m.Code, Description: m.Description},
		{Description: "Description", Unit: "Unit"},
	}
	if m.AnaRemarks != "" {
		rows = append(rows, parse.Row{Description: m.AnaRemarks})
	}
	for i, step := range m.Steps {
		res := m.Results[i]
		switch step.Kind {
		case models.StepGroup:
			rows = append(rows, parse.Row{Code: step.Code, Description: step.Description})
			for j, line := range step.Lines {
				r := m.Resources[line.Code]
				rows = append(rows, parse.Row{
					Code:        line.Code,
					Description: r.Description,
					Unit:        r.Unit,
					Qty:         line.Qty,
					Rate:        res.Lines[j].Rate,
					Amount:      res.Lines[j].Amount,
				})
				if line.Remark != "" {
					rows = append(rows, parse.Row{Description: line.Remark})
				}
			}
			rows = append(rows, parse.Row{
				Description: step.Description + " total",
				Amount:      res.Value,
			})
		default:
			rows = append(rows, parse.Row{
				Description: step.Description,
				Amount:      res.Value,
			})
		}
	}
	return rows
}

// UsageLine is the quantity of one resource consumed across the whole
// schedule, weighted by item quantities and TIMES factors.
type UsageLine struct {
	Code        string
	Description string
	Unit        string
	Rate        decimal.Decimal
	Qty         decimal.Decimal
	Amount      decimal.Decimal
}

// BuildUsage totals resource consumption over all analysed items:
// each analysis line contributes res_qty times item_qty times the
// item's TIMES factor.
func BuildUsage(s *store.Store) ([]UsageLine, error) {
	codes, err := s.ItemCodes()
	if err != nil {
		return nil, err
	}
	totals := map[string]decimal.Decimal{}
	info := map[string]*analysis.Resource{}
	var order []string

	for _, code := range codes {
		m, err := s.GetItem(code, false, true)
		if err != nil {
			return nil, err
		}
		if len(m.Steps) == 0 {
			continue
		}
		factor := m.TimesFactor().Mul(m.Qty)
		for _, step := range m.Steps {
			for _, line := range step.Lines {
				if _, seen := totals[line.Code]; !seen {
					order = append(order, line.Code)
					info[line.Code] = m.Resources[line.Code]
				}
				totals[line.Code] = totals[line.Code].Add(line.Qty.Mul(factor))
			}
		}
	}

	out := make([]UsageLine, 0, len(order))
	for _, code := range order {
		r := info[code]
		qty := totals[code]
		out = append(out, UsageLine{
			Code:        code,
			Description: r.Description,
			Unit:        r.Unit,
			Rate:        r.Rate,
			Qty:         qty,
			Amount:      money.Round2(qty.Mul(r.Rate)),
		})
	}
	return out, nil
}
