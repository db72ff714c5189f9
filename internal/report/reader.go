package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/civilworks/estimator/internal/parse"
)

// ColKind tags how one workbook column is coerced during import.
type ColKind int

const (
	ColSkip ColKind = iota
	ColText
	ColFloat
	ColInt
)

// scheduleColumns is the default layout of an importable sheet:
// code, description, unit, qty, rate, amount, remarks.
var scheduleColumns = []ColKind{
	ColText, ColText, ColText, ColFloat, ColFloat, ColFloat, ColText,
}

// ReadRows extracts one sheet as cleaned parser rows. Unparseable or
// empty numeric cells become zero, missing string cells the empty
// string; rows that are entirely blank are dropped.
func ReadRows(f *excelize.File, sheet string, kinds []ColKind) ([]parse.Row, error) {
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	var out []parse.Row
	for _, cells := range raw {
		row, blank := coerceRow(cells, kinds)
		if !blank {
			out = append(out, row)
		}
	}
	return out, nil
}

func coerceRow(cells []string, kinds []ColKind) (parse.Row, bool) {
	field := 0
	var vals [7]any
	for i, kind := range kinds {
		var cell string
		if i < len(cells) {
			cell = strings.TrimSpace(cells[i])
		}
		switch kind {
		case ColSkip:
			continue
		case ColText:
			vals[field] = cell
		case ColFloat, ColInt:
			vals[field] = toDecimal(cell, kind)
		}
		field++
	}

	row := parse.Row{
		Code:        asStr(vals[0]),
		Description: asStr(vals[1]),
		Unit:        asStr(vals[2]),
		Qty:         asDec(vals[3]),
		Rate:        asDec(vals[4]),
		Amount:      asDec(vals[5]),
		Remarks:     asStr(vals[6]),
	}
	blank := row.Code == "" && row.Description == "" && row.Unit == "" &&
		row.Qty.IsZero() && row.Rate.IsZero() && row.Amount.IsZero() && row.Remarks == ""
	return row, blank
}

// toDecimal cleans a numeric cell. Thousands separators are dropped;
// anything unparseable, including stray text, coerces to zero.
func toDecimal(cell string, kind ColKind) decimal.Decimal {
	cell = strings.ReplaceAll(cell, ",", "")
	if cell == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return decimal.Zero
	}
	if kind == ColInt {
		return d.Truncate(0)
	}
	return d
}

func asStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asDec(v any) decimal.Decimal {
	if d, ok := v.(decimal.Decimal); ok {
		return d
	}
	return decimal.Zero
}
