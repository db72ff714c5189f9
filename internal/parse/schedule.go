package parse

import (
	"strconv"
	"strings"

	"github.com/civilworks/estimator/internal/analysis"
)

// ScheduleResult is the outcome of a schedule import: items in sheet
// order, each carrying its category and parent code, plus warnings for
// rows the parser could not place.
type ScheduleResult struct {
	Items    []*analysis.Model
	Warnings []string
}

// ParseSchedule reads a bill-of-quantities sheet. Uppercase
// description-only rows open a category, rows without a unit become
// headers, and a row whose dotted code extends the code of an open
// header is attached as its child. Description-only rows continue the
// previous item's description on a new line.
func ParseSchedule(rows []Row) *ScheduleResult {
	res := &ScheduleResult{}
	var (
		category string
		stack    []string // open header codes, outermost first
		last     *analysis.Model
	)

	for i, row := range rows {
		switch {
		case isCategoryRow(row):
			category = strings.TrimSpace(row.Description)
			stack = nil
			last = nil

		case row.Code == "" && row.Unit == "":
			if row.Description == "" {
				continue
			}
			if last == nil {
				res.Warnings = append(res.Warnings,
					"row "+strconv.Itoa(i)+": continuation with no item to continue")
				continue
			}
			last.Description += "\n" + strings.TrimSpace(row.Description)

		case row.Code != "":
			for len(stack) > 0 && !isChildCode(row.Code, stack[len(stack)-1]) {
				stack = stack[:len(stack)-1]
			}
			m := analysis.NewModel(row.Code, strings.TrimSpace(row.Description), row.Unit)
			m.Qty = row.Qty
			m.Rate = row.Rate
			m.Remarks = strings.TrimSpace(row.Remarks)
			m.Category = category
			if len(stack) > 0 {
				m.Parent = stack[len(stack)-1]
			}
			if row.Unit == "" {
				stack = append(stack, row.Code)
			}
			res.Items = append(res.Items, m)
			last = m

		default:
			if row.Description != "" {
				res.Warnings = append(res.Warnings,
					"row "+strconv.Itoa(i)+": skipped "+row.Description)
			}
		}
	}
	return res
}

// isCategoryRow matches an uppercase description with no code, unit or
// figures.
func isCategoryRow(r Row) bool {
	return r.Code == "" && r.Unit == "" && isUpper(r.Description) &&
		r.Qty.IsZero() && r.Rate.IsZero() && r.Amount.IsZero()
}

// isChildCode reports whether code is directly beneath parent in
// dotted numbering, so "1.2" is a child of "1" but "10" is not.
func isChildCode(code, parent string) bool {
	idx := strings.LastIndex(code, ".")
	if idx < 0 {
		return false
	}
	return code[:idx] == parent
}
