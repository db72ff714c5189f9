// Package parse reconstructs analysis programs and schedule structures
// from noisy spreadsheet rows. Parsers collect warnings and continue;
// ambiguous rows are classified by first match in the order
// weight, times, round.
package parse

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/money"
)

// Row is one cleaned spreadsheet row in the fixed column order
// code, description, unit, qty, rate, amount, remarks.
type Row struct {
	Code        string
	Description string
	Unit        string
	Qty         decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
	Remarks     string
}

// AnalysisSettings are the caller-supplied knobs of the analysis
// parser.
type AnalysisSettings struct {
	// SetCode captures the item code from the rows above the header.
	SetCode bool
	// CommentsBelow places resource remarks in the rows following the
	// resource (the DOWN placement); otherwise the rows above it.
	CommentsBelow bool
	// RoundOverride, when set, replaces the rounding step derived from
	// the sheet's "Say" amount.
	RoundOverride *decimal.Decimal
}

// parser states.
const (
	stSearching = iota
	stItem
	stGroup
)

var (
	resourceKeywords = []string{
		"material", "labour", "tool", "plant",
		"a1", "a2", "a3", "a4", "b1", "b2", "b3", "b4",
	}
	sumKeywords = []string{
		"total", "rate per", "cost per", "cost for", "rate for", "cost of", "rate of",
	}
	timesKeywords = []string{
		"rate per", "rate for", "cost per", "cost for", "cost of", "rate of",
	}
	remarkKeywords = []string{
		"cost of", "cost per", "cost for", "rate of", "rate per", "rate for", "details of",
	}
)

// remark rows a resource may absorb, in either placement.
const maxRemarkRows = 15

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func isUpper(s string) bool {
	return s != "" && s == strings.ToUpper(s) && s != strings.ToLower(s)
}

// isRemarkRow matches descriptive filler: description only.
func isRemarkRow(r Row) bool {
	return r.Code == "" && r.Unit == "" && r.Description != "" &&
		r.Qty.IsZero() && r.Rate.IsZero() && r.Amount.IsZero()
}

func isResourceRow(r Row) bool {
	return r.Code != "" && r.Description != "" && r.Unit != "" && !r.Rate.IsZero()
}

// isScalarRow matches total-like rows: amount only.
func isScalarRow(r Row) bool {
	return r.Unit == "" && r.Qty.IsZero() && r.Rate.IsZero() && !r.Amount.IsZero()
}

// ParseAnalysis walks rows from start, emitting the recognised analysis
// program into m. It returns the cursor past the consumed region and
// any warnings.
func ParseAnalysis(rows []Row, start int, m *analysis.Model, cfg AnalysisSettings) (int, []string) {
	p := &anaParser{rows: rows, cur: start, model: m, cfg: cfg, state: stSearching}
	p.run()
	return p.cur, p.warnings
}

type anaParser struct {
	rows     []Row
	cur      int
	model    *analysis.Model
	cfg      AnalysisSettings
	state    int
	warnings []string

	prevAmount decimal.Decimal
	remarkBuf  []string
}

func (p *anaParser) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *anaParser) run() {
	for p.cur < len(p.rows) {
		row := p.rows[p.cur]
		switch p.state {
		case stSearching:
			if p.search(row) {
				p.state = stItem
			}
			p.cur++
		case stItem:
			if done := p.itemRow(row); done {
				return
			}
		case stGroup:
			p.groupRow(row)
		}
	}
	if p.state == stSearching {
		p.warnf("no analysis header found")
	}
}

// search matches the header row and, on a hit, captures the item code
// from the rows above and the analysis remark from the rows below.
func (p *anaParser) search(row Row) bool {
	desc := strings.ToLower(row.Description)
	unit := strings.ToLower(row.Unit)
	if !strings.Contains(desc, "description") || !strings.Contains(unit, "unit") {
		return false
	}
	if p.cfg.SetCode {
		for back := 1; back <= 4 && p.cur-back >= 0; back++ {
			if code := p.rows[p.cur-back].Code; code != "" {
				p.model.Code = code
				break
			}
		}
	}
	for fwd := 1; fwd <= 5 && p.cur+fwd < len(p.rows); fwd++ {
		next := p.rows[p.cur+fwd]
		if !isRemarkRow(next) {
			break
		}
		if containsAny(strings.ToLower(next.Description), remarkKeywords) {
			p.model.AnaRemarks = next.Description
			break
		}
	}
	return true
}

// itemRow classifies a row in the ITEM state; returns true when the
// item is complete.
func (p *anaParser) itemRow(row Row) bool {
	desc := strings.ToLower(row.Description)

	// A fresh analysis header ends this item; the row is left for the
	// next parse.
	if strings.Contains(desc, "description") && strings.Contains(strings.ToLower(row.Unit), "unit") {
		return true
	}

	// Group header: bare uppercase description with a resource keyword.
	if row.Unit == "" && row.Qty.IsZero() && row.Rate.IsZero() && row.Amount.IsZero() &&
		isUpper(row.Description) && containsAny(desc, resourceKeywords) {
		p.model.AppendGroup(row.Description, row.Code)
		p.state = stGroup
		p.cur++
		return false
	}

	// A resource outside any group opens an implicit one; the row is
	// re-examined in the GROUP state.
	if isResourceRow(row) {
		p.model.AppendGroup("RESOURCE", "")
		p.state = stGroup
		return false
	}

	if isScalarRow(row) {
		// Ambiguity resolves in the order weight, times, round.
		switch {
		case (strings.Contains(row.Description, "@") || strings.Contains(row.Description, "%")) &&
			row.Amount.LessThan(p.prevAmount):
			w := row.Amount.Div(p.prevAmount).Round(3)
			p.model.AppendWeight(row.Description, w)
			p.prevAmount = row.Amount

		case containsAny(desc, timesKeywords) && row.Amount.LessThan(p.prevAmount):
			w := row.Amount.Div(p.prevAmount).Round(6)
			p.model.AppendTimes(row.Description, w)
			p.prevAmount = row.Amount

		case containsAny(desc, sumKeywords) && row.Amount.GreaterThanOrEqual(p.prevAmount):
			p.model.AppendSum(row.Description)
			p.prevAmount = row.Amount

		case row.Code == "" && strings.Contains(desc, "say") &&
			row.Amount.Sub(p.prevAmount).Abs().LessThan(decimal.NewFromInt(1)):
			p.model.AppendRound(row.Description, p.roundStep(row.Amount))
			p.cur++
			return true

		default:
			p.warnf("row %d: unclassified amount row %q", p.cur, row.Description)
		}
		p.cur++
		return false
	}

	// Blank or remark filler.
	p.cur++
	return false
}

// roundStep derives the encoded rounding step from the decimals of the
// "Say" amount, unless the caller supplied an override.
func (p *anaParser) roundStep(amount decimal.Decimal) decimal.Decimal {
	if p.cfg.RoundOverride != nil {
		return *p.cfg.RoundOverride
	}
	cents := amount.Abs().Mod(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	switch {
	case cents/10 != 0:
		return money.Step{Places: 1, Base: 1}.Encode()
	case cents != 0:
		return money.Step{Places: 2, Base: 1}.Encode()
	default:
		return money.Step{Places: 0, Base: 0}.Encode()
	}
}

func (p *anaParser) groupRow(row Row) {
	desc := strings.ToLower(row.Description)

	// Group total closes the group.
	if containsAny(desc, resourceKeywords) && strings.Contains(desc, "total") {
		if !row.Amount.IsZero() {
			p.prevAmount = row.Amount
		}
		p.remarkBuf = nil
		p.state = stItem
		p.cur++
		return
	}

	if isResourceRow(row) {
		remark := p.takeRemark()
		res := &analysis.Resource{
			Code:        row.Code,
			Description: row.Description,
			Unit:        row.Unit,
			Rate:        row.Rate,
		}
		p.model.SetResource(res)
		if err := p.model.AppendLine(row.Code, row.Qty, remark); err != nil {
			p.warnf("row %d: %v", p.cur, err)
		}
		p.cur++
		return
	}

	if isRemarkRow(row) {
		if len(p.remarkBuf) < maxRemarkRows {
			p.remarkBuf = append(p.remarkBuf, row.Description)
		}
		p.cur++
		return
	}

	// Structurally incompatible: hand back to ITEM without advancing.
	p.remarkBuf = nil
	p.state = stItem
}

// takeRemark resolves comment placement. With comments above, the
// buffered remark rows belong to this resource; with comments below,
// the following remark rows are consumed here.
func (p *anaParser) takeRemark() string {
	if !p.cfg.CommentsBelow {
		remark := strings.Join(p.remarkBuf, "\n")
		p.remarkBuf = nil
		return remark
	}
	var lines []string
	for fwd := 1; fwd <= maxRemarkRows && p.cur+fwd < len(p.rows); fwd++ {
		next := p.rows[p.cur+fwd]
		if !isRemarkRow(next) ||
			containsAny(strings.ToLower(next.Description), resourceKeywords) {
			break
		}
		lines = append(lines, next.Description)
	}
	// Consumed rows are skipped by advancing past them.
	p.cur += len(lines)
	return strings.Join(lines, "\n")
}
