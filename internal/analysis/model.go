// Package analysis holds the in-memory model of one schedule item's
// rate analysis: its header fields, the ordered step program, the
// resource dictionary and the evaluated results vector.
package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/civilworks/estimator/internal/models"
)

// Resource is the in-memory mirror of a catalogued resource, keyed into
// the model's dictionary by code.
type Resource struct {
	Code        string
	Description string
	Unit        string
	Rate        decimal.Decimal
	Vat         decimal.Decimal
	Discount    decimal.Decimal
	Reference   string
	Category    string
}

// Line is one resource usage inside a GROUP step.
type Line struct {
	Code   string
	Qty    decimal.Decimal
	Remark string
}

// Step is one instruction of the analysis program. Lines is populated
// for GROUP steps only; Value carries the weight, times factor or the
// encoded rounding step.
type Step struct {
	Kind        int
	Description string
	Code        string
	Value       decimal.Decimal
	Lines       []Line
}

// Model is the full in-memory representation of one schedule item and
// its analysis.
type Model struct {
	Code        string
	Description string
	Unit        string
	Rate        decimal.Decimal
	Qty         decimal.Decimal
	Remarks     string
	AnaRemarks  string
	Category    string
	Parent      string
	Colour      string

	Steps     []Step
	Resources map[string]*Resource
	Results   []StepResult
}

// NewModel returns an empty model with an initialised resource
// dictionary.
func NewModel(code, description, unit string) *Model {
	return &Model{
		Code:        code,
		Description: description,
		Unit:        unit,
		Resources:   map[string]*Resource{},
	}
}

// IsHeader reports whether the item is a parent header row.
func (m *Model) IsHeader() bool { return m.Unit == "" }

// SetResource registers a resource in the model dictionary.
func (m *Model) SetResource(r *Resource) {
	if m.Resources == nil {
		m.Resources = map[string]*Resource{}
	}
	m.Resources[r.Code] = r
}

// AppendGroup appends a GROUP step and returns its index.
func (m *Model) AppendGroup(description, code string) int {
	m.Steps = append(m.Steps, Step{
		Kind:        models.StepGroup,
		Description: description,
		Code:        code,
	})
	return len(m.Steps) - 1
}

// AppendLine adds a resource line to the last GROUP step. The resource
// must already be in the dictionary.
func (m *Model) AppendLine(code string, qty decimal.Decimal, remark string) error {
	i := len(m.Steps) - 1
	if i < 0 || m.Steps[i].Kind != models.StepGroup {
		return fmt.Errorf("append line: last step is not a group")
	}
	if _, ok := m.Resources[code]; !ok {
		return fmt.Errorf("append line: resource %s not in model", code)
	}
	m.Steps[i].Lines = append(m.Steps[i].Lines, Line{Code: code, Qty: qty, Remark: remark})
	return nil
}

// AppendSum appends a SUM step.
func (m *Model) AppendSum(description string) {
	m.Steps = append(m.Steps, Step{Kind: models.StepSum, Description: description})
}

// AppendWeight appends a WEIGHT step with the given factor.
func (m *Model) AppendWeight(description string, w decimal.Decimal) {
	m.Steps = append(m.Steps, Step{Kind: models.StepWeight, Description: description, Value: w})
}

// AppendTimes appends a TIMES step with the given factor.
func (m *Model) AppendTimes(description string, w decimal.Decimal) {
	m.Steps = append(m.Steps, Step{Kind: models.StepTimes, Description: description, Value: w})
}

// AppendRound appends a ROUND step carrying the encoded rounding step.
func (m *Model) AppendRound(description string, encoded decimal.Decimal) {
	m.Steps = append(m.Steps, Step{Kind: models.StepRound, Description: description, Value: encoded})
}

// InsertStep inserts a step at the given index, clamping to the valid
// range.
func (m *Model) InsertStep(i int, s Step) {
	if i < 0 || i > len(m.Steps) {
		i = len(m.Steps)
	}
	m.Steps = append(m.Steps, Step{})
	copy(m.Steps[i+1:], m.Steps[i:])
	m.Steps[i] = s
}

// DeleteStep removes a step by path [step] or a single group line by
// path [step, line].
func (m *Model) DeleteStep(path []int) error {
	switch len(path) {
	case 1:
		i := path[0]
		if i < 0 || i >= len(m.Steps) {
			return fmt.Errorf("delete step: index %d out of range", i)
		}
		m.Steps = append(m.Steps[:i], m.Steps[i+1:]...)
		return nil
	case 2:
		i, j := path[0], path[1]
		if i < 0 || i >= len(m.Steps) || m.Steps[i].Kind != models.StepGroup {
			return fmt.Errorf("delete step: %d is not a group", i)
		}
		lines := m.Steps[i].Lines
		if j < 0 || j >= len(lines) {
			return fmt.Errorf("delete step: line %d out of range", j)
		}
		m.Steps[i].Lines = append(lines[:j], lines[j+1:]...)
		return nil
	default:
		return fmt.Errorf("delete step: bad path length %d", len(path))
	}
}

// StepShallow returns a copy of the step with shared line backing, for
// cheap inspection.
func (m *Model) StepShallow(i int) (Step, error) {
	if i < 0 || i >= len(m.Steps) {
		return Step{}, fmt.Errorf("step %d out of range", i)
	}
	return m.Steps[i], nil
}

// StepDeep returns a fully independent copy of the step, for
// copy/paste between items.
func (m *Model) StepDeep(i int) (Step, error) {
	s, err := m.StepShallow(i)
	if err != nil {
		return Step{}, err
	}
	s.Lines = append([]Line(nil), s.Lines...)
	return s, nil
}

// Copy returns a deep copy of the model, including steps, lines and the
// resource dictionary. Results are not copied; re-evaluate instead.
func (m *Model) Copy() *Model {
	out := *m
	out.Steps = make([]Step, len(m.Steps))
	for i, s := range m.Steps {
		s.Lines = append([]Line(nil), s.Lines...)
		out.Steps[i] = s
	}
	out.Resources = make(map[string]*Resource, len(m.Resources))
	for k, v := range m.Resources {
		r := *v
		out.Resources[k] = &r
	}
	out.Results = nil
	return &out
}
