package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/civilworks/estimator/internal/models"
	"github.com/civilworks/estimator/internal/money"
)

// ErrResourceNotFound marks evaluation against a resource missing from
// the model dictionary (typically deleted after the analysis was
// written).
type ErrResourceNotFound struct {
	Code string
}

func (e ErrResourceNotFound) Error() string {
	return fmt.Sprintf("resource %s not found", e.Code)
}

// LineResult is the evaluated pair of one GROUP line: the effective
// rate after vat and discount, and the line amount.
type LineResult struct {
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// StepResult is the evaluated output of one step. Lines is populated
// for GROUP steps; Value holds the group sum or the step scalar.
type StepResult struct {
	Lines []LineResult
	Value decimal.Decimal
}

// Evaluate runs the analysis program and fills m.Results. Two running
// totals are kept: sumTotal accumulates the item rate, sumItem tracks
// the quantity WEIGHT and TIMES steps scale.
func (m *Model) Evaluate() error {
	m.Results = make([]StepResult, 0, len(m.Steps))
	sumTotal := decimal.Zero
	sumItem := decimal.Zero

	for _, step := range m.Steps {
		switch step.Kind {
		case models.StepGroup:
			groupSum := decimal.Zero
			lines := make([]LineResult, 0, len(step.Lines))
			for _, line := range step.Lines {
				res, ok := m.Resources[line.Code]
				if !ok {
					return ErrResourceNotFound{Code: line.Code}
				}
				eff := money.EffectiveRate(res.Rate, res.Vat, res.Discount)
				amount := money.Round2(line.Qty.Mul(eff))
				groupSum = groupSum.Add(amount)
				lines = append(lines, LineResult{Rate: eff, Amount: amount})
			}
			sumTotal = sumTotal.Add(groupSum)
			sumItem = groupSum
			m.Results = append(m.Results, StepResult{Lines: lines, Value: groupSum})

		case models.StepSum:
			sumItem = sumTotal
			m.Results = append(m.Results, StepResult{Value: sumTotal})

		case models.StepWeight:
			v := money.Round2(sumItem.Mul(step.Value))
			sumTotal = sumTotal.Add(v)
			m.Results = append(m.Results, StepResult{Value: v})

		case models.StepTimes:
			v := money.Round2(sumItem.Mul(step.Value))
			sumTotal = v
			sumItem = v
			m.Results = append(m.Results, StepResult{Value: v})

		case models.StepRound:
			v := money.RoundToStep(sumTotal, money.DecodeStep(step.Value))
			sumTotal = v
			sumItem = v
			m.Results = append(m.Results, StepResult{Value: v})

		default:
			return fmt.Errorf("unknown step kind %d", step.Kind)
		}
	}
	return nil
}

// AnaRate returns the amount of the last evaluated step: the group sum
// when the program ends on a GROUP, otherwise the step scalar. A model
// without results yields zero.
func (m *Model) AnaRate() decimal.Decimal {
	if len(m.Results) == 0 {
		return decimal.Zero
	}
	return m.Results[len(m.Results)-1].Value
}

// TimesFactor returns the factor of the first TIMES step, or one when
// the program has none. Resource-usage reporting scales quantities by
// this factor.
func (m *Model) TimesFactor() decimal.Decimal {
	for _, s := range m.Steps {
		if s.Kind == models.StepTimes {
			return s.Value
		}
	}
	return money.One
}
