package store

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/models"
	"github.com/civilworks/estimator/internal/money"
)

// UpdateRates re-evaluates the analyses of the targeted items (all
// items when codes is nil) and writes the resulting rates back.
// Items that double as resources (sub-analyses) are settled first,
// over a bounded number of passes, with each pass mirroring the rate
// into the resource row so downstream analyses pick it up. Chains
// deeper than the configured depth keep stale rates; cycles are the
// caller's responsibility.
func (s *Store) UpdateRates(codes []string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if codes == nil {
		all, err := s.ItemCodes()
		if err != nil {
			return err
		}
		codes = all
	}

	oldItem := map[string]decimal.Decimal{}
	oldRes := map[string]decimal.Decimal{}
	var subCodes, plainCodes []string
	for _, code := range codes {
		row, err := itemByCode(s.db, code)
		if err != nil {
			return err
		}
		oldItem[code] = row.Rate
		if res, err := resourceByCode(s.db, code); err == nil {
			oldRes[code] = res.Rate
			subCodes = append(subCodes, code)
		} else {
			plainCodes = append(plainCodes, code)
		}
	}

	// Each write is its own small transaction: passes must observe the
	// rates the previous pass persisted.
	recompute := func() error {
		for pass := 0; pass < s.opts.SubAnalysisDepth; pass++ {
			for _, code := range subCodes {
				rate, ok, err := s.evaluateItem(code)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				err = s.inTx(func(tx *gorm.DB) error {
					if err := writeItemRate(tx, code, rate); err != nil {
						return err
					}
					return tx.Model(&models.Resource{}).
						Where("code = ?", code).Update("rate", rate).Error
				})
				if err != nil {
					return err
				}
			}
		}
		for _, code := range plainCodes {
			rate, ok, err := s.evaluateItem(code)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := writeItemRate(s.db, code, rate); err != nil {
				return err
			}
		}
		return nil
	}
	restore := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			for code, rate := range oldItem {
				if err := writeItemRate(tx, code, rate); err != nil {
					return err
				}
			}
			for code, rate := range oldRes {
				if err := tx.Model(&models.Resource{}).
					Where("code = ?", code).Update("rate", rate).Error; err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := recompute(); err != nil {
		return err
	}
	s.push("Update rates", recompute, restore)
	log.Info().Int("items", len(codes)).Int("sub_analyses", len(subCodes)).
		Msg("rates updated")
	return nil
}

// evaluateItem evaluates an item's analysis, returning ok=false when
// the item has no program or a referenced resource has gone missing
// (the stale rate then stays in place).
func (s *Store) evaluateItem(code string) (decimal.Decimal, bool, error) {
	m, err := s.GetItem(code, false, true)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(m.Steps) == 0 {
		return decimal.Zero, false, nil
	}
	if err := m.Evaluate(); err != nil {
		var notFound analysis.ErrResourceNotFound
		if errors.As(err, &notFound) {
			log.Warn().Str("item", code).Str("resource", notFound.Code).
				Msg("analysis references missing resource; rate left stale")
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return money.Round2(m.AnaRate()), true, nil
}

func writeItemRate(tx *gorm.DB, code string, rate decimal.Decimal) error {
	return tx.Model(&models.ScheduleItem{}).
		Where("code = ?", code).Update("rate", rate).Error
}

// UpdateResourceRatesFrom refreshes the rate, vat and discount of every
// project resource carrying the named library's prefix from that
// library, as one undoable action.
func (s *Store) UpdateResourceRatesFrom(libraryName string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	lib, ok := s.libraries[libraryName]
	if !ok {
		return fmt.Errorf("%w: library %q", ErrNotFound, libraryName)
	}

	type rateFields struct{ rate, vat, discount decimal.Decimal }
	old := map[string]rateFields{}
	updated := map[string]rateFields{}

	var rows []models.Resource
	if err := s.db.Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		prefix, local := models.SplitLibraryCode(row.Code)
		if prefix != libraryName {
			continue
		}
		libRes, err := lib.GetResource(local, false)
		if err != nil {
			log.Warn().Str("code", row.Code).Str("library", libraryName).
				Msg("resource missing from library; rate left unchanged")
			continue
		}
		old[row.Code] = rateFields{row.Rate, row.Vat, row.Discount}
		updated[row.Code] = rateFields{libRes.Rate, libRes.Vat, libRes.Discount}
	}
	if len(updated) == 0 {
		return nil
	}

	apply := func(vals map[string]rateFields) func() error {
		return func() error {
			return s.inTx(func(tx *gorm.DB) error {
				for code, f := range vals {
					if err := tx.Model(&models.Resource{}).Where("code = ?", code).
						Updates(map[string]any{
							"rate": f.rate, "vat": f.vat, "discount": f.discount,
						}).Error; err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	if err := apply(updated)(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Update rates from library %q", libraryName),
		apply(updated), apply(old))
	return nil
}
