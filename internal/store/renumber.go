package store

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/civilworks/estimator/internal/codes"
	"github.com/civilworks/estimator/internal/models"
)

// codeSentinel suffixes every code during the first renumbering pass so
// the second pass never trips the uniqueness index.
const codeSentinel = "*"

// ReorderItems repacks every ordering field densely: category orders,
// top-level item orders per category, child suborders per parent and
// resource orders per category. Used to repair drift; undoable.
func (s *Store) ReorderItems() error {
	if err := s.mutable(); err != nil {
		return err
	}

	oldItems := map[uint][2]int{} // id -> {order, suborder (-1 when nil)}
	oldRes := map[uint]int{}
	oldCats := map[CategoryKind]map[uint]int{KindSchedule: {}, KindResource: {}}

	repack := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			for _, kind := range []CategoryKind{KindSchedule, KindResource} {
				var cats []catRow
				if err := tx.Table(catTable(kind)).Order("order_, id").Find(&cats).Error; err != nil {
					return err
				}
				for i, cat := range cats {
					if err := tx.Table(catTable(kind)).Where("id = ?", cat.ID).
						Update("order_", i).Error; err != nil {
						return err
					}
				}
			}

			var cats []models.ScheduleCategory
			if err := tx.Order("order_").Find(&cats).Error; err != nil {
				return err
			}
			for _, cat := range cats {
				var tops []models.ScheduleItem
				if err := tx.Where("category_id = ? AND parent_id IS NULL", cat.ID).
					Order("order_, id").Find(&tops).Error; err != nil {
					return err
				}
				for i, top := range tops {
					if err := tx.Model(&models.ScheduleItem{}).Where("id = ?", top.ID).
						Update("order_", i).Error; err != nil {
						return err
					}
					var children []models.ScheduleItem
					if err := tx.Where("parent_id = ?", top.ID).
						Order("suborder, id").Find(&children).Error; err != nil {
						return err
					}
					for j, child := range children {
						if err := tx.Model(&models.ScheduleItem{}).Where("id = ?", child.ID).
							Updates(map[string]any{"order_": i, "suborder": j}).Error; err != nil {
							return err
						}
					}
				}
			}

			var resCats []models.ResourceCategory
			if err := tx.Order("order_").Find(&resCats).Error; err != nil {
				return err
			}
			for _, cat := range resCats {
				var rows []models.Resource
				if err := tx.Where("category_id = ?", cat.ID).
					Order("order_, id").Find(&rows).Error; err != nil {
					return err
				}
				for i, row := range rows {
					if err := tx.Model(&models.Resource{}).Where("id = ?", row.ID).
						Update("order_", i).Error; err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	restore := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			for kind, m := range oldCats {
				for id, order := range m {
					if err := tx.Table(catTable(kind)).Where("id = ?", id).
						Update("order_", order).Error; err != nil {
						return err
					}
				}
			}
			for id, pair := range oldItems {
				updates := map[string]any{"order_": pair[0]}
				if pair[1] >= 0 {
					updates["suborder"] = pair[1]
				}
				if err := tx.Model(&models.ScheduleItem{}).Where("id = ?", id).
					Updates(updates).Error; err != nil {
					return err
				}
			}
			for id, order := range oldRes {
				if err := tx.Model(&models.Resource{}).Where("id = ?", id).
					Update("order_", order).Error; err != nil {
					return err
				}
			}
			return nil
		})
	}

	// Snapshot current orderings before repacking.
	if err := s.snapshotOrders(oldItems, oldRes, oldCats); err != nil {
		return err
	}
	if err := repack(); err != nil {
		return err
	}
	s.push("Reorder items", repack, restore)
	return nil
}

func (s *Store) snapshotOrders(items map[uint][2]int, res map[uint]int,
	cats map[CategoryKind]map[uint]int) error {
	for _, kind := range []CategoryKind{KindSchedule, KindResource} {
		var rows []catRow
		if err := s.db.Table(catTable(kind)).Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			cats[kind][r.ID] = r.Order
		}
	}
	var itemRows []models.ScheduleItem
	if err := s.db.Find(&itemRows).Error; err != nil {
		return err
	}
	for _, r := range itemRows {
		sub := -1
		if r.Suborder != nil {
			sub = *r.Suborder
		}
		items[r.ID] = [2]int{r.Order, sub}
	}
	var resRows []models.Resource
	if err := s.db.Find(&resRows).Error; err != nil {
		return err
	}
	for _, r := range resRows {
		res[r.ID] = r.Order
	}
	return nil
}

// AssignAutoItemNumbers renumbers schedule items: within each category
// (skipping Sub Analysis) parents are numbered consecutively, with the
// category prefix omitted in single-category projects; children get the
// parent code with suborder+1 appended. Codes pass through a sentinel
// suffix first to dodge transient uniqueness violations. Idempotent.
func (s *Store) AssignAutoItemNumbers() error {
	if err := s.mutable(); err != nil {
		return err
	}

	oldCodes := map[uint]string{}
	assign := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			var cats []models.ScheduleCategory
			if err := tx.Where("description <> ?", models.SubAnalysisName).
				Order("order_").Find(&cats).Error; err != nil {
				return err
			}
			single := len(cats) == 1

			newCodes := map[uint]string{}
			for ci, cat := range cats {
				var tops []models.ScheduleItem
				if err := tx.Where("category_id = ? AND parent_id IS NULL", cat.ID).
					Order("order_").Find(&tops).Error; err != nil {
					return err
				}
				for n, top := range tops {
					code := codes.ItemNumber(ci+1, n+1, single)
					newCodes[top.ID] = code
					var children []models.ScheduleItem
					if err := tx.Where("parent_id = ?", top.ID).
						Order("suborder").Find(&children).Error; err != nil {
						return err
					}
					for _, child := range children {
						newCodes[child.ID] = fmt.Sprintf("%s.%d", code, derefInt(child.Suborder)+1)
					}
				}
			}
			return rewriteCodes(tx, &models.ScheduleItem{}, newCodes)
		})
	}
	restore := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			return rewriteCodes(tx, &models.ScheduleItem{}, oldCodes)
		})
	}

	if err := s.snapshotCodes(&models.ScheduleItem{}, oldCodes); err != nil {
		return err
	}
	if err := assign(); err != nil {
		return err
	}
	s.push("Renumber items", assign, restore)
	log.Info().Int("items", len(oldCodes)).Msg("item numbers assigned")
	return nil
}

// AssignAutoResourceNumbers renumbers resources "C.NNN" per category
// (prefix omitted in single-category projects). Resources with a
// library prefix in excludedLibraries, and sub-analysis mirrors whose
// code matches a schedule item, are left untouched.
func (s *Store) AssignAutoResourceNumbers(excludedLibraries []string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	excluded := map[string]bool{}
	for _, l := range excludedLibraries {
		excluded[l] = true
	}

	oldCodes := map[uint]string{}
	assign := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			var cats []models.ResourceCategory
			if err := tx.Order("order_").Find(&cats).Error; err != nil {
				return err
			}
			single := len(cats) == 1

			newCodes := map[uint]string{}
			for ci, cat := range cats {
				var rows []models.Resource
				if err := tx.Where("category_id = ?", cat.ID).
					Order("order_").Find(&rows).Error; err != nil {
					return err
				}
				n := 0
				for _, row := range rows {
					if lib, _ := models.SplitLibraryCode(row.Code); lib != "" && excluded[lib] {
						continue
					}
					if _, err := itemByCode(tx, row.Code); err == nil {
						// Sub-analysis mirror; the schedule owns its code.
						continue
					}
					n++
					newCodes[row.ID] = codes.ResourceNumber(ci+1, n, single)
				}
			}
			return rewriteCodes(tx, &models.Resource{}, newCodes)
		})
	}
	restore := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			return rewriteCodes(tx, &models.Resource{}, oldCodes)
		})
	}

	if err := s.snapshotCodes(&models.Resource{}, oldCodes); err != nil {
		return err
	}
	if err := assign(); err != nil {
		return err
	}
	s.push("Renumber resources", assign, restore)
	return nil
}

// rewriteCodes applies an id->code mapping. Every code in the table is
// suffixed with the sentinel first, longest codes first, so that
// neither the suffixing nor the new codes can trip the uniqueness
// index against rows outside the mapping. Unmapped rows get their
// original code back at the end, shortest first.
func rewriteCodes(tx *gorm.DB, model any, newCodes map[uint]string) error {
	var all []struct {
		ID   uint
		Code string
	}
	if err := tx.Model(model).Select("id", "code").
		Order("length(code) DESC, id").Find(&all).Error; err != nil {
		return err
	}
	for _, r := range all {
		if err := tx.Model(model).Where("id = ?", r.ID).
			Update("code", r.Code+codeSentinel).Error; err != nil {
			return err
		}
	}
	for id, code := range newCodes {
		if err := tx.Model(model).Where("id = ?", id).
			Update("code", code).Error; err != nil {
			return err
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if _, mapped := newCodes[all[i].ID]; mapped {
			continue
		}
		if err := tx.Model(model).Where("id = ?", all[i].ID).
			Update("code", all[i].Code).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) snapshotCodes(model any, out map[uint]string) error {
	rows, err := s.db.Model(model).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		switch m := model.(type) {
		case *models.ScheduleItem:
			if err := s.db.ScanRows(rows, m); err != nil {
				return err
			}
			out[m.ID] = m.Code
		case *models.Resource:
			if err := s.db.ScanRows(rows, m); err != nil {
				return err
			}
			out[m.ID] = m.Code
		}
	}
	return rows.Err()
}

// NextItemCode derives a fresh unused schedule code near an existing
// one; see the codes package for the derivation rules.
func (s *Store) NextItemCode(near string, nextLevel bool, shift int) string {
	return codes.Next(near, nextLevel, shift, func(c string) bool {
		_, err := itemByCode(s.db, c)
		return err == nil
	})
}
