package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/civilworks/estimator/internal/models"
)

// catRow is the shared shape of the two category tables.
type catRow struct {
	ID          uint
	Description string
	Order       int `gorm:"column:order_"`
}

func catTable(kind CategoryKind) string {
	if kind == KindSchedule {
		return models.ScheduleCategory{}.TableName()
	}
	return models.ResourceCategory{}.TableName()
}

// GetCategories returns category descriptions in display order.
func (s *Store) GetCategories(kind CategoryKind) ([]string, error) {
	var rows []catRow
	if err := s.db.Table(catTable(kind)).Order("order_").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Description
	}
	return out, nil
}

func categoryByName(tx *gorm.DB, kind CategoryKind, name string) (*catRow, error) {
	var row catRow
	err := tx.Table(catTable(kind)).Where("description = ?", name).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: category %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func categoryByOrder(tx *gorm.DB, kind CategoryKind, order int) (*catRow, error) {
	var row catRow
	err := tx.Table(catTable(kind)).Where("order_ = ?", order).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: category index %d", ErrNotFound, order)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func categoryCount(tx *gorm.DB, kind CategoryKind) (int, error) {
	var n int64
	err := tx.Table(catTable(kind)).Count(&n).Error
	return int(n), err
}

// categoryInsertPos resolves the category path rule: nil means position
// 0, [-1] appends, [i] inserts after the i-th existing entry.
func categoryInsertPos(tx *gorm.DB, kind CategoryKind, path []int) (int, error) {
	count, err := categoryCount(tx, kind)
	if err != nil {
		return 0, err
	}
	if len(path) == 0 {
		return 0, nil
	}
	if len(path) != 1 {
		return 0, fmt.Errorf("%w: bad category path %v", ErrValidation, path)
	}
	if path[0] < 0 || path[0] >= count {
		return count, nil
	}
	return path[0] + 1, nil
}

func shiftCategoryOrders(tx *gorm.DB, kind CategoryKind, from, delta int) error {
	return tx.Table(catTable(kind)).
		Where("order_ >= ?", from).
		Update("order_", gorm.Expr("order_ + ?", delta)).Error
}

// InsertCategory creates a category at the path position and records an
// undo action. Duplicate or empty names fail without change.
func (s *Store) InsertCategory(kind CategoryKind, name string, path []int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty category name", ErrValidation)
	}

	var createdID uint
	var pos int
	insert := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if existing, _ := categoryByName(tx, kind, name); existing != nil {
				return fmt.Errorf("%w: category %q exists", ErrIntegrity, name)
			}
			p, err := categoryInsertPos(tx, kind, path)
			if err != nil {
				return err
			}
			pos = p
			if err := shiftCategoryOrders(tx, kind, pos, 1); err != nil {
				return err
			}
			return createCategory(tx, kind, &createdID, name, pos)
		})
	}
	remove := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if err := deleteCategoryRow(tx, kind, createdID); err != nil {
				return err
			}
			return shiftCategoryOrders(tx, kind, pos+1, -1)
		})
	}

	if err := insert(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Add category %q", name), insert, remove)
	return nil
}

// createCategory inserts a typed row, reusing a prior ID on redo so
// undo/redo round-trips are exact.
func createCategory(tx *gorm.DB, kind CategoryKind, id *uint, name string, order int) error {
	if kind == KindSchedule {
		row := models.ScheduleCategory{ID: *id, Description: name, Order: order}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		*id = row.ID
		return nil
	}
	row := models.ResourceCategory{ID: *id, Description: name, Order: order}
	if err := tx.Create(&row).Error; err != nil {
		return err
	}
	*id = row.ID
	return nil
}

func deleteCategoryRow(tx *gorm.DB, kind CategoryKind, id uint) error {
	if kind == KindSchedule {
		return tx.Delete(&models.ScheduleCategory{}, "id = ?", id).Error
	}
	return tx.Delete(&models.ResourceCategory{}, "id = ?", id).Error
}

// UpdateCategory renames a category as one undoable action.
func (s *Store) UpdateCategory(kind CategoryKind, oldName, newName string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("%w: empty category name", ErrValidation)
	}
	rename := func(from, to string) func() error {
		return func() error {
			return s.inTx(func(tx *gorm.DB) error {
				if existing, _ := categoryByName(tx, kind, to); existing != nil {
					return fmt.Errorf("%w: category %q exists", ErrIntegrity, to)
				}
				row, err := categoryByName(tx, kind, from)
				if err != nil {
					return err
				}
				return tx.Table(catTable(kind)).Where("id = ?", row.ID).
					Update("description", to).Error
			})
		}
	}
	if err := rename(oldName, newName)(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Rename category %q to %q", oldName, newName),
		rename(oldName, newName), rename(newName, oldName))
	return nil
}

// DeleteCategory removes a category, cascading to its items (and for
// the schedule kind, their sequences and resource references). Undo
// restores every captured row.
func (s *Store) DeleteCategory(kind CategoryKind, name string) error {
	if err := s.mutable(); err != nil {
		return err
	}

	var cat catRow
	var itemSnap *itemSnapshot
	var resSnap *resourceSnapshot

	remove := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			row, err := categoryByName(tx, kind, name)
			if err != nil {
				return err
			}
			cat = *row
			if kind == KindSchedule {
				var ids []uint
				if err := tx.Model(&models.ScheduleItem{}).
					Where("category_id = ?", cat.ID).Pluck("id", &ids).Error; err != nil {
					return err
				}
				if itemSnap, err = captureItems(tx, ids); err != nil {
					return err
				}
				if err := tx.Delete(&models.ScheduleItem{}, "category_id = ?", cat.ID).Error; err != nil {
					return err
				}
			} else {
				var ids []uint
				if err := tx.Model(&models.Resource{}).
					Where("category_id = ?", cat.ID).Pluck("id", &ids).Error; err != nil {
					return err
				}
				if resSnap, err = captureResources(tx, ids); err != nil {
					return err
				}
				if err := tx.Delete(&models.Resource{}, "category_id = ?", cat.ID).Error; err != nil {
					return err
				}
			}
			if err := deleteCategoryRow(tx, kind, cat.ID); err != nil {
				return err
			}
			return shiftCategoryOrders(tx, kind, cat.Order+1, -1)
		})
	}
	restore := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if err := shiftCategoryOrders(tx, kind, cat.Order, 1); err != nil {
				return err
			}
			id := cat.ID
			if err := createCategory(tx, kind, &id, cat.Description, cat.Order); err != nil {
				return err
			}
			if itemSnap != nil {
				if err := itemSnap.restore(tx); err != nil {
					return err
				}
			}
			if resSnap != nil {
				if err := resSnap.restore(tx); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := remove(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Delete category %q", name), remove, restore)
	return nil
}

// ensureCategory finds or appends a category inside an open
// transaction, substituting UNCATEGORISED for empty names.
func ensureCategory(tx *gorm.DB, kind CategoryKind, name string) (*catRow, error) {
	if strings.TrimSpace(name) == "" {
		name = models.UncategorisedName
	}
	if row, err := categoryByName(tx, kind, name); err == nil {
		return row, nil
	}
	count, err := categoryCount(tx, kind)
	if err != nil {
		return nil, err
	}
	var id uint
	if err := createCategory(tx, kind, &id, name, count); err != nil {
		return nil, err
	}
	return &catRow{ID: id, Description: name, Order: count}, nil
}
