package store

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/models"
)

// ResourceInput carries the caller-facing fields of a resource; the
// category is addressed by name.
type ResourceInput struct {
	Code        string
	Description string
	Unit        string
	Rate        decimal.Decimal
	Vat         decimal.Decimal
	Discount    decimal.Decimal
	Reference   string
	Category    string
}

// ResourceGroup is one category's resources in display order.
type ResourceGroup struct {
	Category  string
	Resources []models.Resource
}

func resourceByCode(tx *gorm.DB, code string) (*models.Resource, error) {
	var row models.Resource
	err := tx.Where("code = ?", code).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: resource %q", ErrNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetResource returns the resource by code. With withLibraryPrefix the
// returned code is qualified by this store's project name unless it
// already carries a library prefix; reads from a bound library use this
// so imported codes stay globally unique.
func (s *Store) GetResource(code string, withLibraryPrefix bool) (*analysis.Resource, error) {
	row, err := resourceByCode(s.db, code)
	if err != nil {
		return nil, err
	}
	var cat models.ResourceCategory
	if err := s.db.First(&cat, row.CategoryID).Error; err != nil {
		return nil, err
	}
	out := &analysis.Resource{
		Code:        row.Code,
		Description: row.Description,
		Unit:        row.Unit,
		Rate:        row.Rate,
		Vat:         row.Vat,
		Discount:    row.Discount,
		Category:    cat.Description,
	}
	if row.Reference != nil {
		out.Reference = *row.Reference
	}
	if withLibraryPrefix {
		if lib, _ := models.SplitLibraryCode(out.Code); lib == "" {
			out.Code = models.JoinLibraryCode(s.ProjectName(), out.Code)
		}
	}
	return out, nil
}

// CheckInsertResource reports whether the resource would insert
// cleanly: non-empty code and description, code unused.
func (s *Store) CheckInsertResource(in ResourceInput) bool {
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Description) == "" {
		return false
	}
	_, err := resourceByCode(s.db, in.Code)
	return err != nil
}

func shiftResourceOrders(tx *gorm.DB, categoryID uint, from, delta int) error {
	return tx.Model(&models.Resource{}).
		Where("category_id = ? AND order_ >= ?", categoryID, from).
		Update("order_", gorm.Expr("order_ + ?", delta)).Error
}

// resourceInsertPos resolves a resource path. Nil appends at the end of
// the last category; [c] is position 0 of category c; [c, i] is after
// the i-th entry of category c.
func resourceInsertPos(tx *gorm.DB, path []int, fallbackCategory string) (*catRow, int, error) {
	if len(path) == 0 {
		var cat *catRow
		var err error
		if fallbackCategory != "" {
			cat, err = ensureCategory(tx, KindResource, fallbackCategory)
		} else {
			count, cerr := categoryCount(tx, KindResource)
			if cerr != nil {
				return nil, 0, cerr
			}
			if count == 0 {
				cat, err = ensureCategory(tx, KindResource, "")
			} else {
				cat, err = categoryByOrder(tx, KindResource, count-1)
			}
		}
		if err != nil {
			return nil, 0, err
		}
		var n int64
		if err := tx.Model(&models.Resource{}).
			Where("category_id = ?", cat.ID).Count(&n).Error; err != nil {
			return nil, 0, err
		}
		return cat, int(n), nil
	}

	cat, err := categoryByOrder(tx, KindResource, path[0])
	if err != nil {
		return nil, 0, err
	}
	switch len(path) {
	case 1:
		return cat, 0, nil
	case 2:
		return cat, path[1] + 1, nil
	default:
		return nil, 0, fmt.Errorf("%w: bad resource path %v", ErrValidation, path)
	}
}

// InsertResource creates a resource at the path position (or appended
// within its named category) and records an undo action. Duplicate
// codes fail with ErrIntegrity and leave the store unchanged.
func (s *Store) InsertResource(in ResourceInput, path []int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: empty resource code", ErrValidation)
	}

	var created models.Resource
	insert := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if _, err := resourceByCode(tx, in.Code); err == nil {
				return fmt.Errorf("%w: resource %q exists", ErrIntegrity, in.Code)
			}
			cat, pos, err := resourceInsertPos(tx, path, in.Category)
			if err != nil {
				return err
			}
			if err := shiftResourceOrders(tx, cat.ID, pos, 1); err != nil {
				return err
			}
			row := models.Resource{
				ID:          created.ID,
				Code:        in.Code,
				Description: in.Description,
				Unit:        in.Unit,
				Rate:        in.Rate,
				Vat:         in.Vat,
				Discount:    in.Discount,
				CategoryID:  cat.ID,
				Order:       pos,
			}
			if in.Reference != "" {
				row.Reference = &in.Reference
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			created = row
			return nil
		})
	}
	remove := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Resource{}, "id = ?", created.ID).Error; err != nil {
				return err
			}
			return shiftResourceOrders(tx, created.CategoryID, created.Order+1, -1)
		})
	}

	if err := insert(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Add resource %q", in.Code), insert, remove)
	return nil
}

// UpdateResource replaces the mutable fields of a resource as one
// undoable action. The category may change; ordering within the new
// category appends at the end.
func (s *Store) UpdateResource(code string, in ResourceInput) error {
	if err := s.mutable(); err != nil {
		return err
	}

	apply := func(target string, in ResourceInput) func() error {
		return func() error {
			return s.inTx(func(tx *gorm.DB) error {
				row, err := resourceByCode(tx, target)
				if err != nil {
					return err
				}
				if in.Code != target {
					if _, err := resourceByCode(tx, in.Code); err == nil {
						return fmt.Errorf("%w: resource %q exists", ErrIntegrity, in.Code)
					}
				}
				updates := map[string]any{
					"code":        in.Code,
					"description": in.Description,
					"unit":        in.Unit,
					"rate":        in.Rate,
					"vat":         in.Vat,
					"discount":    in.Discount,
				}
				if in.Reference != "" {
					updates["reference"] = in.Reference
				} else {
					updates["reference"] = nil
				}
				if in.Category != "" {
					cat, err := ensureCategory(tx, KindResource, in.Category)
					if err != nil {
						return err
					}
					if cat.ID != row.CategoryID {
						if err := shiftResourceOrders(tx, row.CategoryID, row.Order+1, -1); err != nil {
							return err
						}
						var n int64
						if err := tx.Model(&models.Resource{}).
							Where("category_id = ?", cat.ID).Count(&n).Error; err != nil {
							return err
						}
						updates["category_id"] = cat.ID
						updates["order_"] = int(n)
					}
				}
				return tx.Model(&models.Resource{}).Where("id = ?", row.ID).
					Updates(updates).Error
			})
		}
	}

	old, err := resourceByCode(s.db, code)
	if err != nil {
		return err
	}
	prior := *old
	target := in.Code
	if target == "" {
		target = code
	}

	// Undo restores the captured row directly, including its original
	// category slot, rather than re-applying the old input.
	revert := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			cur, err := resourceByCode(tx, target)
			if err != nil {
				return err
			}
			updates := map[string]any{
				"code":        prior.Code,
				"description": prior.Description,
				"unit":        prior.Unit,
				"rate":        prior.Rate,
				"vat":         prior.Vat,
				"discount":    prior.Discount,
			}
			if prior.Reference != nil {
				updates["reference"] = *prior.Reference
			} else {
				updates["reference"] = nil
			}
			if cur.CategoryID != prior.CategoryID || cur.Order != prior.Order {
				if err := shiftResourceOrders(tx, cur.CategoryID, cur.Order+1, -1); err != nil {
					return err
				}
				if err := shiftResourceOrders(tx, prior.CategoryID, prior.Order, 1); err != nil {
					return err
				}
				updates["category_id"] = prior.CategoryID
				updates["order_"] = prior.Order
			}
			return tx.Model(&models.Resource{}).Where("id = ?", cur.ID).
				Updates(updates).Error
		})
	}

	if err := apply(code, in)(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Update resource %q", code), apply(code, in), revert)
	return nil
}

// UpdateResourceField updates a single column undoably.
func (s *Store) UpdateResourceField(code, field string, value any) error {
	if err := s.mutable(); err != nil {
		return err
	}
	allowed := map[string]bool{
		"description": true, "unit": true, "rate": true,
		"vat": true, "discount": true, "reference": true,
	}
	if !allowed[field] {
		return fmt.Errorf("%w: field %q not updatable", ErrValidation, field)
	}
	row, err := resourceByCode(s.db, code)
	if err != nil {
		return err
	}
	old := resourceField(row, field)
	set := func(v any) func() error {
		return func() error {
			return s.inTx(func(tx *gorm.DB) error {
				return tx.Model(&models.Resource{}).Where("id = ?", row.ID).
					Update(field, v).Error
			})
		}
	}
	if err := set(value)(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Update resource %q %s", code, field), set(value), set(old))
	return nil
}

func resourceField(row *models.Resource, field string) any {
	switch field {
	case "description":
		return row.Description
	case "unit":
		return row.Unit
	case "rate":
		return row.Rate
	case "vat":
		return row.Vat
	case "discount":
		return row.Discount
	case "reference":
		if row.Reference == nil {
			return nil
		}
		return *row.Reference
	}
	return nil
}

// DeleteResource removes a resource, cascading to its analysis
// references; undo restores every captured row.
func (s *Store) DeleteResource(code string) error {
	if err := s.mutable(); err != nil {
		return err
	}

	var snap *resourceSnapshot
	var deleted models.Resource
	remove := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			row, err := resourceByCode(tx, code)
			if err != nil {
				return err
			}
			deleted = *row
			if snap, err = captureResources(tx, []uint{row.ID}); err != nil {
				return err
			}
			if err := tx.Delete(&models.ResourceItem{}, "id_res = ?", row.ID).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Resource{}, "id = ?", row.ID).Error; err != nil {
				return err
			}
			return shiftResourceOrders(tx, row.CategoryID, row.Order+1, -1)
		})
	}
	restore := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if err := shiftResourceOrders(tx, deleted.CategoryID, deleted.Order, 1); err != nil {
				return err
			}
			return snap.restore(tx)
		})
	}

	if err := remove(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Delete resource %q", code), remove, restore)
	return nil
}

// MoveResource relocates a resource to a new path position undoably.
func (s *Store) MoveResource(code string, path []int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	row, err := resourceByCode(s.db, code)
	if err != nil {
		return err
	}
	oldCat, oldOrder := row.CategoryID, row.Order

	move := func(toPath []int, toCat uint, toOrder int, byPath bool) func() error {
		return func() error {
			return s.inTx(func(tx *gorm.DB) error {
				cur, err := resourceByCode(tx, code)
				if err != nil {
					return err
				}
				if err := shiftResourceOrders(tx, cur.CategoryID, cur.Order+1, -1); err != nil {
					return err
				}
				catID, pos := toCat, toOrder
				if byPath {
					cat, p, err := resourceInsertPos(tx, toPath, "")
					if err != nil {
						return err
					}
					catID, pos = cat.ID, p
				}
				if err := shiftResourceOrders(tx, catID, pos, 1); err != nil {
					return err
				}
				return tx.Model(&models.Resource{}).Where("id = ?", cur.ID).
					Updates(map[string]any{"category_id": catID, "order_": pos}).Error
			})
		}
	}

	forward := move(path, 0, 0, true)
	if err := forward(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Move resource %q", code),
		forward, move(nil, oldCat, oldOrder, false))
	return nil
}

// GetResourceTable returns resources grouped by category in display
// order; a non-empty category restricts the result to it.
func (s *Store) GetResourceTable(category string) ([]ResourceGroup, error) {
	var cats []models.ResourceCategory
	q := s.db.Order("order_")
	if category != "" {
		q = q.Where("description = ?", category)
	}
	if err := q.Find(&cats).Error; err != nil {
		return nil, err
	}
	out := make([]ResourceGroup, 0, len(cats))
	for _, cat := range cats {
		var rows []models.Resource
		if err := s.db.Where("category_id = ?", cat.ID).
			Order("order_").Find(&rows).Error; err != nil {
			return nil, err
		}
		out = append(out, ResourceGroup{Category: cat.Description, Resources: rows})
	}
	return out, nil
}

// GetResourcesFlat returns resources as one ordered list.
func (s *Store) GetResourcesFlat(category string) ([]models.Resource, error) {
	groups, err := s.GetResourceTable(category)
	if err != nil {
		return nil, err
	}
	var out []models.Resource
	for _, g := range groups {
		out = append(out, g.Resources...)
	}
	return out, nil
}
