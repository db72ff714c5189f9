package store

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/civilworks/estimator/internal/analysis"
	"github.com/civilworks/estimator/internal/codes"
	"github.com/civilworks/estimator/internal/models"
)

// ItemNode is one top-level schedule item with its children in
// suborder.
type ItemNode struct {
	Item     models.ScheduleItem
	Children []models.ScheduleItem
}

// ItemGroup is one schedule category's items in display order.
type ItemGroup struct {
	Category string
	Nodes    []ItemNode
}

func itemByCode(tx *gorm.DB, code string) (*models.ScheduleItem, error) {
	var row models.ScheduleItem
	err := tx.Where("code = ?", code).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: item %q", ErrNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func shiftItemOrders(tx *gorm.DB, categoryID uint, from, delta int) error {
	return tx.Model(&models.ScheduleItem{}).
		Where("category_id = ? AND parent_id IS NULL AND order_ >= ?", categoryID, from).
		Update("order_", gorm.Expr("order_ + ?", delta)).Error
}

func shiftItemSuborders(tx *gorm.DB, parentID uint, from, delta int) error {
	return tx.Model(&models.ScheduleItem{}).
		Where("parent_id = ? AND suborder >= ?", parentID, from).
		Update("suborder", gorm.Expr("suborder + ?", delta)).Error
}

// itemTarget is a resolved insertion point.
type itemTarget struct {
	cat      catRow
	parentID *uint
	order    int
	suborder *int
}

// resolveItemPath maps a schedule path onto a concrete position:
// nil appends at the end of category 0; [c] is position 0 of category
// c; [c, i] after the i-th top-level item; [c, i, j] after the j-th
// child of the parent at [c, i]. Inserting under a unit-carrying leaf
// is rejected by appending after the leaf instead.
func resolveItemPath(tx *gorm.DB, path []int) (*itemTarget, error) {
	if len(path) > 3 {
		return nil, fmt.Errorf("%w: bad schedule path %v", ErrValidation, path)
	}

	if len(path) == 0 {
		cat, err := ensureCategory(tx, KindSchedule, pickFirstCategory(tx))
		if err != nil {
			return nil, err
		}
		var n int64
		if err := tx.Model(&models.ScheduleItem{}).
			Where("category_id = ? AND parent_id IS NULL", cat.ID).
			Count(&n).Error; err != nil {
			return nil, err
		}
		return &itemTarget{cat: *cat, order: int(n)}, nil
	}

	cat, err := categoryByOrder(tx, KindSchedule, path[0])
	if err != nil {
		return nil, err
	}
	switch len(path) {
	case 1:
		return &itemTarget{cat: *cat, order: 0}, nil
	case 2:
		return &itemTarget{cat: *cat, order: path[1] + 1}, nil
	default:
		var parent models.ScheduleItem
		err := tx.Where("category_id = ? AND parent_id IS NULL AND order_ = ?",
			cat.ID, path[1]).First(&parent).Error
		if err != nil {
			return nil, fmt.Errorf("%w: no item at path %v", ErrNotFound, path[:2])
		}
		if !parent.IsHeader() {
			// Leaf items take no children; fall back to a sibling slot.
			return &itemTarget{cat: *cat, order: path[1] + 1}, nil
		}
		sub := path[2] + 1
		return &itemTarget{cat: *cat, parentID: &parent.ID, order: parent.Order, suborder: &sub}, nil
	}
}

// pickFirstCategory names category 0, or "" when the table is empty
// (ensureCategory then creates UNCATEGORISED).
func pickFirstCategory(tx *gorm.DB) string {
	row, err := categoryByOrder(tx, KindSchedule, 0)
	if err != nil {
		return ""
	}
	return row.Description
}

// GetItem loads a schedule item as an in-memory analysis model. With
// copyAna the step program and resource dictionary are loaded too.
// withLibraryPrefix qualifies the code by this store's project name.
func (s *Store) GetItem(code string, withLibraryPrefix, copyAna bool) (*analysis.Model, error) {
	row, err := itemByCode(s.db, code)
	if err != nil {
		return nil, err
	}
	var cat models.ScheduleCategory
	if err := s.db.First(&cat, row.CategoryID).Error; err != nil {
		return nil, err
	}

	m := analysis.NewModel(row.Code, row.Description, row.Unit)
	m.Rate = row.Rate
	m.Qty = row.Qty
	m.Remarks = row.Remarks
	m.AnaRemarks = row.AnaRemarks
	m.Category = cat.Description
	if row.Colour != nil {
		m.Colour = *row.Colour
	}
	if row.ParentID != nil {
		var parent models.ScheduleItem
		if err := s.db.First(&parent, *row.ParentID).Error; err == nil {
			m.Parent = parent.Code
		}
	}

	if copyAna {
		if err := s.loadAnalysis(row.ID, m); err != nil {
			return nil, err
		}
	}
	if withLibraryPrefix {
		if lib, _ := models.SplitLibraryCode(m.Code); lib == "" {
			m.Code = models.JoinLibraryCode(s.ProjectName(), m.Code)
		}
	}
	return m, nil
}

func (s *Store) loadAnalysis(itemID uint, m *analysis.Model) error {
	var seqs []models.Sequence
	if err := s.db.Where("id_sch = ?", itemID).Order("id_seq").Find(&seqs).Error; err != nil {
		return err
	}
	var refs []models.ResourceItem
	if err := s.db.Where("id_sch = ?", itemID).Order("id").Find(&refs).Error; err != nil {
		return err
	}
	refsBySeq := map[int][]models.ResourceItem{}
	for _, r := range refs {
		refsBySeq[r.IDSeq] = append(refsBySeq[r.IDSeq], r)
	}

	for _, seq := range seqs {
		desc := strOrEmpty(seq.Description)
		switch seq.ItemType {
		case models.StepGroup:
			m.AppendGroup(desc, strOrEmpty(seq.Code))
			for _, ref := range refsBySeq[seq.IDSeq] {
				var res models.Resource
				if err := s.db.First(&res, ref.IDRes).Error; err != nil {
					return fmt.Errorf("%w: resource id %d", ErrNotFound, ref.IDRes)
				}
				var resCat models.ResourceCategory
				_ = s.db.First(&resCat, res.CategoryID).Error
				m.SetResource(&analysis.Resource{
					Code:        res.Code,
					Description: res.Description,
					Unit:        res.Unit,
					Rate:        res.Rate,
					Vat:         res.Vat,
					Discount:    res.Discount,
					Reference:   strOrEmpty(res.Reference),
					Category:    resCat.Description,
				})
				if err := m.AppendLine(res.Code, ref.Qty, strOrEmpty(ref.Remarks)); err != nil {
					return err
				}
			}
		case models.StepSum:
			m.AppendSum(desc)
		case models.StepWeight:
			m.AppendWeight(desc, derefDecimal(seq.Value))
		case models.StepTimes:
			m.AppendTimes(desc, derefDecimal(seq.Value))
		case models.StepRound:
			m.AppendRound(desc, derefDecimal(seq.Value))
		default:
			return fmt.Errorf("%w: sequence type %d", ErrInternal, seq.ItemType)
		}
	}
	return nil
}

// writeAnalysis replaces the persisted step program of an item with the
// model's. Resources referenced by lines but absent from the catalog
// are created, appended inside their category; created resource and
// category rows are returned for undo capture.
func writeAnalysis(tx *gorm.DB, itemID uint, m *analysis.Model) ([]models.Resource, []catRow, error) {
	if err := tx.Delete(&models.ResourceItem{}, "id_sch = ?", itemID).Error; err != nil {
		return nil, nil, err
	}
	if err := tx.Delete(&models.Sequence{}, "id_sch = ?", itemID).Error; err != nil {
		return nil, nil, err
	}

	var created []models.Resource
	var createdCats []catRow
	for i, step := range m.Steps {
		seq := models.Sequence{
			IDSeq:    i,
			IDSch:    itemID,
			ItemType: step.Kind,
		}
		if step.Description != "" {
			d := step.Description
			seq.Description = &d
		}
		if step.Code != "" {
			c := step.Code
			seq.Code = &c
		}
		switch step.Kind {
		case models.StepWeight, models.StepTimes, models.StepRound:
			v := step.Value
			seq.Value = &v
		}
		if err := tx.Create(&seq).Error; err != nil {
			return created, createdCats, err
		}
		if step.Kind != models.StepGroup {
			continue
		}
		for _, line := range step.Lines {
			res, err := resourceByCode(tx, line.Code)
			if err != nil {
				mr, ok := m.Resources[line.Code]
				if !ok {
					return created, createdCats, fmt.Errorf("%w: resource %q", ErrNotFound, line.Code)
				}
				catName := mr.Category
				if strings.TrimSpace(catName) == "" {
					catName = models.UncategorisedName
				}
				_, lookupErr := categoryByName(tx, KindResource, catName)
				cat, cerr := ensureCategory(tx, KindResource, catName)
				if cerr != nil {
					return created, createdCats, cerr
				}
				if lookupErr != nil {
					createdCats = append(createdCats, *cat)
				}
				var n int64
				if err := tx.Model(&models.Resource{}).
					Where("category_id = ?", cat.ID).Count(&n).Error; err != nil {
					return created, createdCats, err
				}
				row := models.Resource{
					Code:        mr.Code,
					Description: mr.Description,
					Unit:        mr.Unit,
					Rate:        mr.Rate,
					Vat:         mr.Vat,
					Discount:    mr.Discount,
					CategoryID:  cat.ID,
					Order:       int(n),
				}
				if mr.Reference != "" {
					row.Reference = &mr.Reference
				}
				if err := tx.Create(&row).Error; err != nil {
					return created, createdCats, err
				}
				created = append(created, row)
				res = &row
			}
			ref := models.ResourceItem{
				IDSch: itemID,
				IDSeq: i,
				IDRes: res.ID,
				Qty:   line.Qty,
			}
			if line.Remark != "" {
				r := line.Remark
				ref.Remarks = &r
			}
			if err := tx.Create(&ref).Error; err != nil {
				return created, createdCats, err
			}
		}
	}
	return created, createdCats, nil
}

// removeCreated deletes the resource and category rows an analysis
// write introduced, repacking the orders they occupied.
func removeCreated(tx *gorm.DB, res []models.Resource, cats []catRow) error {
	for _, r := range res {
		if err := tx.Delete(&models.Resource{}, "id = ?", r.ID).Error; err != nil {
			return err
		}
		if err := shiftResourceOrders(tx, r.CategoryID, r.Order+1, -1); err != nil {
			return err
		}
	}
	for _, c := range cats {
		if err := deleteCategoryRow(tx, KindResource, c.ID); err != nil {
			return err
		}
		if err := shiftCategoryOrders(tx, KindResource, c.Order+1, -1); err != nil {
			return err
		}
	}
	return nil
}

// InsertItem inserts (or with update, replaces) a schedule item and its
// analysis, returning the final code. Duplicate codes without update
// fail with ErrIntegrity; a missing parent reference downgrades to a
// top-level item with a warning.
func (s *Store) InsertItem(m *analysis.Model, path []int, update, renumberByPath bool) (string, error) {
	if err := s.mutable(); err != nil {
		return "", err
	}
	if strings.TrimSpace(m.Code) == "" && !renumberByPath {
		return "", fmt.Errorf("%w: empty item code", ErrValidation)
	}

	var created *itemSnapshot
	var createdRes []models.Resource
	var createdCats []catRow
	var replaced *itemSnapshot
	var target *itemTarget
	finalCode := m.Code

	forward := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			existing, err := itemByCode(tx, finalCode)
			if err == nil {
				if !update {
					return fmt.Errorf("%w: item %q exists", ErrIntegrity, finalCode)
				}
				return s.replaceItem(tx, existing, m, &replaced, &createdRes, &createdCats)
			}

			t, err := resolveItemPathForModel(tx, path, m)
			if err != nil {
				return err
			}
			target = t
			if renumberByPath {
				finalCode = s.nextCodeAt(tx, t)
			}

			if t.parentID != nil {
				if err := shiftItemSuborders(tx, *t.parentID, *t.suborder, 1); err != nil {
					return err
				}
			} else {
				if err := shiftItemOrders(tx, t.cat.ID, t.order, 1); err != nil {
					return err
				}
			}

			row := models.ScheduleItem{
				Code:        finalCode,
				Description: m.Description,
				Unit:        m.Unit,
				Rate:        m.Rate,
				Qty:         m.Qty,
				Remarks:     m.Remarks,
				AnaRemarks:  m.AnaRemarks,
				CategoryID:  t.cat.ID,
				ParentID:    t.parentID,
				Order:       t.order,
				Suborder:    t.suborder,
			}
			if m.Colour != "" {
				c := m.Colour
				row.Colour = &c
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			res, cats, err := writeAnalysis(tx, row.ID, m)
			if err != nil {
				return err
			}
			createdRes, createdCats = res, cats
			created, err = captureItems(tx, []uint{row.ID})
			return err
		})
	}

	replay := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			// Recreate the rows the original run introduced, IDs
			// intact, so writeAnalysis binds them instead of minting
			// new ones.
			for _, c := range createdCats {
				id := c.ID
				if err := createCategory(tx, KindResource, &id, c.Description, c.Order); err != nil {
					return err
				}
			}
			for i := range createdRes {
				r := createdRes[i]
				r.Category = models.ResourceCategory{}
				if err := tx.Create(&r).Error; err != nil {
					return err
				}
			}
			if replaced != nil {
				return s.replaceItem(tx, &replaced.items[0], m,
					new(*itemSnapshot), new([]models.Resource), new([]catRow))
			}
			if target.parentID != nil {
				if err := shiftItemSuborders(tx, *target.parentID, *target.suborder, 1); err != nil {
					return err
				}
			} else {
				if err := shiftItemOrders(tx, target.cat.ID, target.order, 1); err != nil {
					return err
				}
			}
			return created.restore(tx)
		})
	}

	reverse := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if replaced != nil {
				item := replaced.items[0]
				if _, err := writeAnalysisRows(tx, replaced); err != nil {
					return err
				}
				if err := tx.Model(&models.ScheduleItem{}).Where("id = ?", item.ID).
					Updates(itemColumns(&item)).Error; err != nil {
					return err
				}
				return removeCreated(tx, createdRes, createdCats)
			}
			id := created.items[0].ID
			if err := tx.Delete(&models.ScheduleItem{}, "id = ?", id).Error; err != nil {
				return err
			}
			if target.parentID != nil {
				if err := shiftItemSuborders(tx, *target.parentID, *target.suborder+1, -1); err != nil {
					return err
				}
			} else {
				if err := shiftItemOrders(tx, target.cat.ID, target.order+1, -1); err != nil {
					return err
				}
			}
			return removeCreated(tx, createdRes, createdCats)
		})
	}

	if err := forward(); err != nil {
		return "", err
	}
	s.push(fmt.Sprintf("Add item %q", finalCode), replay, reverse)
	return finalCode, nil
}

// replaceItem rewrites an existing item's fields and analysis in place,
// capturing the prior tree for undo.
func (s *Store) replaceItem(tx *gorm.DB, existing *models.ScheduleItem,
	m *analysis.Model, prior **itemSnapshot, createdRes *[]models.Resource,
	createdCats *[]catRow) error {
	snap, err := captureItems(tx, []uint{existing.ID})
	if err != nil {
		return err
	}
	*prior = snap
	updates := map[string]any{
		"description": m.Description,
		"unit":        m.Unit,
		"rate":        m.Rate,
		"qty":         m.Qty,
		"remarks":     m.Remarks,
		"ana_remarks": m.AnaRemarks,
	}
	if m.Colour != "" {
		updates["colour"] = m.Colour
	}
	if err := tx.Model(&models.ScheduleItem{}).Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return err
	}
	res, cats, err := writeAnalysis(tx, existing.ID, m)
	if err != nil {
		return err
	}
	*createdRes = res
	*createdCats = cats
	return nil
}

// writeAnalysisRows restores captured sequence and reference rows after
// dropping the current program.
func writeAnalysisRows(tx *gorm.DB, snap *itemSnapshot) (int, error) {
	itemID := snap.items[0].ID
	if err := tx.Delete(&models.ResourceItem{}, "id_sch = ?", itemID).Error; err != nil {
		return 0, err
	}
	if err := tx.Delete(&models.Sequence{}, "id_sch = ?", itemID).Error; err != nil {
		return 0, err
	}
	for i := range snap.seqs {
		seq := snap.seqs[i]
		seq.Item = models.ScheduleItem{}
		if err := tx.Create(&seq).Error; err != nil {
			return 0, err
		}
	}
	for i := range snap.resItems {
		ref := snap.resItems[i]
		ref.Item = models.ScheduleItem{}
		ref.Resource = models.Resource{}
		if err := tx.Create(&ref).Error; err != nil {
			return 0, err
		}
	}
	return len(snap.seqs), nil
}

func itemColumns(item *models.ScheduleItem) map[string]any {
	cols := map[string]any{
		"description": item.Description,
		"unit":        item.Unit,
		"rate":        item.Rate,
		"qty":         item.Qty,
		"remarks":     item.Remarks,
		"ana_remarks": item.AnaRemarks,
		"category_id": item.CategoryID,
		"order_":      item.Order,
	}
	cols["parent_id"] = item.ParentID
	cols["suborder"] = item.Suborder
	cols["colour"] = item.Colour
	return cols
}

// resolveItemPathForModel resolves the insertion point, preferring the
// model's parent code when the path does not name one.
func resolveItemPathForModel(tx *gorm.DB, path []int, m *analysis.Model) (*itemTarget, error) {
	if len(path) < 3 && m.Parent != "" {
		parent, err := itemByCode(tx, m.Parent)
		if err != nil {
			log.Warn().Str("item", m.Code).Str("parent", m.Parent).
				Msg("parent not found; inserting at top level")
		} else if parent.IsHeader() {
			var cat models.ScheduleCategory
			if err := tx.First(&cat, parent.CategoryID).Error; err != nil {
				return nil, err
			}
			var n int64
			if err := tx.Model(&models.ScheduleItem{}).
				Where("parent_id = ?", parent.ID).Count(&n).Error; err != nil {
				return nil, err
			}
			sub := int(n)
			return &itemTarget{
				cat:      catRow{ID: cat.ID, Description: cat.Description, Order: cat.Order},
				parentID: &parent.ID,
				order:    parent.Order,
				suborder: &sub,
			}, nil
		}
	}
	if len(path) == 0 && m.Category != "" {
		cat, err := ensureCategory(tx, KindSchedule, m.Category)
		if err != nil {
			return nil, err
		}
		var n int64
		if err := tx.Model(&models.ScheduleItem{}).
			Where("category_id = ? AND parent_id IS NULL", cat.ID).
			Count(&n).Error; err != nil {
			return nil, err
		}
		return &itemTarget{cat: *cat, order: int(n)}, nil
	}
	return resolveItemPath(tx, path)
}

// nextCodeAt derives a fresh code near the insertion point.
func (s *Store) nextCodeAt(tx *gorm.DB, t *itemTarget) string {
	exists := func(c string) bool {
		_, err := itemByCode(tx, c)
		return err == nil
	}
	var near models.ScheduleItem
	q := tx.Where("category_id = ? AND parent_id IS NULL", t.cat.ID)
	if t.parentID != nil {
		q = tx.Where("parent_id = ?", *t.parentID)
	}
	if err := q.Order("order_ DESC").First(&near).Error; err != nil {
		return codes.Next("", false, 1, exists)
	}
	return codes.Next(near.Code, false, 1, exists)
}

// DeleteItem removes an item, cascading to its children and analysis;
// undo restores every captured row.
func (s *Store) DeleteItem(code string) error {
	if err := s.mutable(); err != nil {
		return err
	}

	var snap *itemSnapshot
	var deleted models.ScheduleItem
	remove := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			row, err := itemByCode(tx, code)
			if err != nil {
				return err
			}
			deleted = *row
			ids := []uint{row.ID}
			var childIDs []uint
			if err := tx.Model(&models.ScheduleItem{}).
				Where("parent_id = ?", row.ID).Pluck("id", &childIDs).Error; err != nil {
				return err
			}
			ids = append(ids, childIDs...)
			if snap, err = captureItems(tx, ids); err != nil {
				return err
			}
			if err := tx.Delete(&models.ScheduleItem{}, "id IN ?", ids).Error; err != nil {
				return err
			}
			if row.ParentID != nil {
				return shiftItemSuborders(tx, *row.ParentID, derefInt(row.Suborder)+1, -1)
			}
			return shiftItemOrders(tx, row.CategoryID, row.Order+1, -1)
		})
	}
	restore := func() error {
		return s.inTx(func(tx *gorm.DB) error {
			if deleted.ParentID != nil {
				if err := shiftItemSuborders(tx, *deleted.ParentID, derefInt(deleted.Suborder), 1); err != nil {
					return err
				}
			} else {
				if err := shiftItemOrders(tx, deleted.CategoryID, deleted.Order, 1); err != nil {
					return err
				}
			}
			return snap.restore(tx)
		})
	}

	if err := remove(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Delete item %q", code), remove, restore)
	return nil
}

// UpdateItemField updates a single column of an item undoably.
func (s *Store) UpdateItemField(code, field string, value any) error {
	if err := s.mutable(); err != nil {
		return err
	}
	allowed := map[string]bool{
		"description": true, "unit": true, "rate": true, "qty": true,
		"remarks": true, "ana_remarks": true,
	}
	if !allowed[field] {
		return fmt.Errorf("%w: field %q not updatable", ErrValidation, field)
	}
	row, err := itemByCode(s.db, code)
	if err != nil {
		return err
	}
	old := itemField(row, field)
	set := func(v any) func() error {
		return func() error {
			return s.inTx(func(tx *gorm.DB) error {
				return tx.Model(&models.ScheduleItem{}).Where("id = ?", row.ID).
					Update(field, v).Error
			})
		}
	}
	if err := set(value)(); err != nil {
		return err
	}
	s.push(fmt.Sprintf("Update item %q %s", code, field), set(value), set(old))
	return nil
}

func itemField(row *models.ScheduleItem, field string) any {
	switch field {
	case "description":
		return row.Description
	case "unit":
		return row.Unit
	case "rate":
		return row.Rate
	case "qty":
		return row.Qty
	case "remarks":
		return row.Remarks
	case "ana_remarks":
		return row.AnaRemarks
	}
	return nil
}

// UpdateItemColour sets the colour of the given items as one action.
// An empty colour clears it.
func (s *Store) UpdateItemColour(itemCodes []string, colour string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	old := map[string]*string{}
	for _, code := range itemCodes {
		row, err := itemByCode(s.db, code)
		if err != nil {
			return err
		}
		old[code] = row.Colour
	}
	apply := func(get func(code string) any) func() error {
		return func() error {
			return s.inTx(func(tx *gorm.DB) error {
				for _, code := range itemCodes {
					if err := tx.Model(&models.ScheduleItem{}).
						Where("code = ?", code).
						Update("colour", get(code)).Error; err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	forward := apply(func(string) any {
		if colour == "" {
			return nil
		}
		return colour
	})
	if err := forward(); err != nil {
		return err
	}
	s.push("Update item colour", forward, apply(func(code string) any {
		if old[code] == nil {
			return nil
		}
		return *old[code]
	}))
	return nil
}

// GetItemTable returns schedule items grouped by category with
// parent/child structure; a non-empty category restricts the result.
func (s *Store) GetItemTable(category string) ([]ItemGroup, error) {
	var cats []models.ScheduleCategory
	q := s.db.Order("order_")
	if category != "" {
		q = q.Where("description = ?", category)
	}
	if err := q.Find(&cats).Error; err != nil {
		return nil, err
	}
	out := make([]ItemGroup, 0, len(cats))
	for _, cat := range cats {
		var tops []models.ScheduleItem
		if err := s.db.Where("category_id = ? AND parent_id IS NULL", cat.ID).
			Order("order_").Find(&tops).Error; err != nil {
			return nil, err
		}
		nodes := make([]ItemNode, 0, len(tops))
		for _, top := range tops {
			var children []models.ScheduleItem
			if err := s.db.Where("parent_id = ?", top.ID).
				Order("suborder").Find(&children).Error; err != nil {
				return nil, err
			}
			nodes = append(nodes, ItemNode{Item: top, Children: children})
		}
		out = append(out, ItemGroup{Category: cat.Description, Nodes: nodes})
	}
	return out, nil
}

// GetItemsFlat returns items as one display-ordered list, parents
// directly before their children.
func (s *Store) GetItemsFlat(category string) ([]models.ScheduleItem, error) {
	groups, err := s.GetItemTable(category)
	if err != nil {
		return nil, err
	}
	var out []models.ScheduleItem
	for _, g := range groups {
		for _, n := range g.Nodes {
			out = append(out, n.Item)
			out = append(out, n.Children...)
		}
	}
	return out, nil
}

// ItemCodes returns every schedule code in display order.
func (s *Store) ItemCodes() ([]string, error) {
	items, err := s.GetItemsFlat("")
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Code
	}
	return out, nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefDecimal(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}
