package store

import (
	"gorm.io/gorm"

	"github.com/civilworks/estimator/internal/models"
)

// itemSnapshot captures schedule rows with their sequences and resource
// references, so cascading deletes can be reversed exactly.
type itemSnapshot struct {
	items    []models.ScheduleItem
	seqs     []models.Sequence
	resItems []models.ResourceItem
}

// captureItems snapshots the given schedule items (parents before
// children) together with their dependent rows.
func captureItems(tx *gorm.DB, itemIDs []uint) (*itemSnapshot, error) {
	if len(itemIDs) == 0 {
		return &itemSnapshot{}, nil
	}
	snap := &itemSnapshot{}
	// Parents first so restore satisfies the self-referencing FK.
	if err := tx.Where("id IN ?", itemIDs).
		Order("parent_id IS NOT NULL").Order("id").
		Find(&snap.items).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id_sch IN ?", itemIDs).Order("id").
		Find(&snap.seqs).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id_sch IN ?", itemIDs).Order("id").
		Find(&snap.resItems).Error; err != nil {
		return nil, err
	}
	return snap, nil
}

// restore recreates the snapshot rows verbatim, IDs included.
func (snap *itemSnapshot) restore(tx *gorm.DB) error {
	for i := range snap.items {
		item := snap.items[i]
		item.Category = models.ScheduleCategory{}
		item.Parent = nil
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}
	for i := range snap.seqs {
		seq := snap.seqs[i]
		seq.Item = models.ScheduleItem{}
		if err := tx.Create(&seq).Error; err != nil {
			return err
		}
	}
	for i := range snap.resItems {
		ri := snap.resItems[i]
		ri.Item = models.ScheduleItem{}
		ri.Resource = models.Resource{}
		if err := tx.Create(&ri).Error; err != nil {
			return err
		}
	}
	return nil
}

// resourceSnapshot captures resources and the references pointing at
// them.
type resourceSnapshot struct {
	resources []models.Resource
	resItems  []models.ResourceItem
}

func captureResources(tx *gorm.DB, resourceIDs []uint) (*resourceSnapshot, error) {
	if len(resourceIDs) == 0 {
		return &resourceSnapshot{}, nil
	}
	snap := &resourceSnapshot{}
	if err := tx.Where("id IN ?", resourceIDs).Order("id").
		Find(&snap.resources).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id_res IN ?", resourceIDs).Order("id").
		Find(&snap.resItems).Error; err != nil {
		return nil, err
	}
	return snap, nil
}

func (snap *resourceSnapshot) restore(tx *gorm.DB) error {
	for i := range snap.resources {
		res := snap.resources[i]
		res.Category = models.ResourceCategory{}
		if err := tx.Create(&res).Error; err != nil {
			return err
		}
	}
	for i := range snap.resItems {
		ri := snap.resItems[i]
		ri.Item = models.ScheduleItem{}
		ri.Resource = models.Resource{}
		if err := tx.Create(&ri).Error; err != nil {
			return err
		}
	}
	return nil
}
