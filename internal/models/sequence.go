package models

import "github.com/shopspring/decimal"

// Sequence step kinds, stored in SequenceTable.itemtype.
const (
	StepGroup = iota
	StepSum
	StepWeight
	StepTimes
	StepRound
)

// Sequence is one analysis step of a schedule item. IDSeq is a dense
// 0-based ordinal giving the evaluation order within the item.
type Sequence struct {
	ID          uint             `gorm:"primaryKey"`
	IDSeq       int              `gorm:"column:id_seq;not null;uniqueIndex:idx_seq_sch"`
	IDSch       uint             `gorm:"column:id_sch;not null;uniqueIndex:idx_seq_sch;index"`
	ItemType    int              `gorm:"column:itemtype;not null"`
	Value       *decimal.Decimal `gorm:"column:value;type:decimal(20,6)"`
	Code        *string          `gorm:"column:code"`
	Description *string          `gorm:"column:description"`

	Item ScheduleItem `gorm:"foreignKey:IDSch;constraint:OnDelete:CASCADE"`
}

func (Sequence) TableName() string {
	return "SequenceTable"
}

// ResourceItem is one resource line of a GROUP step, unique by
// (schedule, step, resource).
type ResourceItem struct {
	ID      uint            `gorm:"primaryKey"`
	IDSch   uint            `gorm:"column:id_sch;not null;uniqueIndex:idx_resitem;index"`
	IDSeq   int             `gorm:"column:id_seq;not null;uniqueIndex:idx_resitem"`
	IDRes   uint            `gorm:"column:id_res;not null;uniqueIndex:idx_resitem;index"`
	Qty     decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Remarks *string         `gorm:"column:remarks"`

	Item     ScheduleItem `gorm:"foreignKey:IDSch;constraint:OnDelete:CASCADE"`
	Resource Resource     `gorm:"foreignKey:IDRes;constraint:OnDelete:CASCADE"`
}

func (ResourceItem) TableName() string {
	return "ResourceItemTable"
}
