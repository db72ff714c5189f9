package models

import "github.com/shopspring/decimal"

// ScheduleItem is one row of the bill of quantities. An item with an
// empty unit is a header and owns children (which carry Suborder);
// items with a unit are priced leaves.
type ScheduleItem struct {
	ID          uint            `gorm:"primaryKey"`
	Code        string          `gorm:"uniqueIndex;not null"`
	Description string          `gorm:"not null"`
	Unit        string          `gorm:"not null;default:''"`
	Rate        decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Qty         decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Remarks     string          `gorm:"not null;default:''"`
	AnaRemarks  string          `gorm:"column:ana_remarks;not null;default:''"`
	CategoryID  uint            `gorm:"not null;index"`
	ParentID    *uint           `gorm:"index"`
	Order       int             `gorm:"column:order_;not null"`
	Suborder    *int            `gorm:"column:suborder"`
	Colour      *string         `gorm:"column:colour"`

	Category ScheduleCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	Parent   *ScheduleItem    `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
}

func (ScheduleItem) TableName() string {
	return "ScheduleTable"
}

// IsHeader reports whether the item is a parent header row (no unit).
func (s *ScheduleItem) IsHeader() bool {
	return s.Unit == ""
}
