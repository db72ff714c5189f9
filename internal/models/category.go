package models

// UncategorisedName is the bucket created on demand for entries inserted
// without an explicit category.
const UncategorisedName = "UNCATEGORISED"

// SubAnalysisName is the internally managed schedule category holding
// items that double as resources.
const SubAnalysisName = "Sub Analysis"

// ScheduleCategory partitions schedule items. Order is a dense 0-based
// permutation across the table.
type ScheduleCategory struct {
	ID          uint   `gorm:"primaryKey"`
	Description string `gorm:"uniqueIndex;not null"`
	Order       int    `gorm:"column:order_;not null"`
}

func (ScheduleCategory) TableName() string {
	return "ScheduleCategoryTable"
}

// ResourceCategory partitions resources. Same ordering contract as
// ScheduleCategory.
type ResourceCategory struct {
	ID          uint   `gorm:"primaryKey"`
	Description string `gorm:"uniqueIndex;not null"`
	Order       int    `gorm:"column:order_;not null"`
}

func (ResourceCategory) TableName() string {
	return "ResourceCategoryTable"
}
