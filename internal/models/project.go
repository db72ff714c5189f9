package models

// Setting keys every project file carries.
const (
	KeyFileVersion         = "file_version"
	KeyProjectName         = "project_name"
	KeyProjectItemCode     = "project_item_code"
	KeyProjectResourceCode = "project_resource_code"
)

// FileVersion is the version tag written into new project files. Files
// carrying a greater tag are refused; lesser tags are migrated in place.
const FileVersion = "ESTIMATOR_FILE_REFERENCE_V2"

// ProjectSetting is one key/value pair of the project settings table.
type ProjectSetting struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

func (ProjectSetting) TableName() string {
	return "ProjectTable"
}
