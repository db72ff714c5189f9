package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civilworks/estimator/internal/models"
)

// defaultSettings seed fresh project files.
var defaultSettings = map[string]string{
	models.KeyProjectName:         "New Project",
	models.KeyProjectItemCode:     "ITEM",
	models.KeyProjectResourceCode: "RES",
}

func (s *Store) seedSettings() error {
	return s.inTx(func(tx *gorm.DB) error {
		for key, value := range defaultSettings {
			var existing models.ProjectSetting
			if err := tx.Where("key = ?", key).First(&existing).Error; err == nil {
				continue
			}
			if err := tx.Create(&models.ProjectSetting{Key: key, Value: value}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ProjectSettings returns the full settings mapping.
func (s *Store) ProjectSettings() (map[string]string, error) {
	var rows []models.ProjectSetting
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Setting returns one settings value, or "" when the key is absent.
func (s *Store) Setting(key string) string {
	var row models.ProjectSetting
	if err := s.db.Where("key = ?", key).First(&row).Error; err != nil {
		return ""
	}
	return row.Value
}

// SetProjectSettings upserts the given mapping as one undoable action.
func (s *Store) SetProjectSettings(settings map[string]string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	old, err := s.ProjectSettings()
	if err != nil {
		return err
	}

	apply := func(m map[string]string) error {
		return s.inTx(func(tx *gorm.DB) error {
			for key, value := range m {
				row := models.ProjectSetting{Key: key, Value: value}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "key"}},
					DoUpdates: clause.AssignmentColumns([]string{"value"}),
				}).Create(&row).Error; err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := apply(settings); err != nil {
		return err
	}
	s.push("Update project settings",
		func() error { return apply(settings) },
		func() error {
			// Restore prior values and drop keys the action introduced.
			return s.inTx(func(tx *gorm.DB) error {
				for key := range settings {
					if _, existed := old[key]; !existed {
						if err := tx.Delete(&models.ProjectSetting{}, "key = ?", key).Error; err != nil {
							return err
						}
					}
				}
				for key, value := range old {
					if err := tx.Model(&models.ProjectSetting{}).
						Where("key = ?", key).Update("value", value).Error; err != nil {
						return err
					}
				}
				return nil
			})
		})
	return nil
}

// ProjectName returns the project_name setting.
func (s *Store) ProjectName() string { return s.Setting(models.KeyProjectName) }
