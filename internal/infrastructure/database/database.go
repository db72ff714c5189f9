// Package database opens and migrates the project file. A project is a
// single SQLite file exclusively owned by the process for the session;
// libraries are further files opened read-only.
package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/civilworks/estimator/internal/models"
)

// ErrMigration marks project files whose version tag is unrecognised or
// newer than this build understands.
var ErrMigration = errors.New("unsupported project file version")

// Open opens a GORM DB on the given SQLite project file, enabling
// foreign-key enforcement so table cascades apply.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", path, err)
	}
	// One connection: the file is exclusively owned for the session and
	// in-memory databases exist per connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// OpenMemory opens a fresh in-memory database, used by tests and by
// scratch imports.
func OpenMemory() (*gorm.DB, error) {
	return Open(":memory:")
}

// AutoMigrate creates or updates the project schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ProjectSetting{},
		&models.ScheduleCategory{},
		&models.ResourceCategory{},
		&models.ScheduleItem{},
		&models.Resource{},
		&models.Sequence{},
		&models.ResourceItem{},
	)
}

// CheckVersion validates the persisted file_version tag. It runs before
// AutoMigrate and never writes: newer files are refused with
// ErrMigration while the file is still untouched. Files without a
// settings table or tag are treated as new.
func CheckVersion(db *gorm.DB) error {
	if !db.Migrator().HasTable(&models.ProjectSetting{}) {
		return nil
	}
	var setting models.ProjectSetting
	err := db.Where("key = ?", models.KeyFileVersion).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if strings.Compare(setting.Value, models.FileVersion) > 0 {
		return fmt.Errorf("%w: %s", ErrMigration, setting.Value)
	}
	if setting.Value != models.FileVersion {
		log.Info().Str("from", setting.Value).Str("to", models.FileVersion).
			Msg("migrating project file in place")
	}
	return nil
}

// StampVersion writes the current file_version tag. Called after
// migration; older tags are updated in place (the v1 layout lacked the
// colour column, which AutoMigrate adds).
func StampVersion(db *gorm.DB) error {
	var setting models.ProjectSetting
	err := db.Where("key = ?", models.KeyFileVersion).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.ProjectSetting{
			Key:   models.KeyFileVersion,
			Value: models.FileVersion,
		}).Error
	}
	if err != nil {
		return err
	}
	if setting.Value == models.FileVersion {
		return nil
	}
	return db.Model(&models.ProjectSetting{}).
		Where("key = ?", models.KeyFileVersion).
		Update("value", models.FileVersion).Error
}
