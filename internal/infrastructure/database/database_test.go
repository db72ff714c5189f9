package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilworks/estimator/internal/models"
)

func TestCheckVersionFreshFile(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	assert.NoError(t, CheckVersion(db))
}

// A file tagged newer than this build must be refused before any schema
// change has been applied to it.
func TestCheckVersionRefusesNewerWithoutMutation(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProjectSetting{}))
	require.NoError(t, db.Create(&models.ProjectSetting{
		Key:   models.KeyFileVersion,
		Value: "ESTIMATOR_FILE_REFERENCE_V3",
	}).Error)

	require.ErrorIs(t, CheckVersion(db), ErrMigration)
	assert.False(t, db.Migrator().HasTable(&models.ScheduleItem{}))
	assert.False(t, db.Migrator().HasTable(&models.Resource{}))
}

func TestStampVersionUpgradesOlderTag(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, db.Create(&models.ProjectSetting{
		Key:   models.KeyFileVersion,
		Value: "ESTIMATOR_FILE_REFERENCE_V1",
	}).Error)

	require.NoError(t, CheckVersion(db))
	require.NoError(t, StampVersion(db))

	var setting models.ProjectSetting
	require.NoError(t, db.Where("key = ?", models.KeyFileVersion).First(&setting).Error)
	assert.Equal(t, models.FileVersion, setting.Value)
}
