package db

import (
	"gorm.io/gorm/clause"

	"github.com/heesms/carizon/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.RawListing{},
		&models.Listing{},
		&models.Vehicle{},
		&models.CodeMapping{},
		&models.ForcedMapping{},
		&models.PlatformPriority{},
		&models.PriceSnapshot{},
		&models.MergeRun{},
		&models.Maker{},
		&models.ModelGroup{},
		&models.Model{},
		&models.Trim{},
		&models.Grade{},
	)
}

// SeedPlatformPriorities makes sure every configured source has a
// priority row. Idempotent; existing rows are updated to the
// configured order.
func SeedPlatformPriorities(db *DB, priorities map[string]int) error {
	if db == nil || db.Gorm == nil || len(priorities) == 0 {
		return nil
	}
	rows := make([]models.PlatformPriority, 0, len(priorities))
	for source, pr := range priorities {
		rows = append(rows, models.PlatformPriority{Source: source, Priority: pr})
	}
	return db.Gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&rows).Error
}
