package database

import (
	"fmt"

	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"gorm.io/gorm"
)

// RunMigrations brings the schema up to date with the model package.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Recipe{}); err != nil {
		return fmt.Errorf("failed to migrate recipes: %w", err)
	}

	// cascade lookups are always scoped by source
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(
			`CREATE INDEX IF NOT EXISTS idx_recipes_source_name ON recipes (source, name) WHERE deleted_at IS NULL`,
		).Error; err != nil {
			return fmt.Errorf("failed to create source/name index: %w", err)
		}
	}
	return nil
}
