package db

import (
	"fmt"

	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration, catalog tables first
// so foreign keys resolve.
func AllModels() []interface{} {
	return []interface{}{
		&models.Area{},
		&models.Family{},
		&models.Subfamily{},
		&models.Product{},
		&models.Location{},
		&models.Device{},
		&models.Route{},
		&models.RouteStep{},
		&models.WorkOrder{},
		&models.WipItem{},
		&models.StepExecution{},
		&models.ScanEvent{},
		&models.ReworkLog{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
