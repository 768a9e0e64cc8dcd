// Package workorder maintains the lot → work order mapping.
package workorder

import (
	"errors"
	"fmt"

	"github.com/zamorano/wiptrack/internal/db"
	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// GetOrCreate returns the work order ID for a lot, creating the work order
// with status OPEN when the lot has never been seen. The lookup runs under
// an exclusive row lock inside the caller's transaction, so concurrent
// first scans against the same lot serialize instead of double-inserting.
func GetOrCreate(tx *gorm.DB, lot string, productID uint) (uint, error) {
	var wo models.WorkOrder
	err := db.ForUpdate(tx).Where("wo_number = ?", lot).First(&wo).Error
	if err == nil {
		return wo.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("workorder: lookup lot %q: %w", lot, err)
	}

	wo = models.WorkOrder{
		WoNumber:  lot,
		ProductID: productID,
		Status:    "OPEN",
	}
	if err := tx.Create(&wo).Error; err != nil {
		return 0, fmt.Errorf("workorder: create for lot %q: %w", lot, err)
	}
	return wo.ID, nil
}

// FindByLot returns the work order for a lot, or nil when none exists.
func FindByLot(tx *gorm.DB, lot string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := tx.Where("wo_number = ?", lot).First(&wo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workorder: find lot %q: %w", lot, err)
	}
	return &wo, nil
}
