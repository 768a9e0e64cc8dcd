package route

import (
	"errors"
	"fmt"

	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// Activate makes a historical route version the active one for its
// subfamily. Activating the already-active route is a no-op. The switch is
// refused while the currently active route has WIP in flight; the in-flight
// check and the activation writes share one transaction so no WIP can slip
// in between them.
func Activate(gdb *gorm.DB, routeID uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		var target models.Route
		err := tx.Where("id = ?", routeID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("route: route %d not found", routeID)
		}
		if err != nil {
			return fmt.Errorf("route: load %d: %w", routeID, err)
		}

		if target.Active {
			return nil
		}

		current, err := activeRoute(tx, target.SubfamilyID)
		if err != nil {
			return err
		}
		if current != nil {
			n, err := CountInFlight(tx, current.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("route: cannot switch active version: %d WIP item(s) in flight on route %d", n, current.ID)
			}
		}

		if err := deactivateAll(tx, target.SubfamilyID); err != nil {
			return err
		}
		if err := tx.Model(&models.Route{}).
			Where("id = ?", target.ID).
			Update("active", true).Error; err != nil {
			return fmt.Errorf("route: activate %d: %w", target.ID, err)
		}
		return setActivePointer(tx, target.SubfamilyID, &target.ID)
	})
}
