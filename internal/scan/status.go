package scan

import (
	"errors"
	"fmt"

	"github.com/zamorano/wiptrack/internal/directory"
	"github.com/zamorano/wiptrack/internal/models"
	"github.com/zamorano/wiptrack/internal/route"
	"github.com/zamorano/wiptrack/internal/wip"
	"github.com/zamorano/wiptrack/internal/workorder"
	"gorm.io/gorm"
)

// QuickStatus answers "where is this lot and what happens next". QtyMax is
// the ceiling for the next reported quantity (previous step's recorded
// quantity); nil means unrestricted, as at step 1.
type QuickStatus struct {
	WoNumber         string
	HasWip           bool
	Status           wip.Status
	CurrentStep      int
	ExpectedLocation string
	QtyMax           *uint
}

// GetStatus is the read-only projection of a lot's position. It takes no
// locks and never blocks writers; each call reads one consistent snapshot
// inside its own transaction. Returns nil when no work order exists for
// the lot.
func GetStatus(gdb *gorm.DB, lot string) (*QuickStatus, error) {
	var qs *QuickStatus
	err := gdb.Transaction(func(tx *gorm.DB) error {
		wo, err := workorder.FindByLot(tx, lot)
		if err != nil {
			return err
		}
		if wo == nil {
			return nil
		}

		activeRouteID, err := route.ActiveRouteID(tx, wo.ProductID)
		if err != nil {
			return err
		}

		item, err := wip.Find(tx, wo.ID, false)
		if err != nil {
			return err
		}

		if item == nil {
			qs = &QuickStatus{
				WoNumber:    lot,
				Status:      wip.StatusNone,
				CurrentStep: 1,
			}
			if activeRouteID != 0 {
				step1, err := route.StepByNumber(tx, activeRouteID, 1)
				if err != nil {
					return err
				}
				if step1 != nil {
					name, err := directory.LocationName(tx, step1.LocationID)
					if err != nil {
						return err
					}
					qs.ExpectedLocation = name
				}
			}
			return nil
		}

		qs = &QuickStatus{
			WoNumber: lot,
			HasWip:   true,
			Status:   wip.Status(item.Status),
		}

		var step models.RouteStep
		err = tx.Where("id = ? AND route_id = ?", item.CurrentStepID, item.RouteID).
			First(&step).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Corrupt step pointer: report the bare status.
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan: step %d of route %d: %w", item.CurrentStepID, item.RouteID, err)
		}

		qs.CurrentStep = step.StepNumber
		name, err := directory.LocationName(tx, step.LocationID)
		if err != nil {
			return err
		}
		qs.ExpectedLocation = name

		qs.QtyMax, err = previousQty(tx, item.ID, item.RouteID, step.StepNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	return qs, nil
}
