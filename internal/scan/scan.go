// Package scan validates reported movements against a unit's expected
// position and advances or closes the unit's WIP item.
package scan

import (
	"errors"
	"fmt"

	"github.com/zamorano/wiptrack/internal/db"
	"github.com/zamorano/wiptrack/internal/directory"
	"github.com/zamorano/wiptrack/internal/models"
	"github.com/zamorano/wiptrack/internal/route"
	"github.com/zamorano/wiptrack/internal/wip"
	"github.com/zamorano/wiptrack/internal/workorder"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Input is one reported scan.
type Input struct {
	ActorID    uint
	DeviceID   uint
	Lot        string
	PartNumber string
	Qty        uint
}

// Result is the accept/reject outcome of a scan plus positional metadata.
// A rejection (Ok false, Reason set) is a committed domain outcome, not an
// error.
type Result struct {
	Ok               bool
	Advanced         bool
	Status           wip.Status
	Reason           string
	CurrentStep      int
	ExpectedLocation string
	QtyIn            uint
	PreviousQty      *uint
	Scrap            uint
	NextStep         int
	NextLocation     string
}

// Scan runs the full validation pipeline in one transaction. Locks are
// acquired in a fixed order (work order, WIP item, current step metadata,
// EXIT-existence check) so concurrent scans against one lot serialize and
// scans against different lots never contend.
//
// Rejection paths commit the transaction, including the audit ERROR event
// on paths that have already resolved a WIP item. Only unexpected failures
// roll back.
func Scan(gdb *gorm.DB, in Input) (*Result, error) {
	var res *Result
	err := gdb.Transaction(func(tx *gorm.DB) error {
		dev, err := directory.ResolveDevice(tx, in.DeviceID)
		if err != nil {
			return err
		}
		if dev == nil {
			res = &Result{Status: wip.StatusNone, Reason: wip.ReasonDeviceInvalid}
			return nil
		}

		productID, err := directory.ResolveProduct(tx, in.PartNumber)
		if err != nil {
			return err
		}
		if productID == 0 {
			res = &Result{Status: wip.StatusNone, Reason: wip.ReasonProductNotFound}
			return nil
		}

		workOrderID, err := workorder.GetOrCreate(tx, in.Lot, productID)
		if err != nil {
			return err
		}

		activeRouteID, err := route.ActiveRouteID(tx, productID)
		if err != nil {
			return err
		}
		if activeRouteID == 0 {
			res = &Result{Status: wip.StatusNone, Reason: wip.ReasonNoActiveRoute}
			return nil
		}

		item, err := wip.GetOrCreate(tx, workOrderID, activeRouteID)
		if err != nil {
			return err
		}
		status := wip.Status(item.Status)

		if status == wip.StatusHold {
			res = &Result{Status: status, Reason: wip.ReasonWipOnRework}
			return nil
		}
		if status.Closed() {
			if err := wip.AppendEvent(tx, item.ID, item.CurrentStepID, wip.EventError); err != nil {
				return err
			}
			res = &Result{Status: status, Reason: wip.ReasonWipClosed}
			return nil
		}

		step, err := currentStepLocked(tx, item)
		if err != nil {
			return err
		}
		if step == nil {
			if err := wip.AppendEvent(tx, item.ID, item.CurrentStepID, wip.EventError); err != nil {
				return err
			}
			res = &Result{Status: wip.StatusNone, Reason: wip.ReasonStepInvalid}
			return nil
		}

		if step.LocationID != dev.LocationID {
			if err := wip.AppendEvent(tx, item.ID, item.CurrentStepID, wip.EventError); err != nil {
				return err
			}
			expected, err := directory.LocationName(tx, step.LocationID)
			if err != nil {
				return err
			}
			res = &Result{
				Status:           wip.StatusActive,
				Reason:           wip.ReasonStepMismatch,
				CurrentStep:      step.StepNumber,
				ExpectedLocation: expected,
			}
			return nil
		}

		prevQty, err := previousQty(tx, item.ID, item.RouteID, step.StepNumber)
		if err != nil {
			return err
		}
		if prevQty != nil && in.Qty > *prevQty {
			if err := wip.AppendEvent(tx, item.ID, item.CurrentStepID, wip.EventError); err != nil {
				return err
			}
			res = &Result{
				Status:      wip.StatusActive,
				Reason:      wip.ReasonQtyGreaterThanPrev,
				CurrentStep: step.StepNumber,
				PreviousQty: prevQty,
			}
			return nil
		}

		var scrap uint
		if prevQty != nil {
			scrap = *prevQty - in.Qty
		}

		done, err := wip.HasExit(tx, item.ID, item.CurrentStepID)
		if err != nil {
			return err
		}
		if done {
			if err := wip.AppendEvent(tx, item.ID, item.CurrentStepID, wip.EventError); err != nil {
				return err
			}
			res = &Result{
				Status:      wip.StatusActive,
				Reason:      wip.ReasonStepAlreadyComplete,
				CurrentStep: step.StepNumber,
			}
			return nil
		}

		if err := wip.AppendEvent(tx, item.ID, item.CurrentStepID, wip.EventEntry); err != nil {
			return err
		}
		if err := upsertExecution(tx, item, in, dev.LocationID, scrap); err != nil {
			return err
		}
		if err := wip.AppendEvent(tx, item.ID, item.CurrentStepID, wip.EventExit); err != nil {
			return err
		}

		res, err = applyTransition(tx, item, step, in.Qty, prevQty, scrap)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// applyTransition closes or advances the WIP item after a validated scan.
func applyTransition(tx *gorm.DB, item *models.WipItem, step *models.RouteStep, qty uint, prevQty *uint, scrap uint) (*Result, error) {
	status := wip.Status(item.Status)

	if qty == 0 {
		next, _ := wip.Next(status, wip.TriggerScanScrap)
		if err := wip.SetStatus(tx, item.ID, next); err != nil {
			return nil, err
		}
		var totalScrap uint
		if prevQty != nil {
			totalScrap = *prevQty
		}
		return &Result{
			Ok:          true,
			Status:      next,
			QtyIn:       qty,
			PreviousQty: prevQty,
			Scrap:       totalScrap,
		}, nil
	}

	nextStep, err := route.StepByNumber(tx, item.RouteID, step.StepNumber+1)
	if err != nil {
		return nil, err
	}
	if nextStep == nil {
		next, _ := wip.Next(status, wip.TriggerScanFinish)
		if err := wip.SetStatus(tx, item.ID, next); err != nil {
			return nil, err
		}
		return &Result{
			Ok:          true,
			Advanced:    true,
			Status:      next,
			QtyIn:       qty,
			PreviousQty: prevQty,
			Scrap:       scrap,
		}, nil
	}

	next, _ := wip.Next(status, wip.TriggerScanAdvance)
	if err := tx.Model(&models.WipItem{}).Where("id = ?", item.ID).
		Update("current_step_id", nextStep.ID).Error; err != nil {
		return nil, fmt.Errorf("scan: advance item %d to step %d: %w", item.ID, nextStep.ID, err)
	}
	nextLoc, err := directory.LocationName(tx, nextStep.LocationID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Ok:           true,
		Advanced:     true,
		Status:       next,
		CurrentStep:  step.StepNumber,
		QtyIn:        qty,
		PreviousQty:  prevQty,
		Scrap:        scrap,
		NextStep:     nextStep.StepNumber,
		NextLocation: nextLoc,
	}, nil
}

// currentStepLocked reads the item's current step metadata under an
// exclusive lock. Returns nil when the pointer is missing or corrupt.
func currentStepLocked(tx *gorm.DB, item *models.WipItem) (*models.RouteStep, error) {
	var step models.RouteStep
	err := db.ForUpdate(tx).
		Where("id = ? AND route_id = ?", item.CurrentStepID, item.RouteID).
		First(&step).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan: step %d of route %d: %w", item.CurrentStepID, item.RouteID, err)
	}
	return &step, nil
}

// previousQty returns the quantity recorded entering the previous step,
// or nil at step 1.
func previousQty(tx *gorm.DB, wipItemID, routeID uint, stepNumber int) (*uint, error) {
	if stepNumber <= 1 {
		return nil, nil
	}
	var qtys []uint
	err := tx.Table("step_executions").
		Joins("JOIN route_steps ON route_steps.id = step_executions.route_step_id").
		Where("step_executions.wip_item_id = ? AND route_steps.route_id = ? AND route_steps.step_number = ?",
			wipItemID, routeID, stepNumber-1).
		Limit(1).
		Pluck("step_executions.qty_in", &qtys).Error
	if err != nil {
		return nil, fmt.Errorf("scan: previous qty for item %d step %d: %w", wipItemID, stepNumber, err)
	}
	if len(qtys) == 0 {
		return nil, nil
	}
	return &qtys[0], nil
}

// upsertExecution writes the StepExecution row for (item, current step).
func upsertExecution(tx *gorm.DB, item *models.WipItem, in Input, locationID uint, scrap uint) error {
	exec := models.StepExecution{
		WipItemID:   item.ID,
		RouteStepID: item.CurrentStepID,
		ActorID:     in.ActorID,
		DeviceID:    in.DeviceID,
		LocationID:  locationID,
		QtyIn:       in.Qty,
		QtyScrap:    scrap,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wip_item_id"}, {Name: "route_step_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"actor_id", "device_id", "location_id", "qty_in", "qty_scrap",
		}),
	}).Create(&exec).Error
	if err != nil {
		return fmt.Errorf("scan: record execution for item %d step %d: %w", item.ID, item.CurrentStepID, err)
	}
	return nil
}
