package wip

import (
	"github.com/zamorano/wiptrack/internal/directory"
	"github.com/zamorano/wiptrack/internal/models"
	"github.com/zamorano/wiptrack/internal/workorder"
	"gorm.io/gorm"
)

// OpResult is the outcome of a rework or cancel operation. A non-ok result
// is a domain rejection and still commits its transaction.
type OpResult struct {
	Ok     bool
	Status Status
	Reason string
}

// StartReworkOpts holds parameters for placing a WIP item on hold.
type StartReworkOpts struct {
	Lot        string
	PartNumber string
	ActorID    uint
	DeviceID   uint
	LocationID uint
	Qty        uint
	Reason     string
}

// StartRework places a work order's WIP item on HOLD and appends a rework
// log row. Scans against the item are rejected until ReleaseRework.
func StartRework(gdb *gorm.DB, opts StartReworkOpts) (*OpResult, error) {
	var res *OpResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		productID, err := directory.ResolveProduct(tx, opts.PartNumber)
		if err != nil {
			return err
		}
		if productID == 0 {
			res = &OpResult{Reason: ReasonProductNotFound}
			return nil
		}

		wo, err := workorder.FindByLot(tx, opts.Lot)
		if err != nil {
			return err
		}
		if wo == nil {
			res = &OpResult{Reason: ReasonWoNotFound}
			return nil
		}

		item, err := Find(tx, wo.ID, true)
		if err != nil {
			return err
		}
		if item == nil {
			res = &OpResult{Reason: ReasonWipNotFound}
			return nil
		}

		status := Status(item.Status)
		next, ok := Next(status, TriggerStartRework)
		if !ok {
			res = &OpResult{Status: status, Reason: ReasonWipClosed}
			return nil
		}

		log := models.ReworkLog{
			WipItemID:  item.ID,
			LocationID: opts.LocationID,
			ActorID:    opts.ActorID,
			DeviceID:   opts.DeviceID,
			Qty:        opts.Qty,
			Reason:     opts.Reason,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}
		if err := SetStatus(tx, item.ID, next); err != nil {
			return err
		}

		res = &OpResult{Ok: true, Status: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReleaseRework moves a WIP item from HOLD back to ACTIVE at its unchanged
// current step. Releasing an item that is not on hold is a no-op; a closed
// item is rejected.
func ReleaseRework(gdb *gorm.DB, lot, partNumber string) (*OpResult, error) {
	var res *OpResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		productID, err := directory.ResolveProduct(tx, partNumber)
		if err != nil {
			return err
		}
		if productID == 0 {
			res = &OpResult{Reason: ReasonProductNotFound}
			return nil
		}

		wo, err := workorder.FindByLot(tx, lot)
		if err != nil {
			return err
		}
		if wo == nil {
			res = &OpResult{Reason: ReasonWoNotFound}
			return nil
		}

		item, err := Find(tx, wo.ID, true)
		if err != nil {
			return err
		}
		if item == nil {
			res = &OpResult{Reason: ReasonWipNotFound}
			return nil
		}

		status := Status(item.Status)
		if status.Closed() {
			res = &OpResult{Status: status, Reason: ReasonWipClosed}
			return nil
		}

		next, ok := Next(status, TriggerRelease)
		if !ok {
			// Not on hold: nothing to release.
			res = &OpResult{Ok: true, Status: status}
			return nil
		}
		if err := SetStatus(tx, item.ID, next); err != nil {
			return err
		}

		res = &OpResult{Ok: true, Status: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
