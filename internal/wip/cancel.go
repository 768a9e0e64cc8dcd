package wip

import (
	"github.com/zamorano/wiptrack/internal/directory"
	"github.com/zamorano/wiptrack/internal/workorder"
	"gorm.io/gorm"
)

// CancelOpts holds parameters for manually scrapping a WIP item.
type CancelOpts struct {
	Lot        string
	PartNumber string
	ActorID    uint
	DeviceID   uint
	Reason     string
}

// Cancel forces a WIP item to SCRAPPED and appends a MANUAL scan event at
// its current step. Closed items are rejected.
func Cancel(gdb *gorm.DB, opts CancelOpts) (*OpResult, error) {
	var res *OpResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		dev, err := directory.ResolveDevice(tx, opts.DeviceID)
		if err != nil {
			return err
		}
		if dev == nil {
			res = &OpResult{Reason: ReasonDeviceInvalid}
			return nil
		}

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
		next, ok := Next(status, TriggerCancel)
		if !ok {
			res = &OpResult{Status: status, Reason: ReasonWipClosed}
			return nil
		}

		if err := SetStatus(tx, item.ID, next); err != nil {
			return err
		}
		if err := AppendEvent(tx, item.ID, item.CurrentStepID, EventManual); err != nil {
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
