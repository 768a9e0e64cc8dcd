// Package wip owns the lifecycle of an in-flight unit: its status, the
// transitions reachable from scan, rework and cancel operations, and the
// audit event trail.
package wip

import (
	"errors"
	"fmt"

	"github.com/zamorano/wiptrack/internal/db"
	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// Status is the closed set of WIP item states.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusHold     Status = "HOLD"
	StatusFinished Status = "FINISHED"
	StatusScrapped Status = "SCRAPPED"

	// StatusNone is reported when a work order exists but no WIP item
	// has been created yet. It is never stored.
	StatusNone Status = "NONE"
)

// Closed reports whether a status is terminal.
func (s Status) Closed() bool {
	return s == StatusFinished || s == StatusScrapped
}

// Trigger is an operation attempted against a WIP item.
type Trigger string

const (
	TriggerScanScrap   Trigger = "scan_scrap"   // successful scan, qty 0
	TriggerScanFinish  Trigger = "scan_finish"  // successful scan, no next step
	TriggerScanAdvance Trigger = "scan_advance" // successful scan, next step exists
	TriggerStartRework Trigger = "start_rework"
	TriggerRelease     Trigger = "release_rework"
	TriggerCancel      Trigger = "cancel"
)

// transitions is the full (state, trigger) table. Absent pairs are invalid
// and must be rejected, never silently ignored.
var transitions = map[Status]map[Trigger]Status{
	StatusActive: {
		TriggerScanScrap:   StatusScrapped,
		TriggerScanFinish:  StatusFinished,
		TriggerScanAdvance: StatusActive,
		TriggerStartRework: StatusHold,
		TriggerCancel:      StatusScrapped,
	},
	StatusHold: {
		TriggerStartRework: StatusHold,
		TriggerRelease:     StatusActive,
		TriggerCancel:      StatusScrapped,
	},
	StatusFinished: {},
	StatusScrapped: {},
}

// Next returns the state reached by applying trigger in the given state,
// and whether the transition is valid.
func Next(s Status, t Trigger) (Status, bool) {
	next, ok := transitions[s][t]
	return next, ok
}

// Rejection reason codes. These are expected business outcomes returned as
// structured results, never raised as errors.
const (
	ReasonDeviceInvalid       = "DEVICE_INVALID"
	ReasonProductNotFound     = "PRODUCT_NOT_FOUND"
	ReasonNoActiveRoute       = "NO_ACTIVE_ROUTE"
	ReasonWipOnRework         = "WIP_ON_REWORK"
	ReasonWipClosed           = "WIP_CLOSED"
	ReasonStepInvalid         = "STEP_INVALID"
	ReasonStepMismatch        = "STEP_MISMATCH"
	ReasonQtyGreaterThanPrev  = "QTY_GREATER_THAN_PREVIOUS"
	ReasonStepAlreadyComplete = "STEP_ALREADY_COMPLETED"
	ReasonWoNotFound          = "WO_NOT_FOUND"
	ReasonWipNotFound         = "WIP_NOT_FOUND"
)

// Scan event kinds.
const (
	EventEntry  = "ENTRY"
	EventExit   = "EXIT"
	EventError  = "ERROR"
	EventManual = "MANUAL"
)

// Find returns the WIP item for a work order, or nil when none exists.
// When forUpdate is set the row is read under an exclusive lock; mutating
// callers must set it, the quick-status reader must not.
func Find(tx *gorm.DB, workOrderID uint, forUpdate bool) (*models.WipItem, error) {
	q := tx
	if forUpdate {
		q = db.ForUpdate(tx)
	}
	var item models.WipItem
	err := q.Where("work_order_id = ?", workOrderID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wip: find item for work order %d: %w", workOrderID, err)
	}
	return &item, nil
}

// GetOrCreate returns the work order's WIP item under an exclusive lock,
// creating it at step 1 of routeID when absent. The route is pinned at
// creation: later route changes never move an in-flight item.
func GetOrCreate(tx *gorm.DB, workOrderID, routeID uint) (*models.WipItem, error) {
	item, err := Find(tx, workOrderID, true)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return item, nil
	}

	var step1 models.RouteStep
	err = tx.Where("route_id = ? AND step_number = ?", routeID, 1).First(&step1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("wip: route %d has no step 1", routeID)
	}
	if err != nil {
		return nil, fmt.Errorf("wip: step 1 of route %d: %w", routeID, err)
	}

	item = &models.WipItem{
		WorkOrderID:   workOrderID,
		RouteID:       routeID,
		CurrentStepID: step1.ID,
		Status:        string(StatusActive),
	}
	if err := tx.Create(item).Error; err != nil {
		return nil, fmt.Errorf("wip: create item for work order %d: %w", workOrderID, err)
	}
	return item, nil
}

// AppendEvent writes one scan event for the audit trail.
func AppendEvent(tx *gorm.DB, wipItemID, routeStepID uint, kind string) error {
	ev := models.ScanEvent{
		WipItemID:   wipItemID,
		RouteStepID: routeStepID,
		Kind:        kind,
	}
	if err := tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("wip: append %s event for item %d: %w", kind, wipItemID, err)
	}
	return nil
}

// HasExit reports whether an EXIT event exists for the (item, step) pair,
// reading under an exclusive lock so the check holds until commit.
func HasExit(tx *gorm.DB, wipItemID, routeStepID uint) (bool, error) {
	var ev models.ScanEvent
	err := db.ForUpdate(tx).
		Where("wip_item_id = ? AND route_step_id = ? AND kind = ?", wipItemID, routeStepID, EventExit).
		First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("wip: exit check for item %d step %d: %w", wipItemID, routeStepID, err)
	}
	return true, nil
}

// SetStatus updates a WIP item's stored status.
func SetStatus(tx *gorm.DB, wipItemID uint, s Status) error {
	if err := tx.Model(&models.WipItem{}).Where("id = ?", wipItemID).
		Update("status", string(s)).Error; err != nil {
		return fmt.Errorf("wip: set item %d status %s: %w", wipItemID, s, err)
	}
	return nil
}
