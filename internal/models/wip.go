package models

import "time"

// WipItem is the live tracking record for one work order's unit as it
// moves through a route. The route is pinned at creation and never
// changes, even if the subfamily's active route is later swapped.
type WipItem struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	WorkOrderID   uint   `gorm:"uniqueIndex;not null"`
	RouteID       uint   `gorm:"index;not null"`
	CurrentStepID uint   `gorm:"not null"`
	Status        string `gorm:"size:16;default:ACTIVE;index"`
	CreatedAt     time.Time

	WorkOrder WorkOrder `gorm:"foreignKey:WorkOrderID"`
	Route     Route     `gorm:"foreignKey:RouteID"`
}

// StepExecution records the outcome of a unit passing through one step:
// quantity entering and quantity scrapped. One row per (WIP item, step).
type StepExecution struct {
	ID          uint `gorm:"primaryKey;autoIncrement"`
	WipItemID   uint `gorm:"not null;uniqueIndex:idx_step_exec_wip_step"`
	RouteStepID uint `gorm:"not null;uniqueIndex:idx_step_exec_wip_step"`
	ActorID     uint
	DeviceID    uint
	LocationID  uint
	QtyIn       uint
	QtyScrap    uint
	CreatedAt   time.Time
}

// ScanEvent is the append-only audit trail. An EXIT row for a
// (WIP item, step) pair marks that step completed; a second completion
// attempt is rejected off the presence of that row.
type ScanEvent struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	WipItemID   uint   `gorm:"index:idx_scan_event_wip_step"`
	RouteStepID uint   `gorm:"index:idx_scan_event_wip_step"`
	Kind        string `gorm:"size:8;not null"`
	CreatedAt   time.Time
}

// ReworkLog is an append-only record of a hold request against a WIP item.
type ReworkLog struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	WipItemID  uint `gorm:"index;not null"`
	LocationID uint
	ActorID    uint
	DeviceID   uint
	Qty        uint
	Reason     string `gorm:"type:text"`
	CreatedAt  time.Time
}
