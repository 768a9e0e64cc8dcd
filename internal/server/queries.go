package server

import (
	"context"
	"errors"
	"time"

	"github.com/zamorano/wiptrack/internal/metrics"
	"github.com/zamorano/wiptrack/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Summary holds plant-wide WIP counts by status.
type Summary struct {
	Active   int64
	Hold     int64
	Finished int64
	Scrapped int64
	Total    int64
}

// FloorSummary returns WIP item counts grouped by status.
func FloorSummary(db *gorm.DB) (*Summary, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := db.Model(&models.WipItem{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	s := &Summary{}
	for _, r := range rows {
		s.Total += r.Count
		switch r.Status {
		case "ACTIVE":
			s.Active += r.Count
		case "HOLD":
			s.Hold += r.Count
		case "FINISHED":
			s.Finished += r.Count
		case "SCRAPPED":
			s.Scrapped += r.Count
		}
	}
	return s, nil
}

// StationRow holds the in-flight load at one station.
type StationRow struct {
	Location string
	Active   int64
	Hold     int64
}

// StationLoad returns the number of in-flight lots expected at each station.
func StationLoad(db *gorm.DB) ([]StationRow, error) {
	type row struct {
		Location string
		Status   string
		Count    int64
	}
	var rows []row
	if err := db.Table("wip_items").
		Select("locations.name as location, wip_items.status, count(*) as count").
		Joins("JOIN route_steps ON route_steps.id = wip_items.current_step_id").
		Joins("JOIN locations ON locations.id = route_steps.location_id").
		Where("wip_items.status IN ?", []string{"ACTIVE", "HOLD"}).
		Group("locations.name, wip_items.status").
		Order("locations.name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	stationMap := make(map[string]*StationRow)
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		sr, ok := stationMap[r.Location]
		if !ok {
			sr = &StationRow{Location: r.Location}
			stationMap[r.Location] = sr
			order = append(order, r.Location)
		}
		switch r.Status {
		case "ACTIVE":
			sr.Active += r.Count
		case "HOLD":
			sr.Hold += r.Count
		}
	}

	result := make([]StationRow, 0, len(order))
	for _, name := range order {
		result = append(result, *stationMap[name])
	}
	return result, nil
}

// refreshInFlightGauge keeps the in-flight WIP gauge current. Runs until
// ctx is cancelled.
func refreshInFlightGauge(ctx context.Context, db *gorm.DB, log *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	update := func() {
		var n int64
		if err := db.Model(&models.WipItem{}).
			Where("status IN ?", []string{"ACTIVE", "HOLD"}).
			Count(&n).Error; err != nil {
			log.Warn("in-flight gauge refresh failed", zap.Error(err))
			return
		}
		metrics.WipInFlight.Set(float64(n))
	}

	update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// ExecutionRow is one completed step in a lot's history.
type ExecutionRow struct {
	StepNumber int
	Location   string
	QtyIn      uint
	QtyScrap   uint
	ActorID    uint
	At         time.Time
}

// Lot aggregates everything the lot detail page shows.
type Lot struct {
	WoNumber   string
	PartNumber string
	Status     string
	History    []ExecutionRow
}

// LotDetail loads one lot's position and step history. Returns nil when the
// work order does not exist.
func LotDetail(db *gorm.DB, lot string) (*Lot, error) {
	var wo models.WorkOrder
	err := db.Where("wo_number = ?", lot).First(&wo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := &Lot{WoNumber: wo.WoNumber, Status: "NONE"}

	var product models.Product
	if err := db.First(&product, wo.ProductID).Error; err == nil {
		out.PartNumber = product.PartNumber
	}

	var item models.WipItem
	err = db.Where("work_order_id = ?", wo.ID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Status = item.Status

	if err := db.Table("step_executions").
		Select("route_steps.step_number, locations.name as location, step_executions.qty_in, step_executions.qty_scrap, step_executions.actor_id, step_executions.created_at as at").
		Joins("JOIN route_steps ON route_steps.id = step_executions.route_step_id").
		Joins("JOIN locations ON locations.id = step_executions.location_id").
		Where("step_executions.wip_item_id = ?", item.ID).
		Order("route_steps.step_number ASC").
		Find(&out.History).Error; err != nil {
		return nil, err
	}
	return out, nil
}
