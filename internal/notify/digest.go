package notify

import (
	"fmt"
	"time"

	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// ShiftReport holds computed plant metrics for one shift window.
type ShiftReport struct {
	PeriodStart   time.Time
	PeriodEnd     time.Time
	LotsStarted   int
	LotsFinished  int
	LotsScrapped  int
	ScrapUnits    int64
	ReworkHolds   int
	RejectedScans int
	InFlight      int
}

// BuildShiftDigest queries the last shift window and returns the digest
// event. Returns nil when the plant saw no activity in the window.
func BuildShiftDigest(db *gorm.DB, plant string, window time.Duration) (*Event, error) {
	now := time.Now()
	since := now.Add(-window)

	report, err := buildShiftReport(db, since, now)
	if err != nil {
		return nil, fmt.Errorf("notify: shift digest: %w", err)
	}

	// Suppress when nothing moved.
	if report.LotsStarted == 0 && report.LotsFinished == 0 &&
		report.LotsScrapped == 0 && report.ReworkHolds == 0 && report.RejectedScans == 0 {
		return nil, nil
	}

	evt := formatShift(plant, report)
	return &evt, nil
}

// buildShiftReport queries WIP metrics within the given time range.
func buildShiftReport(db *gorm.DB, since, until time.Time) (*ShiftReport, error) {
	report := &ShiftReport{
		PeriodStart: since,
		PeriodEnd:   until,
	}

	var started int64
	if err := db.Model(&models.WipItem{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&started).Error; err != nil {
		return nil, err
	}
	report.LotsStarted = int(started)

	// Status counts are current state, not historized; the digest reads
	// them as "closed at some point, most recently this shift started it".
	var finished, scrapped, inFlight int64
	db.Model(&models.WipItem{}).Where("status = ?", "FINISHED").Count(&finished)
	db.Model(&models.WipItem{}).Where("status = ?", "SCRAPPED").Count(&scrapped)
	db.Model(&models.WipItem{}).Where("status IN ?", []string{"ACTIVE", "HOLD"}).Count(&inFlight)
	report.LotsFinished = int(finished)
	report.LotsScrapped = int(scrapped)
	report.InFlight = int(inFlight)

	var scrapSum struct{ Total int64 }
	db.Model(&models.StepExecution{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Select("COALESCE(SUM(qty_scrap), 0) as total").
		Scan(&scrapSum)
	report.ScrapUnits = scrapSum.Total

	var holds int64
	db.Model(&models.ReworkLog{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&holds)
	report.ReworkHolds = int(holds)

	var rejected int64
	db.Model(&models.ScanEvent{}).
		Where("kind = ? AND created_at >= ? AND created_at < ?", "ERROR", since, until).
		Count(&rejected)
	report.RejectedScans = int(rejected)

	return report, nil
}

// formatShift renders a ShiftReport as a chat event.
func formatShift(plant string, r *ShiftReport) Event {
	severity := "info"
	if r.LotsScrapped > 0 || r.RejectedScans > 0 {
		severity = "warning"
	}

	return Event{
		Title: fmt.Sprintf("Shift digest for plant %s", plant),
		Body: fmt.Sprintf("%s – %s",
			r.PeriodStart.Format("Jan 2 15:04"),
			r.PeriodEnd.Format("Jan 2 15:04")),
		Severity: severity,
		Fields: []Field{
			{Name: "Lots started", Value: fmt.Sprintf("%d", r.LotsStarted), Short: true},
			{Name: "Finished", Value: fmt.Sprintf("%d", r.LotsFinished), Short: true},
			{Name: "Scrapped lots", Value: fmt.Sprintf("%d", r.LotsScrapped), Short: true},
			{Name: "Scrap units", Value: fmt.Sprintf("%d", r.ScrapUnits), Short: true},
			{Name: "Rework holds", Value: fmt.Sprintf("%d", r.ReworkHolds), Short: true},
			{Name: "Rejected scans", Value: fmt.Sprintf("%d", r.RejectedScans), Short: true},
			{Name: "In flight", Value: fmt.Sprintf("%d", r.InFlight), Short: true},
		},
	}
}
