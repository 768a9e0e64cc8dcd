package server

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// scanFeedEvent holds data for one scan SSE event pushed to the dashboard.
type scanFeedEvent struct {
	ID        uint   `json:"id"`
	WoNumber  string `json:"wo_number"`
	Kind      string `json:"kind"`
	Step      int    `json:"step"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
}

// handleSSE streams new scan events to the dashboard by polling the audit
// trail for rows past the last seen ID.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Tests drive the handler with a nil DB for the handshake only.
		if db == nil {
			return
		}

		// Only alert on events newer than the connection.
		var lastSeenID uint
		var latest models.ScanEvent
		if err := db.Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(2 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				rows, err := scanFeedSince(db, lastSeenID)
				if err != nil || len(rows) == 0 {
					continue
				}
				lastSeenID = rows[len(rows)-1].ID
				for _, ev := range rows {
					writeSSE(c.Writer, "scan", ev)
				}
				c.Writer.Flush()
			}
		}
	}
}

// scanFeedSince loads audit rows after id, joined out to lot and station.
func scanFeedSince(db *gorm.DB, id uint) ([]scanFeedEvent, error) {
	type row struct {
		ID         uint
		WoNumber   string
		Kind       string
		StepNumber int
		Location   string
		CreatedAt  time.Time
	}
	var rows []row
	err := db.Table("scan_events").
		Select("scan_events.id, work_orders.wo_number, scan_events.kind, route_steps.step_number, locations.name as location, scan_events.created_at").
		Joins("JOIN wip_items ON wip_items.id = scan_events.wip_item_id").
		Joins("JOIN work_orders ON work_orders.id = wip_items.work_order_id").
		Joins("JOIN route_steps ON route_steps.id = scan_events.route_step_id").
		Joins("JOIN locations ON locations.id = route_steps.location_id").
		Where("scan_events.id > ?", id).
		Order("scan_events.id ASC").
		Limit(100).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]scanFeedEvent, len(rows))
	for i, r := range rows {
		out[i] = scanFeedEvent{
			ID:        r.ID,
			WoNumber:  r.WoNumber,
			Kind:      r.Kind,
			Step:      r.StepNumber,
			Location:  r.Location,
			Timestamp: r.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out, nil
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
