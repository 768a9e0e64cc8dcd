package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zamorano/wiptrack/internal/metrics"
	"github.com/zamorano/wiptrack/internal/notify"
	"github.com/zamorano/wiptrack/internal/scan"
	"github.com/zamorano/wiptrack/internal/wip"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// scanRequest is the wire form of one reported scan. The acting operator
// comes from the X-Actor-ID header, not the body.
type scanRequest struct {
	DeviceID   uint   `json:"device_id" binding:"required"`
	Lot        string `json:"lot" binding:"required"`
	PartNumber string `json:"part_number" binding:"required"`
	Qty        uint   `json:"qty"`
}

type scanResponse struct {
	Ok               bool   `json:"ok"`
	Advanced         bool   `json:"advanced"`
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	CurrentStep      int    `json:"current_step,omitempty"`
	ExpectedLocation string `json:"expected_location,omitempty"`
	QtyIn            uint   `json:"qty_in"`
	PreviousQty      *uint  `json:"previous_qty,omitempty"`
	Scrap            uint   `json:"scrap"`
	NextStep         int    `json:"next_step,omitempty"`
	NextLocation     string `json:"next_location,omitempty"`
}

// actorID reads the operator from the X-Actor-ID header. Zero means the
// header was missing or malformed.
func actorID(c *gin.Context) uint {
	raw := c.GetHeader("X-Actor-ID")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// announce delivers an alert without blocking the request. Send failures
// are logged, never surfaced to the caller.
func announce(log *zap.Logger, notifier notify.Notifier, evt notify.Event) {
	if notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifier.Send(ctx, evt); err != nil {
			log.Warn("notification failed", zap.String("title", evt.Title), zap.Error(err))
		}
	}()
}

func handleScan(db *gorm.DB, log *zap.Logger, notifier notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorID(c)
		if actor == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Actor-ID header is required"})
			return
		}

		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		start := time.Now()
		res, err := scan.Scan(db, scan.Input{
			ActorID:    actor,
			DeviceID:   req.DeviceID,
			Lot:        req.Lot,
			PartNumber: req.PartNumber,
			Qty:        req.Qty,
		})
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			log.Error("scan failed", zap.String("lot", req.Lot), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		metrics.RecordScan(res.Ok, res.Reason, res.Scrap)
		if !res.Ok {
			log.Info("scan rejected",
				zap.String("lot", req.Lot),
				zap.String("reason", res.Reason),
				zap.Uint("device", req.DeviceID),
			)
		}
		if res.Ok && res.Status == wip.StatusScrapped {
			announce(log, notifier, notify.ScrapEvent(req.Lot, req.PartNumber, res.Scrap))
		}

		c.JSON(http.StatusOK, scanResponse{
			Ok:               res.Ok,
			Advanced:         res.Advanced,
			Status:           string(res.Status),
			Reason:           res.Reason,
			CurrentStep:      res.CurrentStep,
			ExpectedLocation: res.ExpectedLocation,
			QtyIn:            res.QtyIn,
			PreviousQty:      res.PreviousQty,
			Scrap:            res.Scrap,
			NextStep:         res.NextStep,
			NextLocation:     res.NextLocation,
		})
	}
}

type statusResponse struct {
	WoNumber         string `json:"wo_number"`
	HasWip           bool   `json:"has_wip"`
	Status           string `json:"status"`
	CurrentStep      int    `json:"current_step,omitempty"`
	ExpectedLocation string `json:"expected_location,omitempty"`
	QtyMax           *uint  `json:"qty_max,omitempty"`
}

func handleStatus(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lot := c.Param("lot")
		qs, err := scan.GetStatus(db, lot)
		if err != nil {
			log.Error("status failed", zap.String("lot", lot), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if qs == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "work order not found"})
			return
		}
		c.JSON(http.StatusOK, statusResponse{
			WoNumber:         qs.WoNumber,
			HasWip:           qs.HasWip,
			Status:           string(qs.Status),
			CurrentStep:      qs.CurrentStep,
			ExpectedLocation: qs.ExpectedLocation,
			QtyMax:           qs.QtyMax,
		})
	}
}

type reworkRequest struct {
	DeviceID   uint   `json:"device_id"`
	LocationID uint   `json:"location_id"`
	Lot        string `json:"lot" binding:"required"`
	PartNumber string `json:"part_number" binding:"required"`
	Qty        uint   `json:"qty"`
	Reason     string `json:"reason"`
}

type opResponse struct {
	Ok     bool   `json:"ok"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func toOpResponse(r *wip.OpResult) opResponse {
	return opResponse{Ok: r.Ok, Status: string(r.Status), Reason: r.Reason}
}

func handleStartRework(db *gorm.DB, log *zap.Logger, notifier notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorID(c)
		if actor == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Actor-ID header is required"})
			return
		}
		var req reworkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := wip.StartRework(db, wip.StartReworkOpts{
			Lot:        req.Lot,
			PartNumber: req.PartNumber,
			ActorID:    actor,
			DeviceID:   req.DeviceID,
			LocationID: req.LocationID,
			Qty:        req.Qty,
			Reason:     req.Reason,
		})
		if err != nil {
			log.Error("start rework failed", zap.String("lot", req.Lot), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if res.Ok {
			announce(log, notifier, notify.HoldEvent(req.Lot, req.PartNumber, req.Reason))
		}
		c.JSON(http.StatusOK, toOpResponse(res))
	}
}

func handleReleaseRework(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reworkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := wip.ReleaseRework(db, req.Lot, req.PartNumber)
		if err != nil {
			log.Error("release rework failed", zap.String("lot", req.Lot), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, toOpResponse(res))
	}
}

type cancelRequest struct {
	DeviceID   uint   `json:"device_id" binding:"required"`
	Lot        string `json:"lot" binding:"required"`
	PartNumber string `json:"part_number" binding:"required"`
	Reason     string `json:"reason"`
}

func handleCancel(db *gorm.DB, log *zap.Logger, notifier notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorID(c)
		if actor == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Actor-ID header is required"})
			return
		}
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := wip.Cancel(db, wip.CancelOpts{
			Lot:        req.Lot,
			PartNumber: req.PartNumber,
			ActorID:    actor,
			DeviceID:   req.DeviceID,
			Reason:     req.Reason,
		})
		if err != nil {
			log.Error("cancel failed", zap.String("lot", req.Lot), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if res.Ok {
			announce(log, notifier, notify.CancelEvent(req.Lot, req.PartNumber, req.Reason))
		}
		c.JSON(http.StatusOK, toOpResponse(res))
	}
}
