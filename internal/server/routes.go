package server

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zamorano/wiptrack/internal/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerRoutes sets up the API, dashboard and metrics routes.
func registerRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger, notifier notify.Notifier) {
	// Embedded static assets (served from assets/ subdir of the embed.FS).
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	api := router.Group("/api/v1")
	{
		api.POST("/scan", handleScan(db, log, notifier))
		api.GET("/wo/:lot/status", handleStatus(db, log))
		api.POST("/wip/rework", handleStartRework(db, log, notifier))
		api.POST("/wip/rework/release", handleReleaseRework(db, log))
		api.POST("/wip/cancel", handleCancel(db, log, notifier))
	}

	// Floor dashboard pages.
	router.GET("/", handleIndex(db))
	router.GET("/wo/:lot", handleLotDetail(db))

	// SSE feed for the dashboard.
	router.GET("/api/events", handleSSE(db))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func handleIndex(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := FloorSummary(db)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		stations, err := StationLoad(db)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "floor",
			"summary":  summary,
			"stations": stations,
		})
	}
}

func handleLotDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		lot, err := LotDetail(db, c.Param("lot"))
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		if lot == nil {
			c.String(http.StatusNotFound, "work order not found")
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page": "lot",
			"lot":  lot,
		})
	}
}
