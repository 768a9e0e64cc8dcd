// Package metrics exposes the engine's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts scan outcomes. outcome is "accepted" or "rejected";
	// reason is the rejection reason code, or "" for accepted scans.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wiptrack_scans_total",
		Help: "The total number of processed scans by outcome and reason",
	}, []string{"outcome", "reason"})

	// ScrapUnits accumulates scrap reported at scan time.
	ScrapUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wiptrack_scrap_units_total",
		Help: "The total number of units scrapped across all lots",
	})

	// WipInFlight tracks lots currently in ACTIVE or HOLD.
	WipInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wiptrack_wip_in_flight",
		Help: "The number of WIP items currently active or on rework hold",
	})

	// ScanDuration is the end-to-end latency of the scan pipeline,
	// transaction included.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wiptrack_scan_duration_seconds",
		Help:    "Time spent validating and recording one scan",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordScan maps a scan result onto the counters.
func RecordScan(ok bool, reason string, scrap uint) {
	if ok {
		ScansTotal.WithLabelValues("accepted", "").Inc()
	} else {
		ScansTotal.WithLabelValues("rejected", reason).Inc()
	}
	if scrap > 0 {
		ScrapUnits.Add(float64(scrap))
	}
}
