// Package metrics exposes Prometheus instrumentation for scrape cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsScraped counts reports extracted from listing pages.
	ReportsScraped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditwatch_reports_scraped_total",
		Help: "Reports extracted from listing pages, by language.",
	}, []string{"language"})

	// ReportsNew counts reports added to the new bucket.
	ReportsNew = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditwatch_reports_new_total",
		Help: "Reports newly added to the new bucket, by language.",
	}, []string{"language"})

	// GapFilled counts placeholder reports synthesized by gap filling.
	GapFilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditwatch_reports_gap_filled_total",
		Help: "Placeholder reports synthesized for missing languages.",
	}, []string{"language"})

	// FetchFailures counts listing page fetches that failed after retry.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditwatch_fetch_failures_total",
		Help: "Listing page fetches that failed after retry, by language.",
	}, []string{"language"})

	// CycleDuration observes full scrape cycle durations.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auditwatch_cycle_duration_seconds",
		Help:    "Duration of full scrape cycles.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// CyclesTotal counts completed cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditwatch_cycles_total",
		Help: "Completed scrape cycles, by status (ok, partial, error).",
	}, []string{"status"})

	// NotificationsSent counts delivered notifications.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditwatch_notifications_sent_total",
		Help: "Notifications successfully delivered.",
	})
)
