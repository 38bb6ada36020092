package auditwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombar/auditwatch/metrics"
	"github.com/zombar/auditwatch/models"
	"github.com/zombar/auditwatch/notify"
	"github.com/zombar/auditwatch/reports"
	"github.com/zombar/auditwatch/store"
)

// Engine ties the scraper, store, and notifier into full cycles and the
// manual maintenance operations the dashboard exposes.
type Engine struct {
	scraper   *Scraper
	store     store.Store
	notifier  notify.Notifier
	recipient string
	cleanup   reports.CleanupConfig
	logger    *slog.Logger
	config    Config

	// mu serializes every load-modify-save sequence on the store, so a
	// dashboard operation cannot interleave with a running cycle.
	mu sync.Mutex

	statsMu   sync.Mutex
	lastStats *models.CycleStats
}

// NewEngine creates a new Engine instance. notifier may be nil, in which
// case cycles run without sending notifications.
func NewEngine(scraper *Scraper, st store.Store, notifier notify.Notifier, recipient string, logger *slog.Logger) *Engine {
	return &Engine{
		scraper:   scraper,
		store:     st,
		notifier:  notifier,
		recipient: recipient,
		cleanup:   reports.DefaultCleanupConfig(),
		logger:    logger,
		config:    scraper.config,
	}
}

// RunCycle executes one full scrape cycle: scrape every language, move the
// previous new bucket into the archive, keep this cycle's discoveries as
// the new bucket, fill cross-language gaps, persist, and notify when
// anything new appeared. A language whose fetch fails, or whose page
// yields zero candidates, is left untouched; the cycle errors only when
// every language fails.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	runID := uuid.New().String()
	start := time.Now()
	logger := e.logger.With("run_id", runID)
	logger.Info("scrape cycle starting")

	stats := &models.CycleStats{
		RunID:      runID,
		StartedAt:  start,
		Scraped:    make(map[models.Language]int),
		NewReports: make(map[models.Language]int),
		GapFilled:  make(map[models.Language]int),
	}
	defer func() {
		stats.Duration = time.Since(start)
		e.statsMu.Lock()
		e.lastStats = stats
		e.statsMu.Unlock()
	}()

	newBucket, err := e.store.Load(ctx, store.BucketNew)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		stats.Errors = append(stats.Errors, err.Error())
		return fmt.Errorf("failed to load new bucket: %w", err)
	}
	archived, err := e.store.Load(ctx, store.BucketArchived)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		stats.Errors = append(stats.Errors, err.Error())
		return fmt.Errorf("failed to load archived bucket: %w", err)
	}

	newByLang := make(map[models.Language][]models.Report)
	var fetchErrs []error

	for _, lang := range models.Languages() {
		scraped, err := e.scraper.ScrapeLanguage(ctx, lang)
		if err != nil {
			// Leave this language's buckets exactly as they were.
			metrics.FetchFailures.WithLabelValues(string(lang)).Inc()
			logger.Error("language scrape failed", "language", lang, "error", err)
			fetchErrs = append(fetchErrs, err)
			stats.Errors = append(stats.Errors, err.Error())
			continue
		}
		metrics.ReportsScraped.WithLabelValues(string(lang)).Add(float64(len(scraped)))
		stats.Scraped[lang] = len(scraped)
		logger.Info("language scraped", "language", lang, "reports", len(scraped))
		if len(scraped) == 0 {
			// An empty scrape does not supersede anything; the
			// language's buckets stay as they were instead of
			// rotating the new bucket into the archive.
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("no candidates found for language %s", lang))
			continue
		}

		known := reports.IndexKnown(lang, newBucket, archived)
		added := reports.Sync(scraped, known)
		metrics.ReportsNew.WithLabelValues(string(lang)).Add(float64(len(added)))
		stats.NewReports[lang] = len(added)

		archived[lang] = reports.MergeUnique(archived[lang], newBucket[lang])
		reports.SortByDate(added)
		newBucket[lang] = reports.Cap(added, e.config.NewBucketCap)
		newByLang[lang] = added
	}

	if len(fetchErrs) == len(models.Languages()) {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return errors.Join(fetchErrs...)
	}

	filled := reports.FillGaps(newBucket, archived)
	for lang, n := range filled {
		metrics.GapFilled.WithLabelValues(string(lang)).Add(float64(n))
		stats.GapFilled[lang] = n
	}

	if err := e.persist(ctx, newBucket, archived); err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		stats.Errors = append(stats.Errors, err.Error())
		return err
	}

	if stats.TotalNew() > 0 {
		stats.Notified = e.notifyNewReports(ctx, logger, newByLang)
	}

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if len(fetchErrs) > 0 {
		metrics.CyclesTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.CyclesTotal.WithLabelValues("ok").Inc()
	}
	logger.Info("scrape cycle complete",
		"duration", time.Since(start),
		"new_reports", stats.TotalNew(),
		"failed_languages", len(fetchErrs))
	return nil
}

func (e *Engine) notifyNewReports(ctx context.Context, logger *slog.Logger, newByLang map[models.Language][]models.Report) bool {
	if e.notifier == nil || e.recipient == "" {
		return false
	}
	msgID, err := e.notifier.Send(ctx, e.recipient, notify.CycleMessage(newByLang))
	if err != nil {
		logger.Error("notification failed", "error", err)
		return false
	}
	metrics.NotificationsSent.Inc()
	logger.Info("notification sent", "message_id", msgID)
	return true
}

// LastStats returns the stats of the most recent cycle, or nil when no
// cycle has run yet.
func (e *Engine) LastStats() *models.CycleStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.lastStats
}

// NewReports returns the current new bucket.
func (e *Engine) NewReports(ctx context.Context) (models.Buckets, error) {
	return e.store.Load(ctx, store.BucketNew)
}

// ArchivedReports returns the current archived bucket.
func (e *Engine) ArchivedReports(ctx context.Context) (models.Buckets, error) {
	return e.store.Load(ctx, store.BucketArchived)
}

// ArchiveNewReports moves everything in the new bucket into the archive.
// Used by the dashboard to acknowledge reports without waiting for the
// next cycle. Returns the number of reports moved.
func (e *Engine) ArchiveNewReports(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	newBucket, err := e.store.Load(ctx, store.BucketNew)
	if err != nil {
		return 0, fmt.Errorf("failed to load new bucket: %w", err)
	}
	archived, err := e.store.Load(ctx, store.BucketArchived)
	if err != nil {
		return 0, fmt.Errorf("failed to load archived bucket: %w", err)
	}

	moved := 0
	for _, lang := range models.Languages() {
		before := len(archived[lang])
		archived[lang] = reports.MergeUnique(archived[lang], newBucket[lang])
		moved += len(archived[lang]) - before
		newBucket[lang] = nil
	}

	if err := e.persist(ctx, newBucket, archived); err != nil {
		return 0, err
	}
	return moved, nil
}

// CleanArchives sweeps junk entries out of both buckets and applies manual
// corrections. Returns the number of reports removed.
func (e *Engine) CleanArchives(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	newBucket, err := e.store.Load(ctx, store.BucketNew)
	if err != nil {
		return 0, fmt.Errorf("failed to load new bucket: %w", err)
	}
	archived, err := e.store.Load(ctx, store.BucketArchived)
	if err != nil {
		return 0, fmt.Errorf("failed to load archived bucket: %w", err)
	}

	removed := reports.CleanBuckets(e.cleanup, newBucket, archived)
	if removed == 0 {
		return 0, nil
	}

	if err := e.persist(ctx, newBucket, archived); err != nil {
		return 0, err
	}
	return removed, nil
}

// SetCorrections replaces the manual correction table used by
// CleanArchives.
func (e *Engine) SetCorrections(corrections map[string]reports.Correction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanup.Corrections = corrections
}

// SendMessage delivers an arbitrary text message through the configured
// notifier.
func (e *Engine) SendMessage(ctx context.Context, text string) (string, error) {
	if e.notifier == nil || e.recipient == "" {
		return "", fmt.Errorf("no notifier configured")
	}
	return e.notifier.Send(ctx, e.recipient, text)
}

func (e *Engine) persist(ctx context.Context, newBucket, archived models.Buckets) error {
	if err := e.store.Save(ctx, store.BucketNew, newBucket); err != nil {
		return fmt.Errorf("failed to save new bucket: %w", err)
	}
	if err := e.store.Save(ctx, store.BucketArchived, archived); err != nil {
		return fmt.Errorf("failed to save archived bucket: %w", err)
	}
	return nil
}
