package worker

import (
	"context"
	"math/rand/v2"
	"time"

	"spotbook/internal/domain"

	"github.com/rs/zerolog"
)

// ScheduleExporter writes the occupancy workbook for a date range.
type ScheduleExporter interface {
	ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error)
}

const (
	defaultMaxAttempts = 5
	defaultRetryBase   = 2 * time.Second
	// retryCap bounds the wait between attempts; a disk or DB outage longer
	// than a minute is better surfaced by giving up until the next tick.
	retryCap = time.Minute
)

// ExportWorker periodically writes the booking schedule to disk so an
// up-to-date workbook is always available without an API round trip.
type ExportWorker struct {
	exporter    ScheduleExporter
	clock       domain.Clock
	interval    time.Duration
	horizonDays int
	maxAttempts int
	retryBase   time.Duration
	logger      *zerolog.Logger
}

func NewExportWorker(exporter ScheduleExporter, clock domain.Clock, interval time.Duration, horizonDays, maxAttempts int, retryBase time.Duration, logger *zerolog.Logger) *ExportWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}

	return &ExportWorker{
		exporter:    exporter,
		clock:       clock,
		interval:    interval,
		horizonDays: horizonDays,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		logger:      logger,
	}
}

// Start runs an export immediately and then on every tick until ctx is done.
func (w *ExportWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("export worker started")
	defer w.logger.Info().Msg("export worker stopped")

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce exports today's horizon, retrying transient failures with backoff.
func (w *ExportWorker) runOnce(ctx context.Context) {
	now := w.clock.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, w.horizonDays)

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		path, err := w.exporter.ExportSchedule(ctx, start, end)
		if err == nil {
			w.logger.Info().Str("file_path", path).Msg("scheduled export written")
			return
		}
		lastErr = err

		delay := w.retryDelay(attempt)
		w.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("scheduled export failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	w.logger.Error().Err(lastErr).Msg("scheduled export gave up")
}

// retryDelay doubles from retryBase per attempt, clamped at retryCap, plus up
// to a quarter of the delay in jitter so restarted workers spread their writes.
func (w *ExportWorker) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := w.retryBase << (attempt - 1)
	if d <= 0 || d > retryCap {
		d = retryCap
	}
	return d + rand.N(d/4+1)
}
