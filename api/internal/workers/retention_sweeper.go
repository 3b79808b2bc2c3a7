package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reportvault/api/internal/core/domain"
	"reportvault/api/internal/infrastructure/metrics"
)

// Defaults for report retention.
const (
	DefaultMaxAge        = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// RetentionSweeper deletes reports older than maxAge on a fixed period.
// It holds no locks shared with request handling; the filesystem is the
// only synchronization point.
type RetentionSweeper struct {
	store    domain.ReportStore
	metrics  metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

func NewRetentionSweeper(
	store domain.ReportStore,
	m metrics.Metrics,
	logger *slog.Logger,
	interval time.Duration,
	maxAge time.Duration,
) *RetentionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &RetentionSweeper{
		store:    store,
		metrics:  m,
		logger:   logger,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// WithClock swaps the time source. Intended for tests.
func (w *RetentionSweeper) WithClock(now func() time.Time) *RetentionSweeper {
	w.now = now
	return w
}

// Start sweeps immediately and then every interval until ctx is cancelled.
// A sweep that overruns its tick simply delays the next one.
func (w *RetentionSweeper) Start(ctx context.Context) {
	w.logger.Info("Automatic report cleanup scheduled",
		slog.Duration("interval", w.interval),
		slog.Duration("max_age", w.maxAge))

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionSweeper) sweep(ctx context.Context) {
	if _, err := w.SweepOnce(ctx, w.maxAge); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("Cleanup failed", slog.Any("error", err))
	}
}

// SweepOnce deletes every stored file whose age exceeds maxAge and returns
// how many were removed. A failure on one file is logged and skipped.
func (w *RetentionSweeper) SweepOnce(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := w.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reports: %w", err)
	}

	now := w.now()
	deleted := 0

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		if now.Sub(e.Modified) <= maxAge {
			continue
		}

		if err := w.store.Remove(ctx, e.Name); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted concurrently by a request; nothing left to do
				continue
			}
			w.metrics.IncSweepFailures()
			w.logger.Warn("Failed to delete old report",
				slog.String("report_id", e.Name),
				slog.Any("error", err))
			continue
		}

		deleted++
		w.metrics.IncReportsDeleted("expired")
		w.logger.Info("Deleted old report", slog.String("report_id", e.Name))
	}

	w.metrics.IncSweeps()
	w.logger.Info("Cleanup complete", slog.Int("deleted", deleted), slog.Int("scanned", len(entries)))
	return deleted, nil
}
