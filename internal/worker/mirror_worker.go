// Package worker copies reports stored in SQLite to the Google Sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"teamreports/internal/amqp"
	"teamreports/internal/core"
	"teamreports/internal/metrics"
	"teamreports/internal/store"
)

// Source is the local database holding reports and their mirror status.
// A report is copied only by whoever wins ClaimMirror for it.
type Source interface {
	GetReport(ctx context.Context, id string) (core.Report, error)
	GetPendingMirror(ctx context.Context, limit int) ([]string, error)
	ClaimMirror(ctx context.Context, id string) (bool, error)
	ReleaseMirror(ctx context.Context, id string) error
	MarkMirrored(ctx context.Context, id string) error
	MarkMirrorError(ctx context.Context, id string) error
}

// Target receives mirrored rows.
type Target interface {
	Contains(ctx context.Context, id string) (bool, error)
	Append(ctx context.Context, r core.Report) error
}

type Config struct {
	BatchSize int
	Interval  time.Duration
}

// MirrorWorker mirrors reports on each message and sweeps for any it missed.
type MirrorWorker struct {
	source  Source
	target  Target
	metrics *metrics.Metrics
	config  Config

	mu      sync.Mutex
	running bool
}

func NewMirrorWorker(source Source, target Target, m *metrics.Metrics, cfg Config) *MirrorWorker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &MirrorWorker{source: source, target: target, metrics: m, config: cfg}
}

// HandleMessage mirrors the report named by msg. An error requeues the message.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.ReportSubmittedMessage) error {
	slog.InfoContext(ctx, "Processing report message", "id", msg.ID)
	_, err := w.mirror(ctx, msg.ID)
	return err
}

// mirror reports whether this call copied the report. A report claimed
// elsewhere, already mirrored or gone is skipped without error.
func (w *MirrorWorker) mirror(ctx context.Context, id string) (bool, error) {
	claimed, err := w.source.ClaimMirror(ctx, id)
	if err != nil {
		return false, fmt.Errorf("claim report: %w", err)
	}
	if !claimed {
		slog.DebugContext(ctx, "Report not claimable, skipping mirror", "id", id)
		return false, nil
	}

	r, err := w.source.GetReport(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Report not found, skipping mirror", "id", id)
		return false, nil
	}
	if err != nil {
		return false, w.release(ctx, id, fmt.Errorf("get report: %w", err))
	}

	// A previous attempt may have appended the row and then failed to
	// record it.
	exists, err := w.target.Contains(ctx, id)
	if err != nil {
		return false, w.release(ctx, id, fmt.Errorf("look up report %s: %w", id, err))
	}
	if !exists {
		if err := w.target.Append(ctx, r); err != nil {
			w.metrics.Mirrored(false)
			return false, w.release(ctx, id, fmt.Errorf("append report %s: %w", id, err))
		}
		w.metrics.Mirrored(true)
	} else {
		slog.InfoContext(ctx, "Report already in sheet, marking mirrored", "id", id)
	}

	if err := w.source.MarkMirrored(ctx, id); err != nil {
		return false, fmt.Errorf("mark mirrored: %w", err)
	}
	return true, nil
}

// release drops the claim so a redelivered message can retry at once.
func (w *MirrorWorker) release(ctx context.Context, id string, cause error) error {
	if err := w.source.ReleaseMirror(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to release mirror claim", "id", id, "error", err)
	}
	return cause
}

// ProcessPending mirrors up to one batch of reports still pending.
// Failures mark the report as errored so one bad row cannot stall the sweep.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	ids, err := w.source.GetPendingMirror(ctx, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending reports: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending reports", "count", len(ids))
	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		copied, err := w.mirror(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mirror report", "id", id, "error", err)
			if merr := w.source.MarkMirrorError(ctx, id); merr != nil {
				slog.ErrorContext(ctx, "Failed to mark mirror error", "id", id, "error", merr)
			}
			continue
		}
		if copied {
			done++
		}
	}
	return done, nil
}

// Run sweeps immediately and then every Interval until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("mirror worker is already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	slog.InfoContext(ctx, "Mirror sweep started", "interval", w.config.Interval, "batch_size", w.config.BatchSize)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Mirror sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
