// Package worker consumes completion events and exports them to the
// configured sheet, plus a daily digest of every active DMO.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dmo/internal/amqp"
	"dmo/internal/core"
	"dmo/internal/export"
	"dmo/internal/services"
)

// ExportWorker mirrors completion writes into the export sheet.
type ExportWorker struct {
	service *services.DmoService
	writer  export.CompletionWriter
	digest  export.DigestWriter
}

func NewExportWorker(service *services.DmoService, writer export.CompletionWriter, digest export.DigestWriter) *ExportWorker {
	return &ExportWorker{
		service: service,
		writer:  writer,
		digest:  digest,
	}
}

// HandleCompletionEvent re-reads the completion named by the event and
// appends it to the export sheet. Events for records or DMOs deleted since
// publication are dropped, not retried.
func (w *ExportWorker) HandleCompletionEvent(ctx context.Context, ev *amqp.CompletionEvent) error {
	slog.InfoContext(ctx, "Processing completion event",
		"dmo_id", ev.DmoID,
		"date", ev.Date.String())

	dmo, err := w.service.GetDmo(ctx, ev.DmoID)
	if err != nil {
		if core.IsNotFound(err) {
			slog.WarnContext(ctx, "DMO deleted before export, dropping event", "dmo_id", ev.DmoID)
			return nil
		}
		return fmt.Errorf("get dmo: %w", err)
	}

	rec, err := w.service.GetCompletion(ctx, ev.DmoID, ev.Date)
	if err != nil {
		return fmt.Errorf("get completion: %w", err)
	}
	if rec == nil {
		slog.WarnContext(ctx, "Completion record gone, dropping event",
			"dmo_id", ev.DmoID, "date", ev.Date.String())
		return nil
	}

	row := export.Row{
		Date:      rec.Date,
		DmoName:   dmo.Name,
		Completed: rec.Completed,
	}
	if rec.Note != nil {
		row.Note = *rec.Note
	}

	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append export row: %w", err)
	}

	slog.InfoContext(ctx, "Exported completion",
		"dmo_id", ev.DmoID,
		"date", ev.Date.String(),
		"sheets_ref", ref)

	return nil
}

// DigestOnce exports the daily report for one date.
func (w *ExportWorker) DigestOnce(ctx context.Context, day core.Date) error {
	if w.digest == nil {
		return nil
	}

	report, err := w.service.GetDailyReport(ctx, day)
	if err != nil {
		return fmt.Errorf("build daily report: %w", err)
	}

	if err := w.digest.AppendDigest(ctx, report); err != nil {
		return fmt.Errorf("append digest: %w", err)
	}

	slog.InfoContext(ctx, "Exported daily digest",
		"date", day.String(),
		"dmos", len(report.Dmos))

	return nil
}

// RunDigestLoop exports a digest every day at the given wall-clock offset
// from midnight, until ctx is cancelled. Failures are logged and the loop
// keeps going.
func (w *ExportWorker) RunDigestLoop(ctx context.Context, clockOffset time.Duration) error {
	for {
		wait := untilNext(time.Now(), clockOffset)
		slog.InfoContext(ctx, "Next digest scheduled", "in", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := w.DigestOnce(ctx, core.Today()); err != nil {
			slog.ErrorContext(ctx, "Daily digest failed", "error", err)
		}
	}
}

// untilNext returns the wait from now until the next daily occurrence of the
// given offset from local midnight.
func untilNext(now time.Time, clockOffset time.Duration) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	next := midnight.Add(clockOffset)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
