// Package worker consumes period closed events and exports monthly reports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/cache"
	"ledgerbook/internal/services"
	"ledgerbook/internal/sheets"
)

const (
	exportedCacheSize = 1024
	exportedCacheTTL  = 24 * time.Hour
)

// ReportSource reads stored monthly reports.
type ReportSource interface {
	Get(ctx context.Context, user, month string) (*services.MonthlyReport, error)
	List(ctx context.Context, user string) ([]services.ReportListing, error)
}

// ReportWorker exports a month's report to a spreadsheet when the month is
// closed. Redelivered events for a report version already exported are
// skipped.
type ReportWorker struct {
	reports  ReportSource
	exporter sheets.ReportExporter
	exported *cache.LRUCache[string]
}

func NewReportWorker(reports ReportSource, exporter sheets.ReportExporter) *ReportWorker {
	return &ReportWorker{
		reports:  reports,
		exporter: exporter,
		exported: cache.NewLRUCache[string](exportedCacheSize, exportedCacheTTL),
	}
}

// Cache exposes the export dedupe cache so it can be registered for cleanup.
func (w *ReportWorker) Cache() cache.Cleaner { return w.exported }

// HandlePeriodClosed processes one period closed message. Day closes are
// ignored. A missing report is logged and acknowledged, export failures are
// returned so the message is requeued.
func (w *ReportWorker) HandlePeriodClosed(ctx context.Context, msg *amqp.PeriodClosedMessage) error {
	if msg.Kind != amqp.KindMonth {
		slog.DebugContext(ctx, "Ignoring non-month close", "user", msg.User, "kind", msg.Kind, "period", msg.Period)
		return nil
	}

	slog.InfoContext(ctx, "Processing month close", "user", msg.User, "month", msg.Period)

	r, err := w.reports.Get(ctx, msg.User, msg.Period)
	if errors.Is(err, services.ErrReportNotFound) {
		slog.WarnContext(ctx, "Report not found for closed month, skipping", "user", msg.User, "month", msg.Period)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	_, err = w.export(ctx, r)
	return err
}

func (w *ReportWorker) export(ctx context.Context, r *services.MonthlyReport) (string, error) {
	key := exportKey(r)
	if ref, ok := w.exported.Get(key); ok {
		slog.InfoContext(ctx, "Report already exported", "user", r.User, "month", r.Month, "ref", ref)
		return ref, nil
	}

	ref, err := w.exporter.ExportReport(ctx, r)
	if err != nil {
		return "", fmt.Errorf("export report: %w", err)
	}
	w.exported.Set(key, ref)
	slog.InfoContext(ctx, "Successfully exported report", "user", r.User, "month", r.Month, "ref", ref)
	return ref, nil
}

// Backfill exports every stored report of user, oldest first. Failures are
// logged per report and counted.
func (w *ReportWorker) Backfill(ctx context.Context, user string) (exported int, failed int, err error) {
	listing, err := w.reports.List(ctx, user)
	if err != nil {
		return 0, 0, fmt.Errorf("list reports: %w", err)
	}

	for i := len(listing) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return exported, failed, err
		}
		month := listing[i].Month
		r, err := w.reports.Get(ctx, user, month)
		if err == nil {
			_, err = w.export(ctx, r)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to backfill report", "user", user, "month", month, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Report backfill complete", "user", user, "exported", exported, "failed", failed)
	return exported, failed, nil
}

// exportKey identifies one version of a report; a re-closed month carries
// a new generatedAt and is exported again.
func exportKey(r *services.MonthlyReport) string {
	return r.User + ":" + r.Month + ":" + r.GeneratedAt.UTC().Format(time.RFC3339Nano)
}
