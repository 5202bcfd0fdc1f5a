// Package services provides business logic and orchestration services.
//
// This file implements the closing engine: moving a day's entries out of
// the live ledger into a daily archive, and rolling a month's daily
// archives and remaining ledger entries into a monthly archive and report.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledgerbook/internal/clock"
	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/store"
)

// ClosingEngine closes days and months for any user. The ledger store holds
// live transactions, spending limits and close markers; the archive store
// holds daily and monthly archives, reports and delete logs.
type ClosingEngine struct {
	ledger    store.Store
	archive   store.Store
	clock     *clock.Resolver
	reports   *ReportGenerator
	publisher PeriodClosedPublisher
	reclaim   bool
	now       func() time.Time
}

// EngineOption configures a ClosingEngine.
type EngineOption func(*ClosingEngine)

// WithPublisher announces every close through p.
func WithPublisher(p PeriodClosedPublisher) EngineOption {
	return func(e *ClosingEngine) { e.publisher = p }
}

// WithReclaim deletes a month's daily archives once the month is closed.
func WithReclaim(enabled bool) EngineOption {
	return func(e *ClosingEngine) { e.reclaim = enabled }
}

// WithNow overrides the source of archive timestamps.
func WithNow(now func() time.Time) EngineOption {
	return func(e *ClosingEngine) { e.now = now }
}

func NewClosingEngine(ledger, archive store.Store, clk *clock.Resolver, reports *ReportGenerator, opts ...EngineOption) *ClosingEngine {
	e := &ClosingEngine{
		ledger:  ledger,
		archive: archive,
		clock:   clk,
		reports: reports,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type (
	DayCloseResult struct {
		Outcome       Outcome       `json:"outcome"`
		Date          core.Date     `json:"date"`
		Archive       *DailyArchive `json:"archive,omitempty"`
		Removed       int           `json:"removed"`
		Retained      int           `json:"retained"`
		DegradedClock bool          `json:"degradedClock"`
	}

	MonthCloseResult struct {
		Outcome       Outcome         `json:"outcome"`
		Month         string          `json:"month"`
		Archive       *MonthlyArchive `json:"archive,omitempty"`
		Report        *MonthlyReport  `json:"report,omitempty"`
		DailyArchives int             `json:"dailyArchives"`
		LedgerEntries int             `json:"ledgerEntries"`
		ReclaimedDays int             `json:"reclaimedDays"`
		DegradedClock bool            `json:"degradedClock"`
	}

	DailyStatus struct {
		Date             core.Date  `json:"date"`
		Archived         bool       `json:"archived"`
		ArchivedAt       *time.Time `json:"archivedAt,omitempty"`
		TransactionCount int        `json:"transactionCount"`
		DegradedClock    bool       `json:"degradedClock"`
	}
)

// CloseDay archives every ledger entry dated target and prunes all but the
// retained ones from the ledger. A zero target closes yesterday according
// to the clock.
//
// The archive is written before the ledger is touched, so a failure at any
// point leaves either the old state or a retriable one. A day whose only
// remaining entries are retained ones and that already has an archive is
// reported as nothing to close and left untouched. Re-closing a day merges
// new entries into its existing archive.
func (e *ClosingEngine) CloseDay(ctx context.Context, user string, target core.Date) (*DayCloseResult, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}

	result := &DayCloseResult{Outcome: OutcomeNothingToClose}
	if target.IsZero() {
		reading, degraded := e.clock.Today(ctx)
		target = period.Yesterday(reading.Date)
		result.DegradedClock = degraded
	}
	result.Date = target

	ledgerKey := keys.Ledger(period.MonthKey(target))
	txs, err := readLedger(ctx, e.ledger, ledgerKey)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	var selected, kept, removed []core.Transaction
	for _, tx := range txs {
		if !tx.Date.Equal(target) {
			kept = append(kept, tx)
			continue
		}
		selected = append(selected, tx)
		if tx.Type.IsRetainedOnDailyClose() {
			kept = append(kept, tx)
		} else {
			removed = append(removed, tx)
		}
	}
	result.Retained = len(selected) - len(removed)

	if len(selected) == 0 {
		slog.InfoContext(ctx, "Nothing to close for day", "user", keys.User(), "date", target.String())
		return result, nil
	}

	archiveKey := keys.DailyArchive(target)
	prior, exists, err := store.GetJSON[DailyArchive](ctx, e.archive, archiveKey)
	if err != nil {
		return nil, fmt.Errorf("check daily archive: %w", err)
	}
	if exists && len(removed) == 0 {
		slog.InfoContext(ctx, "Day already closed", "user", keys.User(), "date", target.String(), "retained", result.Retained)
		return result, nil
	}

	// Entries archived by an earlier close of this day are already gone
	// from the ledger and must survive the rewrite.
	merger := newTransactionMerger()
	if exists {
		merger.add(prior.Transactions)
	}
	merger.add(selected)
	archived := merger.result()

	archive := DailyArchive{
		Date:         target,
		Transactions: archived,
		Summary:      core.Summarize(archived),
		ArchivedAt:   e.now().UTC(),
	}
	if err := store.PutJSON(ctx, e.archive, archiveKey, archive); err != nil {
		return nil, fmt.Errorf("write daily archive: %w", err)
	}

	if len(removed) > 0 {
		if err := writeLedger(ctx, e.ledger, ledgerKey, kept); err != nil {
			return nil, fmt.Errorf("prune ledger: %w", err)
		}
		if err := e.appendDeleteLog(ctx, keys, target, removed); err != nil {
			slog.ErrorContext(ctx, "Failed to append delete log",
				"user", keys.User(), "date", target.String(), "error", err)
		}
	}

	result.Outcome = OutcomeClosed
	result.Archive = &archive
	result.Removed = len(removed)

	slog.InfoContext(ctx, "Day closed",
		"user", keys.User(),
		"date", target.String(),
		"archived", len(archived),
		"removed", result.Removed,
		"retained", result.Retained,
		"degraded", result.DegradedClock)

	e.publish(ctx, keys.User(), PeriodDay, target.String(), len(archived))
	return result, nil
}

func (e *ClosingEngine) appendDeleteLog(ctx context.Context, keys period.Keys, day core.Date, removed []core.Transaction) error {
	key := keys.DeleteLog(day)
	entries, _, err := store.GetJSON[[]DeleteLogEntry](ctx, e.archive, key)
	if err != nil {
		return err
	}
	entries = append(entries, DeleteLogEntry{
		Date:         day,
		DeletedAt:    e.now().UTC(),
		RemovedCount: len(removed),
		Transactions: removed,
	})
	return store.PutJSON(ctx, e.archive, key, entries)
}

// DeleteLog returns the audit entries recorded for day.
func (e *ClosingEngine) DeleteLog(ctx context.Context, user string, day core.Date) ([]DeleteLogEntry, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	entries, _, err := store.GetJSON[[]DeleteLogEntry](ctx, e.archive, keys.DeleteLog(day))
	if err != nil {
		return nil, fmt.Errorf("load delete log: %w", err)
	}
	return entries, nil
}

// CloseMonth merges a month's previous monthly archive, its daily archives
// and its remaining ledger entries into one monthly archive, deduplicated
// by transaction id, and generates the month's report. An empty month
// closes the previous month according to the clock.
//
// The month ledger is not pruned. Re-closing a month re-derives and
// overwrites the archive and report.
func (e *ClosingEngine) CloseMonth(ctx context.Context, user, month string) (*MonthCloseResult, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}

	result := &MonthCloseResult{Outcome: OutcomeNothingToClose}
	if month == "" {
		reading, degraded := e.clock.Today(ctx)
		result.DegradedClock = degraded
		if month, err = period.PreviousMonth(reading.MonthKey); err != nil {
			return nil, err
		}
	} else if month, err = period.ParseMonth(month); err != nil {
		return nil, err
	}
	result.Month = month

	previous, hadPrevious, err := store.GetJSON[MonthlyArchive](ctx, e.archive, keys.MonthlyArchive(month))
	if err != nil {
		return nil, fmt.Errorf("load monthly archive: %w", err)
	}
	dailies, err := dailyArchivesOf(ctx, e.archive, keys, month)
	if err != nil {
		return nil, err
	}
	ledgerTxs, err := readLedger(ctx, e.ledger, keys.Ledger(month))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	result.DailyArchives = len(dailies)
	result.LedgerEntries = len(ledgerTxs)

	merger := newTransactionMerger()
	if hadPrevious {
		merger.add(previous.Transactions)
	}
	for _, d := range dailies {
		merger.add(d.Transactions)
	}
	for _, tx := range ledgerTxs {
		if period.InMonth(tx.Date, month) {
			merger.add([]core.Transaction{tx})
		}
	}
	merged := merger.result()

	if len(merged) == 0 && len(dailies) == 0 {
		slog.InfoContext(ctx, "Nothing to close for month", "user", keys.User(), "month", month)
		return result, nil
	}

	stats := MonthlyStats{
		Summary:           core.Summarize(merged),
		DailySummaries:    mergeDailySummaries(dailies, previous.Stats.DailySummaries),
		DailyArchiveCount: len(dailies),
	}
	archive := MonthlyArchive{
		Month:        month,
		MonthName:    period.MonthName(month),
		Transactions: merged,
		Stats:        stats,
		ArchivedAt:   e.now().UTC(),
	}
	if err := store.PutJSON(ctx, e.archive, keys.MonthlyArchive(month), archive); err != nil {
		return nil, fmt.Errorf("write monthly archive: %w", err)
	}

	report, err := e.reports.Generate(ctx, keys.User(), month, stats)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	markers, err := loadMarkers(ctx, e.ledger, keys)
	if err != nil {
		return nil, err
	}
	if err := saveMarkers(ctx, e.ledger, keys, markers.WithClosedMonth(month)); err != nil {
		return nil, err
	}

	result.Outcome = OutcomeClosed
	result.Archive = &archive
	result.Report = report

	slog.InfoContext(ctx, "Month closed",
		"user", keys.User(),
		"month", month,
		"transactions", len(merged),
		"daily_archives", len(dailies),
		"ledger_entries", len(ledgerTxs),
		"degraded", result.DegradedClock)

	e.publish(ctx, keys.User(), PeriodMonth, month, len(merged))

	if e.reclaim {
		result.ReclaimedDays = e.reclaimDailyArchives(ctx, keys, dailies)
	}
	return result, nil
}

// reclaimDailyArchives deletes the given daily archives. It is best effort:
// the monthly archive already holds every transaction they contained.
func (e *ClosingEngine) reclaimDailyArchives(ctx context.Context, keys period.Keys, dailies []DailyArchive) int {
	reclaimed := 0
	for _, d := range dailies {
		if err := e.archive.Delete(ctx, keys.DailyArchive(d.Date)); err != nil {
			slog.WarnContext(ctx, "Failed to reclaim daily archive",
				"user", keys.User(), "date", d.Date.String(), "error", err)
			continue
		}
		reclaimed++
	}
	slog.InfoContext(ctx, "Reclaimed daily archives", "user", keys.User(), "count", reclaimed)
	return reclaimed
}

// DailyStatus reports whether date has been closed. A zero date checks
// yesterday according to the clock.
func (e *ClosingEngine) DailyStatus(ctx context.Context, user string, date core.Date) (*DailyStatus, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	status := &DailyStatus{}
	if date.IsZero() {
		reading, degraded := e.clock.Today(ctx)
		date = period.Yesterday(reading.Date)
		status.DegradedClock = degraded
	}
	status.Date = date

	a, ok, err := store.GetJSON[DailyArchive](ctx, e.archive, keys.DailyArchive(date))
	if err != nil {
		return nil, fmt.Errorf("load daily archive: %w", err)
	}
	if ok {
		archivedAt := a.ArchivedAt
		status.Archived = true
		status.ArchivedAt = &archivedAt
		status.TransactionCount = len(a.Transactions)
	}
	return status, nil
}

// MonthlyArchive returns the stored archive of month.
func (e *ClosingEngine) MonthlyArchive(ctx context.Context, user, month string) (*MonthlyArchive, bool, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, false, err
	}
	if month, err = period.ParseMonth(month); err != nil {
		return nil, false, err
	}
	a, ok, err := store.GetJSON[MonthlyArchive](ctx, e.archive, keys.MonthlyArchive(month))
	if err != nil || !ok {
		return nil, ok, err
	}
	return &a, true, nil
}

func (e *ClosingEngine) publish(ctx context.Context, user, kind, periodKey string, count int) {
	if e.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping period closed event", "kind", kind, "period", periodKey)
		return
	}
	if err := e.publisher.PublishPeriodClosed(ctx, user, kind, periodKey, count); err != nil {
		slog.ErrorContext(ctx, "Failed to publish period closed event",
			"user", user, "kind", kind, "period", periodKey, "error", err)
	}
}

// transactionMerger accumulates transactions keeping the first occurrence
// of every id.
type transactionMerger struct {
	seen map[string]struct{}
	txs  []core.Transaction
}

func newTransactionMerger() *transactionMerger {
	return &transactionMerger{seen: make(map[string]struct{})}
}

func (m *transactionMerger) add(txs []core.Transaction) {
	for _, tx := range txs {
		if _, dup := m.seen[tx.ID]; dup {
			continue
		}
		m.seen[tx.ID] = struct{}{}
		m.txs = append(m.txs, tx)
	}
}

func (m *transactionMerger) result() []core.Transaction {
	core.SortTransactions(m.txs)
	return m.txs
}

// mergeDailySummaries builds one summary per daily archive, keeping
// summaries from an earlier close for days whose archive was reclaimed.
func mergeDailySummaries(dailies []DailyArchive, previous []DailySummary) []DailySummary {
	byDate := make(map[string]DailySummary, len(dailies)+len(previous))
	for _, s := range previous {
		byDate[s.Date.String()] = s
	}
	for _, d := range dailies {
		byDate[d.Date.String()] = summarizeDay(d)
	}
	out := make([]DailySummary, 0, len(byDate))
	for _, s := range byDate {
		out = append(out, s)
	}
	sortDailySummaries(out)
	return out
}
