package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/store"
)

// Outcome of a close operation. Nothing to close is a normal result, not
// an error.
type Outcome string

const (
	OutcomeClosed         Outcome = "closed"
	OutcomeNothingToClose Outcome = "nothing_to_close"
)

var (
	ErrReportNotFound      = errors.New("report not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidLimit        = errors.New("invalid spending limit")
)

type (
	// DailyArchive is the immutable record of one closed day.
	DailyArchive struct {
		Date         core.Date          `json:"date"`
		Transactions []core.Transaction `json:"transactions"`
		Summary      core.Summary       `json:"summary"`
		ArchivedAt   time.Time          `json:"archivedAt"`
	}

	// DailySummary is the per-day line carried into a month's stats.
	DailySummary struct {
		Date             core.Date  `json:"date"`
		Income           core.Money `json:"income"`
		FixedExpense     core.Money `json:"fixedExpense"`
		Expense          core.Money `json:"expense"`
		Spending         core.Money `json:"spending"`
		Balance          core.Money `json:"balance"`
		TransactionCount int        `json:"transactionCount"`
	}

	MonthlyStats struct {
		core.Summary
		DailySummaries    []DailySummary `json:"dailySummaries"`
		DailyArchiveCount int            `json:"dailyArchiveCount"`
	}

	// MonthlyArchive is the immutable snapshot of a closed month.
	MonthlyArchive struct {
		Month        string             `json:"month"`
		MonthName    string             `json:"monthName"`
		Transactions []core.Transaction `json:"transactions"`
		Stats        MonthlyStats       `json:"stats"`
		ArchivedAt   time.Time          `json:"archivedAt"`
	}

	// DeleteLogEntry records what a daily close pruned from the ledger.
	DeleteLogEntry struct {
		Date         core.Date          `json:"date"`
		DeletedAt    time.Time          `json:"deletedAt"`
		RemovedCount int                `json:"removedCount"`
		Transactions []core.Transaction `json:"transactions"`
	}

	// CloseMarkers is the persisted boundary state of one user.
	CloseMarkers struct {
		LastDailyCloseDate core.Date `json:"lastDailyCloseDate"`
		ClosedMonths       []string  `json:"closedMonths"`
	}

	SpendingLimit struct {
		Amount    core.Money `json:"amount"`
		UpdatedAt time.Time  `json:"updatedAt"`
	}
)

func summarizeDay(a DailyArchive) DailySummary {
	return DailySummary{
		Date:             a.Date,
		Income:           a.Summary.TotalIncome,
		FixedExpense:     a.Summary.TotalFixedExpense,
		Expense:          a.Summary.TotalExpense,
		Spending:         a.Summary.TotalSpending,
		Balance:          a.Summary.Balance,
		TransactionCount: a.Summary.TransactionCount,
	}
}

func sortDailySummaries(s []DailySummary) {
	slices.SortFunc(s, func(a, b DailySummary) int {
		return strings.Compare(a.Date.String(), b.Date.String())
	})
}

// HasClosedMonth reports whether month is recorded as closed.
func (m CloseMarkers) HasClosedMonth(month string) bool {
	return slices.Contains(m.ClosedMonths, month)
}

// WithClosedMonth returns a copy of m with month recorded, kept sorted.
func (m CloseMarkers) WithClosedMonth(month string) CloseMarkers {
	if m.HasClosedMonth(month) {
		return m
	}
	months := append(slices.Clone(m.ClosedMonths), month)
	slices.Sort(months)
	m.ClosedMonths = months
	return m
}

func readLedger(ctx context.Context, s store.Store, key string) ([]core.Transaction, error) {
	txs, _, err := store.GetJSON[[]core.Transaction](ctx, s, key)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func writeLedger(ctx context.Context, s store.Store, key string, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return store.PutJSON(ctx, s, key, txs)
}

func loadMarkers(ctx context.Context, s store.Store, keys period.Keys) (CloseMarkers, error) {
	m, _, err := store.GetJSON[CloseMarkers](ctx, s, keys.Markers())
	if err != nil {
		return CloseMarkers{}, fmt.Errorf("load close markers: %w", err)
	}
	return m, nil
}

func saveMarkers(ctx context.Context, s store.Store, keys period.Keys, m CloseMarkers) error {
	if err := store.PutJSON(ctx, s, keys.Markers(), m); err != nil {
		return fmt.Errorf("save close markers: %w", err)
	}
	return nil
}

// dailyArchivesOf loads every daily archive of month in date order.
func dailyArchivesOf(ctx context.Context, s store.Store, keys period.Keys, month string) ([]DailyArchive, error) {
	dayKeys, err := s.ListKeysWithPrefix(ctx, keys.DailyArchivePrefix(month))
	if err != nil {
		return nil, fmt.Errorf("list daily archives: %w", err)
	}
	archives := make([]DailyArchive, 0, len(dayKeys))
	for _, k := range dayKeys {
		a, ok, err := store.GetJSON[DailyArchive](ctx, s, k)
		if err != nil {
			return nil, fmt.Errorf("load daily archive: %w", err)
		}
		if ok {
			archives = append(archives, a)
		}
	}
	return archives, nil
}
