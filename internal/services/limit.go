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

// LimitStatus is a spending limit check for the current month.
type LimitStatus struct {
	core.LimitCheck
	Month         string     `json:"month"`
	LiveSpent     core.Money `json:"liveSpent"`
	ArchivedSpent core.Money `json:"archivedSpent"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	DegradedClock bool       `json:"degradedClock"`
}

// LimitService stores a per-user monthly spending limit and checks the
// current month's expense entries against it.
type LimitService struct {
	ledger  store.Store
	archive store.Store
	clock   *clock.Resolver
	now     func() time.Time
}

func NewLimitService(ledger, archive store.Store, clk *clock.Resolver) *LimitService {
	return &LimitService{ledger: ledger, archive: archive, clock: clk, now: time.Now}
}

// Set stores a positive limit.
func (s *LimitService) Set(ctx context.Context, user string, amount core.Money) (*SpendingLimit, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	if amount.Cents <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidLimit)
	}
	limit := SpendingLimit{Amount: amount, UpdatedAt: s.now().UTC()}
	if err := store.PutJSON(ctx, s.ledger, keys.Limit(), limit); err != nil {
		return nil, fmt.Errorf("save spending limit: %w", err)
	}
	slog.InfoContext(ctx, "Spending limit set", "user", keys.User(), "amount", amount.String())
	return &limit, nil
}

// Get returns the stored limit, if any.
func (s *LimitService) Get(ctx context.Context, user string) (*SpendingLimit, bool, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, false, err
	}
	limit, ok, err := store.GetJSON[SpendingLimit](ctx, s.ledger, keys.Limit())
	if err != nil {
		return nil, false, fmt.Errorf("load spending limit: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &limit, true, nil
}

func (s *LimitService) Clear(ctx context.Context, user string) error {
	keys, err := period.For(user)
	if err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, keys.Limit()); err != nil {
		return fmt.Errorf("clear spending limit: %w", err)
	}
	slog.InfoContext(ctx, "Spending limit cleared", "user", keys.User())
	return nil
}

// Status checks the current month's expense entries against the limit.
// Spending counts the live ledger and the month's daily archives, each
// transaction once.
func (s *LimitService) Status(ctx context.Context, user string) (*LimitStatus, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	reading, degraded := s.clock.Today(ctx)
	month := reading.MonthKey

	limit, ok, err := s.Get(ctx, keys.User())
	if err != nil {
		return nil, err
	}

	live, err := readLedger(ctx, s.ledger, keys.Ledger(month))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	dailies, err := dailyArchivesOf(ctx, s.archive, keys, month)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var liveSpent, archivedSpent core.Money
	count := func(tx core.Transaction) bool {
		if _, dup := seen[tx.ID]; dup {
			return false
		}
		seen[tx.ID] = struct{}{}
		return tx.Type == core.Expense
	}
	for _, tx := range live {
		if count(tx) {
			liveSpent = liveSpent.Add(tx.Amount)
		}
	}
	for _, d := range dailies {
		for _, tx := range d.Transactions {
			if count(tx) {
				archivedSpent = archivedSpent.Add(tx.Amount)
			}
		}
	}

	var amount core.Money
	status := &LimitStatus{
		Month:         month,
		LiveSpent:     liveSpent,
		ArchivedSpent: archivedSpent,
		DegradedClock: degraded,
	}
	if ok {
		amount = limit.Amount
		updated := limit.UpdatedAt
		status.UpdatedAt = &updated
	}
	status.LimitCheck = core.CheckLimit(amount, liveSpent.Add(archivedSpent))
	return status, nil
}
