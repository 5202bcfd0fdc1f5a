package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgerbook/internal/clock"
	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/store"
)

// AmountText is an amount as typed by a user. Both JSON numbers and JSON
// strings decode into it.
type AmountText string

func (a *AmountText) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	*a = AmountText(strings.TrimSpace(string(data)))
	return nil
}

type (
	// TransactionInput is a transaction as submitted, before validation.
	TransactionInput struct {
		Date        string     `json:"date"`
		Description string     `json:"description"`
		Amount      AmountText `json:"amount"`
		Type        string     `json:"type"`
		Category    string     `json:"category"`
	}

	// LedgerView is the open ledger of one month with its running summary.
	LedgerView struct {
		Month         string             `json:"month"`
		Transactions  []core.Transaction `json:"transactions"`
		Summary       core.Summary       `json:"summary"`
		DegradedClock bool               `json:"degradedClock"`
	}

	// SearchFilter narrows a cross-month search. Zero fields match anything.
	SearchFilter struct {
		Year  int
		Month int
		Type  core.TransactionType
		Text  string
	}
)

// LedgerService manages the live ledgers of every user.
type LedgerService struct {
	ledger store.Store
	clock  *clock.Resolver
	now    func() time.Time
	newID  func() (uuid.UUID, error)
}

func NewLedgerService(ledger store.Store, clk *clock.Resolver) *LedgerService {
	return &LedgerService{
		ledger: ledger,
		clock:  clk,
		now:    time.Now,
		newID:  uuid.NewV7,
	}
}

// Add validates input and appends it to the ledger of its month.
func (s *LedgerService) Add(ctx context.Context, user string, in TransactionInput) (*core.Transaction, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	tx, err := buildTransaction(in)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate transaction id: %w", err)
	}
	tx.ID = id.String()
	tx.CreatedAt = s.now().UTC()

	key := keys.Ledger(period.MonthKey(tx.Date))
	txs, err := readLedger(ctx, s.ledger, key)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if err := writeLedger(ctx, s.ledger, key, append(txs, tx)); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction added",
		"user", keys.User(),
		"id", tx.ID,
		"date", tx.Date.String(),
		"type", tx.Type,
		"amount", tx.Amount.String())
	return &tx, nil
}

func buildTransaction(in TransactionInput) (core.Transaction, error) {
	invalid := func(err error) error {
		return fmt.Errorf("%w: %w", core.ErrInvalidTransaction, err)
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, invalid(err)
	}
	amount, err := core.ParseAmount(string(in.Amount))
	if err != nil {
		return core.Transaction{}, invalid(err)
	}
	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Transaction{}, invalid(err)
	}
	tx := core.Transaction{
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		Type:        typ,
		Category:    strings.TrimSpace(in.Category),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Delete removes the entry id from the ledger of month.
func (s *LedgerService) Delete(ctx context.Context, user, month, id string) error {
	keys, err := period.For(user)
	if err != nil {
		return err
	}
	if month, err = period.ParseMonth(month); err != nil {
		return err
	}
	key := keys.Ledger(month)
	txs, err := readLedger(ctx, s.ledger, key)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	idx := slices.IndexFunc(txs, func(tx core.Transaction) bool { return tx.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	if err := writeLedger(ctx, s.ledger, key, slices.Delete(txs, idx, idx+1)); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "user", keys.User(), "id", id, "month", month)
	return nil
}

// List returns the open ledger of month with its summary. An empty month
// selects the current month according to the clock.
func (s *LedgerService) List(ctx context.Context, user, month string) (*LedgerView, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	view := &LedgerView{}
	if month == "" {
		reading, degraded := s.clock.Today(ctx)
		month = reading.MonthKey
		view.DegradedClock = degraded
	} else if month, err = period.ParseMonth(month); err != nil {
		return nil, err
	}
	txs, err := readLedger(ctx, s.ledger, keys.Ledger(month))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	core.SortTransactions(txs)

	view.Month = month
	view.Transactions = txs
	view.Summary = core.Summarize(txs)
	return view, nil
}

// Search scans every ledger month of user, newest entries first.
func (s *LedgerService) Search(ctx context.Context, user string, f SearchFilter) ([]core.Transaction, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	ledgerKeys, err := s.ledger.ListKeysWithPrefix(ctx, keys.LedgerPrefix())
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}

	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := []core.Transaction{}
	for _, key := range ledgerKeys {
		if !f.matchesMonth(period.PeriodFromKey(key)) {
			continue
		}
		txs, err := readLedger(ctx, s.ledger, key)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		for _, tx := range txs {
			if f.Type != "" && tx.Type != f.Type {
				continue
			}
			if text != "" &&
				!strings.Contains(strings.ToLower(tx.Description), text) &&
				!strings.Contains(strings.ToLower(tx.Category), text) {
				continue
			}
			out = append(out, tx)
		}
	}
	core.SortTransactions(out)
	slices.Reverse(out)
	return out, nil
}

func (f SearchFilter) matchesMonth(month string) bool {
	year, mon, ok := strings.Cut(month, "-")
	if !ok {
		return false
	}
	if f.Year != 0 && year != strconv.Itoa(f.Year) {
		return false
	}
	if f.Month != 0 && mon != fmt.Sprintf("%02d", f.Month) {
		return false
	}
	return true
}

// ResetMonth clears the live ledger of month and returns how many entries
// it held. Archives and the spending limit are left alone.
func (s *LedgerService) ResetMonth(ctx context.Context, user, month string) (int, error) {
	keys, err := period.For(user)
	if err != nil {
		return 0, err
	}
	if month, err = period.ParseMonth(month); err != nil {
		return 0, err
	}
	key := keys.Ledger(month)
	txs, err := readLedger(ctx, s.ledger, key)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}
	if err := s.ledger.Delete(ctx, key); err != nil {
		return 0, fmt.Errorf("reset ledger: %w", err)
	}
	slog.WarnContext(ctx, "Ledger month reset", "user", keys.User(), "month", month, "removed", len(txs))
	return len(txs), nil
}
