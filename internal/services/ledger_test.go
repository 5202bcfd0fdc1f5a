package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"ledgerbook/internal/clock"
	"ledgerbook/internal/core"
	"ledgerbook/internal/store/memory"
)

func newTestLedger(today time.Time) *LedgerService {
	clk := clock.NewResolver(clock.NewFixed(today), clock.NewFixed(today), 0)
	return NewLedgerService(memory.New(), clk)
}

func TestLedgerService_AddValidation(t *testing.T) {
	valid := TransactionInput{Date: "2025-01-05", Description: "Lunch", Amount: "12,50", Type: "expense", Category: "Food"}

	tests := []struct {
		name    string
		mutate  func(*TransactionInput)
		wantErr error
	}{
		{"valid", func(*TransactionInput) {}, nil},
		{"missing date", func(in *TransactionInput) { in.Date = "" }, core.ErrInvalidDate},
		{"empty description", func(in *TransactionInput) { in.Description = "  " }, core.ErrEmptyDescription},
		{"negative amount", func(in *TransactionInput) { in.Amount = "-3" }, core.ErrInvalidAmount},
		{"unparsable amount", func(in *TransactionInput) { in.Amount = "abc" }, core.ErrInvalidAmount},
		{"unknown type", func(in *TransactionInput) { in.Type = "refund" }, core.ErrInvalidType},
		{"missing category", func(in *TransactionInput) { in.Category = "" }, core.ErrEmptyCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestLedger(jan10)
			in := valid
			tt.mutate(&in)
			tx, err := svc.Add(context.Background(), testUser, in)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Add() error = %v", err)
				}
				if tx.ID == "" || tx.Amount != core.Cents(1250) || tx.CreatedAt.IsZero() {
					t.Errorf("Add() = %+v", tx)
				}
				return
			}
			if !errors.Is(err, core.ErrInvalidTransaction) || !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLedgerService_AddListDelete(t *testing.T) {
	svc := newTestLedger(jan10)
	ctx := context.Background()

	var added []*core.Transaction
	for _, in := range []TransactionInput{
		{Date: "2025-01-07", Description: "Coffee", Amount: "3", Type: "expense", Category: "Food"},
		{Date: "2025-01-02", Description: "Pay", Amount: "1000", Type: "income", Category: "Salary"},
	} {
		tx, err := svc.Add(ctx, testUser, in)
		if err != nil {
			t.Fatal(err)
		}
		added = append(added, tx)
	}

	view, err := svc.List(ctx, testUser, "")
	if err != nil {
		t.Fatal(err)
	}
	if view.Month != "2025-01" || len(view.Transactions) != 2 || view.Transactions[0].Description != "Pay" {
		t.Fatalf("List() = %+v", view)
	}
	if view.Summary.Balance != units(997) {
		t.Errorf("balance = %s", view.Summary.Balance)
	}

	if err := svc.Delete(ctx, testUser, "2025-01", added[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, testUser, "2025-01", added[0].ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}

	n, err := svc.ResetMonth(ctx, testUser, "2025-01")
	if err != nil || n != 1 {
		t.Fatalf("ResetMonth() = %d, %v", n, err)
	}
	view, err = svc.List(ctx, testUser, "2025-01")
	if err != nil || len(view.Transactions) != 0 {
		t.Errorf("List() after reset = %+v, %v", view, err)
	}
}

func TestLedgerService_Search(t *testing.T) {
	svc := newTestLedger(jan10)
	ctx := context.Background()
	for _, in := range []TransactionInput{
		{Date: "2024-12-24", Description: "Gifts", Amount: "80", Type: "expense", Category: "Presents"},
		{Date: "2025-01-03", Description: "Groceries", Amount: "45", Type: "expense", Category: "Food"},
		{Date: "2025-01-09", Description: "Dinner out", Amount: "30", Type: "expense", Category: "Food"},
		{Date: "2025-01-01", Description: "Salary", Amount: "2000", Type: "income", Category: "Work"},
	} {
		if _, err := svc.Add(ctx, testUser, in); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter SearchFilter
		want   []string
	}{
		{"everything newest first", SearchFilter{}, []string{"Dinner out", "Groceries", "Salary", "Gifts"}},
		{"by year", SearchFilter{Year: 2024}, []string{"Gifts"}},
		{"by month", SearchFilter{Year: 2025, Month: 1, Type: core.Expense}, []string{"Dinner out", "Groceries"}},
		{"text matches category", SearchFilter{Text: "food"}, []string{"Dinner out", "Groceries"}},
		{"text matches description", SearchFilter{Text: "GIFT"}, []string{"Gifts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(ctx, testUser, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			var names []string
			for _, tx := range got {
				names = append(names, tx.Description)
			}
			if !slices.Equal(names, tt.want) {
				t.Errorf("Search() = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestAmountText_UnmarshalJSON(t *testing.T) {
	var in TransactionInput
	if err := json.Unmarshal([]byte(`{"amount": 12.5}`), &in); err != nil || in.Amount != "12.5" {
		t.Errorf("number: %q, %v", in.Amount, err)
	}
	if err := json.Unmarshal([]byte(`{"amount": "7,25"}`), &in); err != nil || in.Amount != "7,25" {
		t.Errorf("string: %q, %v", in.Amount, err)
	}
}
