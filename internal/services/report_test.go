package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/store/memory"
)

func TestReportGenerator_Build(t *testing.T) {
	g := NewReportGenerator(memory.New(), "")
	txs := []core.Transaction{
		newTx("i1", "2025-01-05", core.Income, 2500, "Salary"),
		newTx("f1", "2025-01-05", core.FixedExpense, 1234, "Rent"),
		newTx("e1", "2025-01-06", core.Expense, 40, "Food"),
		newTx("e2", "2025-01-06", core.Expense, 40, "Books"),
	}
	stats := MonthlyStats{
		Summary:           core.Summarize(txs),
		DailySummaries:    []DailySummary{{Date: day("2025-01-05"), Income: units(2500), Balance: units(1266)}},
		DailyArchiveCount: 1,
	}

	r := g.Build(testUser, "2025-01", stats, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	if r.Title != "January 2025 Financial Report" || r.MonthName != "January 2025" {
		t.Errorf("title = %q, month name = %q", r.Title, r.MonthName)
	}

	wantLines := map[string]string{
		"Total income":   "$2,500.00",
		"Fixed expenses": "$1,234.00",
		"Balance":        "$1,186.00",
		"Transactions":   "4",
		"Active days":    "2",
		"Closed days":    "1",
	}
	for _, line := range r.Summary {
		if want, ok := wantLines[line.Label]; ok && line.Value != want {
			t.Errorf("%s = %q, want %q", line.Label, line.Value, want)
		}
	}
	if len(r.Summary) != 10 {
		t.Errorf("summary has %d lines", len(r.Summary))
	}

	wantOrder := []string{"Salary", "Rent", "Books", "Food"}
	if len(r.Categories) != len(wantOrder) {
		t.Fatalf("categories = %+v", r.Categories)
	}
	for i, cat := range wantOrder {
		if r.Categories[i].Category != cat {
			t.Errorf("category %d = %s, want %s", i, r.Categories[i].Category, cat)
		}
	}
	if r.Categories[1].TypeLabel != "Fixed expense" {
		t.Errorf("type label = %q", r.Categories[1].TypeLabel)
	}
	if len(r.Daily) != 1 || r.Daily[0].Balance != units(1266) {
		t.Errorf("daily rows = %+v", r.Daily)
	}
}

func TestReportGenerator_ListAndGet(t *testing.T) {
	ctx := context.Background()
	g := NewReportGenerator(memory.New(), "€")

	for _, month := range []string{"2024-12", "2025-02", "2025-01"} {
		if _, err := g.Generate(ctx, testUser, month, MonthlyStats{Summary: core.Summarize(nil)}); err != nil {
			t.Fatalf("Generate(%s) error = %v", month, err)
		}
	}
	if _, err := g.Generate(ctx, "bob", "2025-03", MonthlyStats{}); err != nil {
		t.Fatal(err)
	}

	list, err := g.List(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	var months []string
	for _, l := range list {
		months = append(months, l.Month)
	}
	if len(months) != 3 || months[0] != "2025-02" || months[2] != "2024-12" {
		t.Errorf("List() months = %v", months)
	}

	r, err := g.Get(ctx, testUser, "2025-01")
	if err != nil {
		t.Fatal(err)
	}
	if r.User != testUser || r.Summary[0].Value != "€0.00" {
		t.Errorf("report = %+v", r)
	}

	if _, err := g.Get(ctx, testUser, "2023-05"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}
