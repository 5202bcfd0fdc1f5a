package sheets

import (
	"errors"
	"testing"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/services"
)

func TestReportRows(t *testing.T) {
	r := &services.MonthlyReport{
		Month:       "2025-01",
		User:        "alice",
		GeneratedAt: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		Categories: []services.CategoryRow{
			{Category: "Rent", Amount: core.Cents(90000), Count: 1, TypeLabel: "Fixed expense"},
			{Category: "Food", Amount: core.Cents(12345), Count: 7, TypeLabel: "Expense"},
		},
	}
	r.Stats.TotalIncome = core.Cents(250000)
	r.Stats.Balance = core.Cents(147655)
	r.Stats.TransactionCount = 9

	rows, err := ReportRows(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	summary := rows[0]
	if summary[0] != "2025-01" || summary[2] != "2500.00" || summary[6] != "1476.55" || summary[7] != 9 {
		t.Errorf("summary row = %v", summary)
	}
	if summary[9] != "2025-02-01T08:00:00Z" {
		t.Errorf("generatedAt = %v", summary[9])
	}
	if rows[2][3] != "Food" || rows[2][5] != "123.45" || rows[2][6] != 7 {
		t.Errorf("category row = %v", rows[2])
	}
}

func TestReportRows_Empty(t *testing.T) {
	for _, r := range []*services.MonthlyReport{nil, {}} {
		if _, err := ReportRows(r); !errors.Is(err, ErrEmptyReport) {
			t.Errorf("ReportRows(%v) error = %v", r, err)
		}
	}
}
