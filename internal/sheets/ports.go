// Package sheets exports monthly reports to spreadsheets.
package sheets

import (
	"context"
	"errors"
	"time"

	"ledgerbook/internal/services"
)

var ErrEmptyReport = errors.New("report has no month")

// Ports for outbound adapters.
type (
	// ReportExporter appends a monthly report to a spreadsheet and returns a
	// reference to the written rows.
	ReportExporter interface {
		ExportReport(ctx context.Context, r *services.MonthlyReport) (rowRef string, err error)
	}
)

// ReportRows lays a report out as spreadsheet rows: one summary row
// followed by one row per category.
//
// Summary columns: month, user, income, fixed, expense, spending, balance,
// transactions, days, generatedAt. Category columns: month, user,
// "category", name, type, amount, count.
func ReportRows(r *services.MonthlyReport) ([][]any, error) {
	if r == nil || r.Month == "" {
		return nil, ErrEmptyReport
	}
	s := r.Stats.Summary
	rows := make([][]any, 0, 1+len(r.Categories))
	rows = append(rows, []any{
		r.Month,
		r.User,
		s.TotalIncome.String(),
		s.TotalFixedExpense.String(),
		s.TotalExpense.String(),
		s.TotalSpending.String(),
		s.Balance.String(),
		s.TransactionCount,
		s.DaysCount,
		r.GeneratedAt.UTC().Format(time.RFC3339),
	})
	for _, c := range r.Categories {
		rows = append(rows, []any{
			r.Month,
			r.User,
			"category",
			c.Category,
			c.TypeLabel,
			c.Amount.String(),
			c.Count,
		})
	}
	return rows, nil
}
