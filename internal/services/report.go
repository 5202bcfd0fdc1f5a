package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/store"
)

type (
	// ReportLine is one labelled figure of a report summary.
	ReportLine struct {
		Label string `json:"label"`
		Value string `json:"value"`
	}

	CategoryRow struct {
		Category  string               `json:"category"`
		Amount    core.Money           `json:"amount"`
		Formatted string               `json:"formatted"`
		Count     int                  `json:"count"`
		Type      core.TransactionType `json:"type"`
		TypeLabel string               `json:"typeLabel"`
	}

	DailyRow struct {
		Date         core.Date  `json:"date"`
		Income       core.Money `json:"income"`
		FixedExpense core.Money `json:"fixedExpense"`
		Expense      core.Money `json:"expense"`
		Balance      core.Money `json:"balance"`
	}

	// MonthlyReport is the human-readable rendering of a closed month.
	MonthlyReport struct {
		Title       string        `json:"title"`
		Month       string        `json:"month"`
		MonthName   string        `json:"monthName"`
		User        string        `json:"user"`
		GeneratedAt time.Time     `json:"generatedAt"`
		Summary     []ReportLine  `json:"summary"`
		Categories  []CategoryRow `json:"categories"`
		Daily       []DailyRow    `json:"daily"`
		Stats       MonthlyStats  `json:"stats"`
	}

	// ReportListing is the index entry of a stored report.
	ReportListing struct {
		Month       string     `json:"month"`
		Title       string     `json:"title"`
		GeneratedAt time.Time  `json:"generatedAt"`
		Balance     core.Money `json:"balance"`
	}
)

// ReportGenerator renders monthly reports and keeps them in the archive
// store.
type ReportGenerator struct {
	archive store.Store
	symbol  string
	now     func() time.Time
}

func NewReportGenerator(archive store.Store, currencySymbol string) *ReportGenerator {
	if currencySymbol == "" {
		currencySymbol = core.DefaultCurrencySymbol
	}
	return &ReportGenerator{archive: archive, symbol: currencySymbol, now: time.Now}
}

// CurrencySymbol is the symbol amounts are rendered with.
func (g *ReportGenerator) CurrencySymbol() string { return g.symbol }

// Build renders a report without storing it.
func (g *ReportGenerator) Build(user, month string, stats MonthlyStats, now time.Time) MonthlyReport {
	name := period.MonthName(month)
	s := stats.Summary
	money := func(m core.Money) string { return m.Format(g.symbol) }

	r := MonthlyReport{
		Title:       name + " Financial Report",
		Month:       month,
		MonthName:   name,
		User:        user,
		GeneratedAt: now.UTC(),
		Summary: []ReportLine{
			{"Total income", money(s.TotalIncome)},
			{"Fixed expenses", money(s.TotalFixedExpense)},
			{"Other expenses", money(s.TotalExpense)},
			{"Total spending", money(s.TotalSpending)},
			{"Balance", money(s.Balance)},
			{"Transactions", strconv.Itoa(s.TransactionCount)},
			{"Active days", strconv.Itoa(s.DaysCount)},
			{"Daily average income", money(s.DailyAverage.Income)},
			{"Daily average spending", money(s.DailyAverage.Spending)},
			{"Closed days", strconv.Itoa(stats.DailyArchiveCount)},
		},
		Categories: make([]CategoryRow, 0, len(s.CategoryStats)),
		Daily:      make([]DailyRow, 0, len(stats.DailySummaries)),
		Stats:      stats,
	}

	for cat, st := range s.CategoryStats {
		r.Categories = append(r.Categories, CategoryRow{
			Category:  cat,
			Amount:    st.Amount,
			Formatted: money(st.Amount),
			Count:     st.Count,
			Type:      st.Type,
			TypeLabel: st.Type.Label(),
		})
	}
	slices.SortFunc(r.Categories, func(a, b CategoryRow) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})

	for _, d := range stats.DailySummaries {
		r.Daily = append(r.Daily, DailyRow{
			Date:         d.Date,
			Income:       d.Income,
			FixedExpense: d.FixedExpense,
			Expense:      d.Expense,
			Balance:      d.Balance,
		})
	}
	return r
}

// Generate builds the report of month and stores it, overwriting any
// earlier version.
func (g *ReportGenerator) Generate(ctx context.Context, user, month string, stats MonthlyStats) (*MonthlyReport, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	r := g.Build(keys.User(), month, stats, g.now())
	if err := store.PutJSON(ctx, g.archive, keys.Report(month), r); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	slog.InfoContext(ctx, "Monthly report stored", "user", keys.User(), "month", month, "categories", len(r.Categories))
	return &r, nil
}

// List returns the stored reports of user, newest month first.
func (g *ReportGenerator) List(ctx context.Context, user string) ([]ReportListing, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	reportKeys, err := g.archive.ListKeysWithPrefix(ctx, keys.ReportPrefix())
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]ReportListing, 0, len(reportKeys))
	for i := len(reportKeys) - 1; i >= 0; i-- {
		r, ok, err := store.GetJSON[MonthlyReport](ctx, g.archive, reportKeys[i])
		if err != nil {
			return nil, fmt.Errorf("load report: %w", err)
		}
		if !ok {
			continue
		}
		month := r.Month
		if month == "" {
			month = period.PeriodFromKey(reportKeys[i])
		}
		out = append(out, ReportListing{
			Month:       month,
			Title:       r.Title,
			GeneratedAt: r.GeneratedAt,
			Balance:     r.Stats.Balance,
		})
	}
	return out, nil
}

// Get returns the full report of month or ErrReportNotFound.
func (g *ReportGenerator) Get(ctx context.Context, user, month string) (*MonthlyReport, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}
	if month, err = period.ParseMonth(month); err != nil {
		return nil, err
	}
	r, ok, err := store.GetJSON[MonthlyReport](ctx, g.archive, keys.Report(month))
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, month)
	}
	return &r, nil
}
