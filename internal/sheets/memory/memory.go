// Package memory is a report exporter that keeps exported rows in memory,
// used when no spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledgerbook/internal/services"
	ports "ledgerbook/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	rows    [][]any
	reports []string
}

var _ ports.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// ExportReport records the report rows and returns a synthetic row range.
func (e *Exporter) ExportReport(_ context.Context, r *services.MonthlyReport) (string, error) {
	rows, err := ports.ReportRows(r)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	first := len(e.rows) + 1
	e.rows = append(e.rows, rows...)
	e.reports = append(e.reports, r.User+":"+r.Month)
	return fmt.Sprintf("mem:%d-%d", first, len(e.rows)), nil
}

// Rows returns a copy of every exported row.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.rows...)
}

// Reports lists exported reports as "user:month", in export order.
func (e *Exporter) Reports() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.reports...)
}
