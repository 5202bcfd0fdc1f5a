package memory

import (
	"context"
	"testing"

	"ledgerbook/internal/services"
)

func TestExporterExportReport(t *testing.T) {
	e := New()
	ctx := context.Background()

	r := &services.MonthlyReport{
		Month:      "2025-01",
		User:       "alice",
		Categories: []services.CategoryRow{{Category: "Food"}},
	}
	ref, err := e.ExportReport(ctx, r)
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	ref, err = e.ExportReport(ctx, &services.MonthlyReport{Month: "2025-02", User: "alice"})
	if err != nil || ref != "mem:3-3" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	if got := e.Reports(); len(got) != 2 || got[1] != "alice:2025-02" {
		t.Errorf("Reports() = %v", got)
	}
	if len(e.Rows()) != 3 {
		t.Errorf("Rows() = %v", e.Rows())
	}

	if _, err := e.ExportReport(ctx, &services.MonthlyReport{}); err == nil {
		t.Error("expected error for empty report")
	}
}
