package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerbook/internal/core"
	"ledgerbook/internal/services"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "")
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}

	_, err := newSheetsService(context.Background())
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/credentials.json")

	_, err := newSheetsService(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Reports", 2025, "2025 Reports"},
		{"Monthly Reports", 2024, "2024 Monthly Reports"},
		{"", 2023, ""}, // Empty base returns empty
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestClient_ExportReport(t *testing.T) {
	var gotPath string
	var gotBody gsheet.ValueRange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"'2025 Reports'!A7:J9","updatedRows":3}}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatal(err)
	}
	c := NewWithService(svc, "sheet-1", "")

	r := &services.MonthlyReport{
		Month: "2025-01",
		User:  "alice",
		Categories: []services.CategoryRow{
			{Category: "Food", Amount: core.Cents(1000), Count: 2, TypeLabel: "Expense"},
			{Category: "Rent", Amount: core.Cents(50000), Count: 1, TypeLabel: "Fixed expense"},
		},
	}
	ref, err := c.ExportReport(context.Background(), r)
	if err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}
	if ref != "'2025 Reports'!A7:J9" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.Contains(gotPath, "sheet-1") || !strings.Contains(gotPath, "2025 Reports!A:J:append") {
		t.Errorf("request path = %q", gotPath)
	}
	if len(gotBody.Values) != 3 {
		t.Errorf("appended %d rows, want 3", len(gotBody.Values))
	}
}

func TestClient_ExportReport_Errors(t *testing.T) {
	c := &Client{spreadsheetID: "test", reportBase: DefaultReportSheet}

	if _, err := c.ExportReport(context.Background(), &services.MonthlyReport{}); err == nil {
		t.Error("expected error for empty report")
	}
	_, err := c.ExportReport(context.Background(), &services.MonthlyReport{Month: "2025-01", User: "alice"})
	if err == nil || err.Error() != "sheets service not initialized" {
		t.Errorf("unexpected error: %v", err)
	}
}

