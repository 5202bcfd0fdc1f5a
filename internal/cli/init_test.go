package cli

import (
	"context"
	"testing"
	"time"

	"ledgerbook/internal/backend"
	"ledgerbook/internal/config"
	"ledgerbook/internal/services"
	"ledgerbook/internal/store/memory"
)

func TestNewClock(t *testing.T) {
	cfg := &config.Config{Timezone: "Asia/Hong_Kong", ClockTimeout: 50 * time.Millisecond}

	local, err := NewClock(cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if r, degraded := local.Today(context.Background()); degraded || r.Timezone != "Asia/Hong_Kong" {
		t.Errorf("Today() = %+v, degraded %v", r, degraded)
	}

	// Nothing listens on port 1 so the remote read fails and falls back.
	remote, err := NewClock(cfg, "http://127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	if _, degraded := remote.Today(context.Background()); !degraded {
		t.Error("expected degraded reading from unreachable clock")
	}

	if _, err := NewClock(&config.Config{Timezone: "Nowhere/Else"}, ""); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestInitPublisher_Disabled(t *testing.T) {
	client, err := InitPublisher(SetupLogger(&config.Config{LogLevel: "error"}, "test"), &config.Config{})
	if client != nil || err != nil {
		t.Errorf("InitPublisher() = %v, %v", client, err)
	}
}

func TestNewApp(t *testing.T) {
	cfg := &config.Config{Timezone: "Asia/Hong_Kong", CurrencySymbol: "HK$"}
	clk, err := NewClock(cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	stores := &backend.BackendResult{Ledger: memory.New(), Archive: memory.New()}
	app := NewApp(cfg, stores, clk, nil)

	ctx := context.Background()
	res, err := app.Closing.CloseMonth(ctx, "alice", "2024-01")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != services.OutcomeNothingToClose {
		t.Errorf("Outcome = %s", res.Outcome)
	}
	if list, err := app.Reports.List(ctx, "alice"); err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v", list, err)
	}
}
