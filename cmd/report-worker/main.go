package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"ledgerbook/internal/cache"
	"ledgerbook/internal/cli"
	"ledgerbook/internal/config"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/services"
	ports "ledgerbook/internal/sheets"
	gsheet "ledgerbook/internal/sheets/google"
	mem "ledgerbook/internal/sheets/memory"
	"ledgerbook/internal/worker"
)

const cacheCleanupInterval = time.Hour

func main() {
	backfill := flag.String("backfill", "", "export every stored report of this user on startup")
	flag.Parse()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(applog.New(applog.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting report-worker", applog.FieldOperation, applog.OpStartup)

	if !cfg.EventsEnabled() {
		cli.Fatal(logger, "Report worker requires AMQP", errors.New("AMQP_URL is not set"))
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	stores, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize storage backend", err, applog.FieldBackend, cfg.DataBackend)
	}
	defer stores.Close()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}

	client, err := cli.InitPublisher(logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	reports := services.NewReportGenerator(stores.Archive, cfg.CurrencySymbol)
	w := worker.NewReportWorker(reports, exporter)

	caches := cache.NewManager()
	caches.Register(w.Cache())
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	if *backfill != "" {
		exported, failed, err := w.Backfill(ctx, *backfill)
		if err != nil {
			logger.Error("Report backfill failed", applog.FieldError, err, applog.FieldUser, *backfill)
		} else {
			logger.Info("Report backfill finished", applog.FieldUser, *backfill, "exported", exported, "failed", failed)
		}
	}

	if err := client.ConsumePeriodClosed(ctx, w.HandlePeriodClosed); err != nil && ctx.Err() == nil {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	logger.Info("Worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}

func newExporter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (ports.ReportExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, reports are kept in memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetName)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
