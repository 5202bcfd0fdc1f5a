package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbook/internal/cli"
	apphttp "ledgerbook/internal/http"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	clockURL := flag.String("clock-url", "", "read the current date from a remote /api/current-time endpoint")
	flag.Parse()

	cfg, err := cli.LoadConfig()
	if err != nil {
		// Logging is not configured yet, use the defaults.
		cli.Fatal(applog.New(applog.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	logger.Info("Starting ledgerd",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldBackend, cfg.DataBackend,
		"port", cfg.Port,
		"timezone", cfg.Timezone)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	stores, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize storage backend", err, applog.FieldBackend, cfg.DataBackend)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error("Failed to close storage backend", applog.FieldError, err)
		}
	}()

	clk, err := cli.NewClock(cfg, *clockURL)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize clock", err)
	}

	client, err := cli.InitPublisher(logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP publisher", err)
	}
	var publisher services.PeriodClosedPublisher
	if client != nil {
		publisher = client
		defer client.Close()
	}

	app := cli.NewApp(cfg, stores, clk, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Closing:            app.Closing,
		Reports:            app.Reports,
		Ledger:             app.Ledger,
		Limits:             app.Limits,
		Clock:              app.Clock,
		Ready:              stores.Pinger,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}
	logger.Info("Server stopped gracefully")
}
