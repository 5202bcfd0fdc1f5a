// Package cli holds the bootstrap shared by cmd/ledgerd, cmd/report-worker
// and cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/backend"
	"ledgerbook/internal/clock"
	"ledgerbook/internal/config"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/services"
)

// SetupLogger installs the default logger configured by LOG_LEVEL and
// LOG_FORMAT for component.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	level, err := applog.ParseLevel(cfg.LogLevel)
	logger := applog.Setup(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	if err != nil {
		logger.Warn("Falling back to info log level", applog.FieldError, err)
	}
	return logger
}

// LoadConfig loads .env and the environment, then validates the result.
func LoadConfig() (*config.Config, error) {
	config.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Fatal logs err and exits the process.
func Fatal(logger *applog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{applog.FieldError, err}, args...)...)
	os.Exit(1)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}

// InitBackend opens the configured ledger and archive stores.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// NewClock builds the clock resolver. With an empty remoteURL the local
// zone clock is the source; otherwise the remote clock is read and the
// zone clock is the fallback.
func NewClock(cfg *config.Config, remoteURL string) (*clock.Resolver, error) {
	zone, err := clock.NewZone(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	var source clock.Source = zone
	if remoteURL != "" {
		source = clock.NewRemote(remoteURL, nil)
	}
	return clock.NewResolver(source, zone, cfg.ClockTimeout), nil
}

// InitPublisher connects the period closed publisher when AMQP is
// configured. A nil client means events are disabled.
func InitPublisher(logger *applog.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.EventsEnabled() {
		logger.Info("AMQP not configured, period closed events disabled")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// App is the service graph shared by the server and the operator CLI.
type App struct {
	Closing *services.ClosingEngine
	Reports *services.ReportGenerator
	Ledger  *services.LedgerService
	Limits  *services.LimitService
	Clock   *clock.Resolver
}

// NewApp wires the services over stores. A nil publisher disables events;
// pass an untyped nil, not a nil *amqp.Client.
func NewApp(cfg *config.Config, stores *backend.BackendResult, clk *clock.Resolver, publisher services.PeriodClosedPublisher) *App {
	reports := services.NewReportGenerator(stores.Archive, cfg.CurrencySymbol)
	opts := []services.EngineOption{services.WithReclaim(cfg.ReclaimDailyArchives)}
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}
	return &App{
		Closing: services.NewClosingEngine(stores.Ledger, stores.Archive, clk, reports, opts...),
		Reports: reports,
		Ledger:  services.NewLedgerService(stores.Ledger, clk),
		Limits:  services.NewLimitService(stores.Ledger, stores.Archive, clk),
		Clock:   clk,
	}
}
