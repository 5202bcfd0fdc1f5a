package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ledgerbook/internal/cli"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/services"
)

func main() {
	ctx, stop := cli.SignalContext(applog.New(applog.DefaultConfig()))
	err := newRootCmd(openApp).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp wires the services from the environment, the same way ledgerd
// does.
func openApp(ctx context.Context, clockURL string) (*cli.App, func() error, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentCLI)

	stores, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	clk, err := cli.NewClock(cfg, clockURL)
	if err != nil {
		_ = stores.Close()
		return nil, nil, err
	}
	client, err := cli.InitPublisher(logger, cfg)
	if err != nil {
		_ = stores.Close()
		return nil, nil, err
	}

	var publisher services.PeriodClosedPublisher
	closeAll := stores.Close
	if client != nil {
		publisher = client
		closeAll = func() error {
			return errors.Join(client.Close(), stores.Close())
		}
	}
	return cli.NewApp(cfg, stores, clk, publisher), closeAll, nil
}
