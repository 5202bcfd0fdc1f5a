package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ledgerbook/internal/cli"
	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/services"
)

// appOpener builds the service graph for one command run. The returned
// func releases it.
type appOpener func(ctx context.Context, clockURL string) (*cli.App, func() error, error)

type globalFlags struct {
	user     string
	clockURL string
	json     bool
}

func newRootCmd(open appOpener) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the ledger's period closing",
		Long: `ledgerctl closes days and months of a user's ledger, inspects archives
and reports, and manages the monthly spending limit. It reads the same
environment as ledgerd.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.user, "user", period.DefaultUser, "ledger owner")
	root.PersistentFlags().StringVar(&flags.clockURL, "clock-url", "", "read the current date from a remote /api/current-time endpoint")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "print results as JSON")

	run := runnerFor(flags, open)
	root.AddCommand(closeDayCmd(flags, run))
	root.AddCommand(closeMonthCmd(flags, run))
	root.AddCommand(boundaryCmd(flags, run))
	root.AddCommand(statusCmd(flags, run))
	root.AddCommand(reportsCmd(flags, run))
	root.AddCommand(limitCmd(flags, run))
	return root
}

type runner func(fn func(ctx context.Context, app *cli.App, out io.Writer) error) func(*cobra.Command, []string) error

func closeDayCmd(flags *globalFlags, run runner) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "close-day",
		Short: "Archive one day of the ledger",
		Long:  `Archive every entry of a day and prune all but income from the ledger. Defaults to yesterday.`,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&date, "date", "", "day to close (YYYY-MM-DD)")
	cmd.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		var target core.Date
		if date != "" {
			d, err := period.ParseDay(date)
			if err != nil {
				return err
			}
			target = d
		}
		res, err := app.Closing.CloseDay(ctx, flags.user, target)
		if err != nil {
			return err
		}
		return flags.print(out, res, func() {
			fmt.Fprintf(out, "%s: %s (removed %d, retained %d)\n", res.Date, res.Outcome, res.Removed, res.Retained)
		})
	})
	return cmd
}

func closeMonthCmd(flags *globalFlags, run runner) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "close-month",
		Short: "Archive a month and generate its report",
		Long:  `Merge a month's daily archives and ledger entries into a monthly archive and report. Defaults to the previous month.`,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&month, "month", "", "month to close (YYYY-MM)")
	cmd.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		res, err := app.Closing.CloseMonth(ctx, flags.user, month)
		if err != nil {
			return err
		}
		return flags.print(out, res, func() {
			fmt.Fprintf(out, "%s: %s (%d daily archives, %d ledger entries)\n", res.Month, res.Outcome, res.DailyArchives, res.LedgerEntries)
			if res.Report != nil {
				fmt.Fprintf(out, "report: %s\n", res.Report.Title)
			}
		})
	})
	return cmd
}

func boundaryCmd(flags *globalFlags, run runner) *cobra.Command {
	var yes, no bool
	cmd := &cobra.Command{
		Use:   "boundary",
		Short: "Run the closes due today",
		Long: `Close yesterday if it has not been closed yet and, on the first of a
month, the previous month. The month close needs --yes; --no declines it
and without either it is left pending.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm a due month close")
	cmd.Flags().BoolVar(&no, "no", false, "decline a due month close")
	cmd.MarkFlagsMutuallyExclusive("yes", "no")
	cmd.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		var confirm services.Confirmer
		if yes || no {
			confirm = func(context.Context, string) (bool, error) { return yes, nil }
		}
		res, err := app.Closing.RunBoundary(ctx, flags.user, confirm)
		if err != nil {
			return err
		}
		return flags.print(out, res, func() {
			if len(res.Steps) == 0 && !res.MonthClosePending {
				fmt.Fprintf(out, "%s: nothing due\n", res.Today)
			}
			for _, step := range res.Steps {
				fmt.Fprintf(out, "%s %s: %s\n", step.State, step.Period, step.Outcome)
			}
			if res.MonthClosePending {
				fmt.Fprintf(out, "month close of %s pending, rerun with --yes or --no\n", res.PendingMonth)
			}
		})
	})
	return cmd
}

func statusCmd(flags *globalFlags, run runner) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a day has been closed",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&date, "date", "", "day to check (YYYY-MM-DD), defaults to yesterday")
	cmd.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		var target core.Date
		if date != "" {
			d, err := period.ParseDay(date)
			if err != nil {
				return err
			}
			target = d
		}
		st, err := app.Closing.DailyStatus(ctx, flags.user, target)
		if err != nil {
			return err
		}
		return flags.print(out, st, func() {
			if !st.Archived {
				fmt.Fprintf(out, "%s: open\n", st.Date)
				return
			}
			fmt.Fprintf(out, "%s: closed %s, %d transactions\n", st.Date, humanize.Time(*st.ArchivedAt), st.TransactionCount)
		})
	})
	return cmd
}

func reportsCmd(flags *globalFlags, run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect monthly reports",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List monthly reports, newest first",
		Args:  cobra.NoArgs,
	}
	list.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		reports, err := app.Reports.List(ctx, flags.user)
		if err != nil {
			return err
		}
		return flags.print(out, reports, func() {
			if len(reports) == 0 {
				fmt.Fprintln(out, "no reports")
			}
			for _, r := range reports {
				fmt.Fprintf(out, "%s  %-40s balance %s\n", r.Month, r.Title, r.Balance.Format(app.Reports.CurrencySymbol()))
			}
		})
	})

	var month string
	show := &cobra.Command{
		Use:   "show <month>",
		Short: "Show one monthly report",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, args []string) error {
			m, err := period.ParseMonth(args[0])
			month = m
			return err
		},
	}
	show.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		r, err := app.Reports.Get(ctx, flags.user, month)
		if err != nil {
			return err
		}
		return flags.print(out, r, func() {
			fmt.Fprintln(out, r.Title)
			for _, line := range r.Summary {
				fmt.Fprintf(out, "  %-20s %s\n", line.Label, line.Value)
			}
		})
	})

	cmd.AddCommand(list, show)
	return cmd
}

func limitCmd(flags *globalFlags, run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Manage the monthly spending limit",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Check this month's spending against the limit",
		Args:  cobra.NoArgs,
	}
	show.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		st, err := app.Limits.Status(ctx, flags.user)
		if err != nil {
			return err
		}
		return flags.print(out, st, func() {
			sym := app.Reports.CurrencySymbol()
			if st.Level == core.LimitNone {
				fmt.Fprintf(out, "%s: spent %s, no limit set\n", st.Month, st.Spent.Format(sym))
				return
			}
			fmt.Fprintf(out, "%s: spent %s of %s (%s%%, %s)\n",
				st.Month, st.Spent.Format(sym), st.Limit.Format(sym), st.UsagePercent.StringFixed(1), st.Level)
		})
	})

	var amount core.Money
	set := &cobra.Command{
		Use:   "set <amount>",
		Short: "Set the monthly spending limit",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, args []string) error {
			m, err := core.ParseAmount(args[0])
			amount = m
			return err
		},
	}
	set.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		limit, err := app.Limits.Set(ctx, flags.user, amount)
		if err != nil {
			return err
		}
		return flags.print(out, limit, func() {
			fmt.Fprintf(out, "limit set to %s\n", limit.Amount.Format(app.Reports.CurrencySymbol()))
		})
	})

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the monthly spending limit",
		Args:  cobra.NoArgs,
	}
	clearCmd.RunE = run(func(ctx context.Context, app *cli.App, out io.Writer) error {
		if err := app.Limits.Clear(ctx, flags.user); err != nil {
			return err
		}
		return flags.print(out, map[string]bool{"cleared": true}, func() {
			fmt.Fprintln(out, "limit cleared")
		})
	})

	cmd.AddCommand(show, set, clearCmd)
	return cmd
}

func runnerFor(flags *globalFlags, open appOpener) runner {
	return func(fn func(ctx context.Context, app *cli.App, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			app, closeApp, err := open(cmd.Context(), flags.clockURL)
			if err != nil {
				return err
			}
			defer closeApp()
			return fn(cmd.Context(), app, cmd.OutOrStdout())
		}
	}
}

// print writes v as indented JSON with --json, otherwise runs text.
func (f *globalFlags) print(out io.Writer, v any, text func()) error {
	if !f.json {
		text()
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
