package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/cashcast/internal/app"
	"github.com/odyssey-erp/cashcast/internal/artifacts"
	"github.com/odyssey-erp/cashcast/internal/forecast"
	"github.com/odyssey-erp/cashcast/internal/platform/cache"
)

type rootOptions struct {
	envFile   string
	redisAddr string
	timeout   time.Duration
	out       io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}
	cmd := &cobra.Command{
		Use:           "cashcastctl",
		Short:         "Operate the cashcast Xero sync and forecast",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			if opts.envFile != "" {
				paths = append(paths, opts.envFile)
			}
			if err := app.LoadEnv(paths...); err != nil {
				return fmt.Errorf("load env: %w", err)
			}
			if opts.redisAddr == "" {
				opts.redisAddr = os.Getenv("REDIS_ADDR")
			}
			if opts.redisAddr == "" {
				opts.redisAddr = "127.0.0.1:6379"
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	cmd.PersistentFlags().StringVar(&opts.redisAddr, "redis", "", "Redis address (default $REDIS_ADDR)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall command timeout")

	cmd.AddCommand(newSyncCmd(opts), newQueueCmd(opts), newForecastCmd(opts))
	return cmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "sync [slot...]",
		Short:     "Enqueue a Xero sync for the given artifact slots (all when omitted)",
		ValidArgs: []string{string(artifacts.SlotProfitAndLoss), string(artifacts.SlotCashFlow), string(artifacts.SlotInvoices)},
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := parseSlots(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			cli, err := NewJobsCLI(opts.redisAddr)
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()
			info, err := cli.Sync(ctx, slots...)
			if err != nil {
				return fmt.Errorf("enqueue sync: %w", err)
			}
			return writeJSON(opts.out, map[string]string{"id": info.ID, "queue": info.Queue})
		},
	}
}

func newQueueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Print the state of the job queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := NewJobsCLI(opts.redisAddr)
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()
			stats, err := cli.InspectQueue()
			if err != nil {
				return fmt.Errorf("inspect queue: %w", err)
			}
			return writeJSON(opts.out, stats)
		},
	}
}

const (
	reportCashFlow      = "cash-flow"
	reportProfitAndLoss = "profit-and-loss"
	reportInvoices      = "invoices"
)

func newForecastCmd(opts *rootOptions) *cobra.Command {
	var (
		report  string
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run one pipeline against Xero and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch report {
			case reportCashFlow, reportProfitAndLoss, reportInvoices:
			default:
				return fmt.Errorf("unknown report %q", report)
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			redisOpts := cfg.Redis()
			redisOpts.Addr = opts.redisAddr
			client, err := cache.New(ctx, redisOpts)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			pipeline, err := app.NewPipeline(cfg, client, logger)
			if err != nil {
				return err
			}

			var out any
			switch report {
			case reportProfitAndLoss:
				out, err = pipeline.Service.ProfitAndLoss(ctx)
			case reportInvoices:
				out, err = pipeline.Service.Invoices(ctx)
			default:
				var flow forecast.CashFlow
				flow, err = pipeline.Service.CashFlow(ctx)
				if err == nil && summary {
					return writeSummary(opts.out, flow)
				}
				out = flow
			}
			if err != nil {
				return err
			}
			return writeJSON(opts.out, out)
		},
	}
	cmd.Flags().StringVar(&report, "report", reportCashFlow, "report to run: cash-flow, profit-and-loss or invoices")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a short cash-flow summary instead of the full ledger")
	return cmd
}

func parseSlots(args []string) ([]artifacts.Slot, error) {
	slots := make([]artifacts.Slot, 0, len(args))
	for _, a := range args {
		slot, err := artifacts.ParseSlot(a)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
