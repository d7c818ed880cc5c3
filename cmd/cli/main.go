package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	csvAdapter "github.com/tpe/txengine/internal/adapter/csv"
	"github.com/tpe/txengine/internal/adapter/report"
	"github.com/tpe/txengine/internal/infrastructure/config"
	"github.com/tpe/txengine/internal/infrastructure/idgen"
	"github.com/tpe/txengine/internal/infrastructure/logger"
	"github.com/tpe/txengine/internal/infrastructure/metrics"
	"github.com/tpe/txengine/internal/ledger"
	"github.com/tpe/txengine/internal/usecase"
)

var errVerificationFailed = errors.New("reconciliation found discrepancies")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = rootCmd(cfg).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tpe [flags] <input.csv>",
		Short: "Transaction processing engine",
		Long: `Reads deposits, withdrawals, disputes, resolves and charge backs from a CSV
file and writes the resulting balance of every client to stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error, off)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")
	flags.StringVar(&cfg.ReportFormat, "format", cfg.ReportFormat, "Report format (csv, json)")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this file")
	flags.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Abort on a broken ledger invariant")
	flags.BoolVar(&cfg.Verify, "verify", cfg.Verify, "Reconcile every account against the ledger before exiting")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, path string, stdout, stderr io.Writer) error {
	runID := idgen.NewULIDGenerator().Generate()

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: stderr,
	}).With().Str("run_id", runID).Logger()

	if startedAt, err := idgen.Time(runID); err == nil {
		log.Info().Time("started_at", startedAt).Msg("run started")
	}

	writer, err := report.NewWriter(cfg.ReportFormat, stdout)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	source, err := csvAdapter.NewReader(bufio.NewReader(file))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	m := metrics.New()
	m.RunInfo.WithLabelValues(runID).Set(1)

	if cfg.MetricsFile != "" {
		defer func() {
			if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Error().Err(err).Str("path", cfg.MetricsFile).Msg("failed to write metrics")
			}
		}()
	}

	l := ledger.New()
	snapshots := ledger.NewSnapshots()

	log.Debug().Str("input", path).Msg("processing transactions")

	txUC := usecase.NewTransactionUseCase(l, snapshots, m, log, cfg.Strict)
	if _, err := txUC.ProcessAll(ctx, source); err != nil {
		return err
	}

	reportUC := usecase.NewReportUseCase(snapshots, log)
	reportErr := reportUC.Write(ctx, writer)

	var verifyErr error
	if cfg.Verify {
		verifyErr = verify(ctx, usecase.NewReconciliationUseCase(l, snapshots, m), log)
	}

	return errors.Join(reportErr, verifyErr)
}

func verify(ctx context.Context, uc *usecase.ReconciliationUseCase, log zerolog.Logger) error {
	result, err := uc.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	for _, d := range result.Discrepancies {
		log.Error().
			Stringer("client", d.ClientID).
			Str("recorded_available", d.RecordedAvailable.StringFixed(4)).
			Str("calculated_available", d.CalculatedAvailable.StringFixed(4)).
			Str("recorded_held", d.RecordedHeld.StringFixed(4)).
			Str("calculated_held", d.CalculatedHeld.StringFixed(4)).
			Bool("recorded_locked", d.RecordedLocked).
			Bool("calculated_locked", d.CalculatedLocked).
			Msg("account does not reconcile")
	}

	if !result.Consistent() {
		return fmt.Errorf("%w: %d of %d accounts", errVerificationFailed, len(result.Discrepancies), result.TotalAccounts)
	}

	log.Info().
		Int("accounts", result.TotalAccounts).
		Int("ledger_entries", result.LedgerEntries).
		Int("invalid_entries", result.InvalidEntries).
		Msg("reconciliation passed")

	return nil
}
