package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/vacancywatch/internal/logfunnel"
	"github.com/amishk599/vacancywatch/internal/metrics"
	"github.com/amishk599/vacancywatch/internal/orchestrator"
	"github.com/amishk599/vacancywatch/internal/runlock"
)

var dryRun bool

var webCmd = &cobra.Command{
	Use:   "web [days]",
	Short: "Harvest new vacancies from every enabled source",
	Long: "Runs one isolated pipeline per enabled source: harvest the listings of the last [days] days, " +
		"fetch details, drop already stored vacancies, store and print the new ones.",
	Args: cobra.MaximumNArgs(1),
	RunE: runWeb,
}

func init() {
	webCmd.Flags().BoolVar(&dryRun, "dry-run", false, "harvest and print, but store nothing")
	rootCmd.AddCommand(webCmd)

	// Bare vw behaves like vw web.
	rootCmd.Args = cobra.MaximumNArgs(1)
	rootCmd.RunE = runWeb
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "harvest and print, but store nothing")
}

func runWeb(cmd *cobra.Command, args []string) error {
	console := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		console.Error("failed to load config", "error", err)
		return err
	}
	now := time.Now()
	days, err := parseDays(args, cfg, now)
	if err != nil {
		console.Error("invalid window", "error", err)
		return err
	}

	if cfg.Store.Driver == "sqlite" && !dryRun {
		lock, err := runlock.Acquire(runlock.PathFor(cfg.Store.Path))
		if err != nil {
			console.Error("cannot start run", "error", err)
			return err
		}
		defer lock.Release()
	}

	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		console.Error("failed to open log file", "path", cfg.Log.File, "error", err)
		return err
	}
	defer logFile.Close()

	var out io.Writer = logFile
	if debug {
		out = io.MultiWriter(logFile, os.Stderr)
	}
	funnel := logfunnel.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel(debug)}), 1024)
	funnel.Start()
	runID := uuid.NewString()
	logger := funnel.Logger().With("run_id", runID)

	logger.Info("run started",
		"window_days", days,
		"store", cfg.Store.Driver,
		"dry_run", dryRun,
		"sources", len(cfg.EnabledSources()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := metrics.New()
	runner := orchestrator.NewRunner(orchestrator.Deps{
		DryRun:  dryRun,
		Sink:    setupSink(cfg, logger),
		Metrics: rec,
		Logger:  logger,
	})
	summary := orchestrator.New(cfg, runner, funnel, rec, logger).Run(ctx, days)

	printSummary(os.Stdout, summary)
	if n := funnel.Dropped(); n > 0 {
		console.Warn("log records dropped after shutdown", "count", n)
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			console.Warn("failed to write metrics", "error", err)
		}
	}

	if summary.Failed() {
		return fmt.Errorf("run %s: at least one pipeline failed, see %s", runID, cfg.Log.File)
	}
	return nil
}

func printSummary(w io.Writer, s orchestrator.Summary) {
	fmt.Fprintf(w, "\n%-12s %10s %9s  %s\n", "Source", "Harvested", "Inserted", "Status")
	for _, r := range s.Results {
		status := "ok"
		switch {
		case r.TimedOut:
			status = "timed out"
		case r.Err != nil:
			status = "failed: " + r.Err.Error()
		}
		fmt.Fprintf(w, "%-12s %10d %9d  %s (%s)\n", r.Source, r.Harvested, r.Inserted, status, r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "\nTotal inserted: %d\n", s.Inserted())
}
