package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/sink"
	"github.com/amishk599/vacancywatch/internal/store"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "vw [days]",
	Short: "Regional IT vacancy watcher",
	Long: "vw harvests IT vacancies from hh, trudvsem, superjob and trudkirov, " +
		"stores new ones and prints them as a table. Without a subcommand it runs web.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: VW_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > VW_CONFIG env var > "./config.yaml".
// A missing ./config.yaml means built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	explicit := true
	if path == "" {
		if env := os.Getenv("VW_CONFIG"); env != "" {
			path = env
		} else {
			path = defaultConfigPath
			explicit = false
		}
	}
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func logLevel(dbg bool) slog.Level {
	if dbg {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// setupLogger returns the console logger used outside of pipelines.
func setupLogger(dbg bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(dbg)}))
}

// parseDays reads the optional [days] argument. Without it the window
// reaches back to the last write of the sqlite database.
func parseDays(args []string, cfg *config.Config, now time.Time) (int, error) {
	if len(args) > 0 {
		days, err := strconv.Atoi(args[0])
		if err != nil || days < 0 {
			return 0, fmt.Errorf("days must be a non-negative integer, got %q", args[0])
		}
		return days, nil
	}
	if cfg.Store.Driver != "sqlite" {
		return 1, nil
	}
	return store.StalenessDays(cfg.Store.Path, now)
}

// setupSink builds the result sink: the console table, plus a log summary or
// Slack when configured.
func setupSink(cfg *config.Config, logger *slog.Logger) model.ResultSink {
	table := sink.NewTableSink(os.Stdout, 0, logger)
	switch cfg.Notification.Type {
	case "log":
		return sink.Multi{table, sink.NewLogSink(logger)}
	case "slack":
		httpClient := &http.Client{Timeout: 30 * time.Second}
		return sink.Multi{table, sink.NewSlackSink(cfg.Notification.WebhookURL, httpClient, logger)}
	default:
		return table
	}
}
