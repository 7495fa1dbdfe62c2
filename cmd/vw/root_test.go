package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/orchestrator"
	"github.com/amishk599/vacancywatch/internal/sink"
)

func TestLoadConfig_Priority(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.yaml")
	fromEnv := filepath.Join(dir, "env.yaml")
	os.WriteFile(explicit, []byte("log:\n  file: explicit.log\n"), 0o644)
	os.WriteFile(fromEnv, []byte("log:\n  file: env.log\n"), 0o644)
	t.Setenv("VW_CONFIG", fromEnv)

	cfg, err := loadConfig(explicit)
	if err != nil {
		t.Fatalf("loadConfig(explicit) error: %v", err)
	}
	if cfg.Log.File != "explicit.log" {
		t.Errorf("log file = %q, want explicit.log", cfg.Log.File)
	}

	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(env) error: %v", err)
	}
	if cfg.Log.File != "env.log" {
		t.Errorf("log file = %q, want env.log", cfg.Log.File)
	}
}

func TestLoadConfig_MissingDefaultUsesBuiltins(t *testing.T) {
	t.Setenv("VW_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if len(cfg.EnabledSources()) != 4 {
		t.Errorf("enabled sources = %d, want the 4 built-in ones", len(cfg.EnabledSources()))
	}
}

func TestLoadConfig_MissingExplicitFails(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("loadConfig() = nil error for a missing explicit file")
	}
}

func TestParseDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "missing.db")

	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{name: "explicit", args: []string{"3"}, want: 3},
		{name: "zero", args: []string{"0"}, want: 0},
		{name: "negative", args: []string{"-1"}, wantErr: true},
		{name: "not a number", args: []string{"week"}, wantErr: true},
		{name: "missing db", args: nil, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDays(tt.args, cfg, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDays() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseDays_Staleness(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "vacancy.db")
	os.WriteFile(cfg.Store.Path, nil, 0o644)
	os.Chtimes(cfg.Store.Path, now.AddDate(0, 0, -4), now.AddDate(0, 0, -4))

	got, err := parseDays(nil, cfg, now)
	if err != nil {
		t.Fatalf("parseDays() error: %v", err)
	}
	if got != 5 {
		t.Errorf("parseDays() = %d, want 5", got)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, orchestrator.Summary{Results: []orchestrator.SourceResult{
		{Source: "hh", Harvested: 10, Inserted: 2},
		{Source: "trudvsem", TimedOut: true},
		{Source: "superjob", Err: errors.New("disk full")},
	}})
	out := buf.String()

	for _, want := range []string{"hh", "timed out", "failed: disk full", "Total inserted: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSetupSink_SelectsByNotificationType(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	if _, ok := setupSink(cfg, logger).(*sink.TableSink); !ok {
		t.Errorf("default sink = %T, want *sink.TableSink", setupSink(cfg, logger))
	}

	cfg.Notification.Type = "log"
	multi, ok := setupSink(cfg, logger).(sink.Multi)
	if !ok || len(multi) != 2 {
		t.Fatalf("log sink = %#v, want table plus log sink", setupSink(cfg, logger))
	}
	if _, ok := multi[1].(*sink.LogSink); !ok {
		t.Errorf("second sink = %T, want *sink.LogSink", multi[1])
	}

	cfg.Notification.Type = "slack"
	cfg.Notification.WebhookURL = "https://hooks.slack.com/services/T/B/X"
	multi, ok = setupSink(cfg, logger).(sink.Multi)
	if !ok || len(multi) != 2 {
		t.Fatalf("slack sink = %#v, want table plus slack sink", setupSink(cfg, logger))
	}
	if _, ok := multi[1].(*sink.SlackSink); !ok {
		t.Errorf("second sink = %T, want *sink.SlackSink", multi[1])
	}
}

func TestRootCmd_DefaultsToWeb(t *testing.T) {
	if rootCmd.RunE == nil {
		t.Fatal("root command has no default action")
	}
	if rootCmd.Flags().Lookup("dry-run") == nil {
		t.Error("root command lacks --dry-run")
	}
	if err := rootCmd.Args(rootCmd, []string{"1", "2"}); err == nil {
		t.Error("root command accepted two positional args")
	}
	if err := rootCmd.Args(rootCmd, []string{"3"}); err != nil {
		t.Errorf("root command rejected [days]: %v", err)
	}
}
