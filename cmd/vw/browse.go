package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/vacancywatch/internal/browse"
	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/filter"
	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/source"
)

var browseCmd = &cobra.Command{
	Use:   "browse [days]",
	Short: "Browse stored vacancies interactively (TUI)",
	Long: "Shows a source picker, then a split-pane view of the stored vacancies and those " +
		"matching --title/--company.",
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringSliceVar(&titleKeywords, "title", nil, "keywords for the matched pane (title)")
	browseCmd.Flags().StringSliceVar(&companyKeywords, "company", nil, "keywords for the matched pane (company)")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	now := time.Now()
	days, err := parseDays(args, cfg, now)
	if err != nil {
		logger.Error("invalid window", "error", err)
		return err
	}

	rows, err := browse.RunLoader("stored vacancies", func(ctx context.Context) ([]model.StoredVacancy, error) {
		return readWindow(ctx, cfg, days, now)
	})
	if err != nil {
		logger.Error("failed to read store", "error", err)
		return err
	}

	// Any log output would corrupt the alt screen.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := detailRegistry(cfg, days, now, silent)
	keywords := filter.NewKeywordFilter(titleKeywords, companyKeywords)

	bySource := make(map[model.SourceType][]model.StoredVacancy)
	counts := make(map[model.SourceType]int)
	for _, r := range rows {
		bySource[r.Source] = append(bySource[r.Source], r)
		counts[r.Source]++
	}
	sources := source.Types()

	for {
		choice, err := browse.RunSourcePicker(sources, counts)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice == browse.PickedNone {
			return nil
		}

		selected := rows
		if choice != browse.PickedAll {
			selected = bySource[sources[choice]]
		}
		all := append([]model.StoredVacancy(nil), selected...)
		matched := keywords.Apply(append([]model.StoredVacancy(nil), selected...))

		wantQuit, err := browse.Run(all, matched, registry.LoadDetail)
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		if wantQuit {
			return nil
		}
	}
}

// detailRegistry builds every configured source so the viewer can refresh
// detail pages on demand.
func detailRegistry(cfg *config.Config, days int, now time.Time, logger *slog.Logger) *source.Registry {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	var sources []*source.Source
	for _, sc := range cfg.Sources {
		s, err := source.New(cfg.WorkerFor(sc, days, now), httpClient, logger)
		if err != nil {
			continue
		}
		sources = append(sources, s)
	}
	return source.NewRegistry(sources...)
}
