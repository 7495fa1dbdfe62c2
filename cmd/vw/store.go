package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/filter"
	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/sink"
	"github.com/amishk599/vacancywatch/internal/store"
)

var (
	titleKeywords   []string
	companyKeywords []string
)

var storeCmd = &cobra.Command{
	Use:   "store [days]",
	Short: "Print stored vacancies of the last [days] days",
	Long:  "Reads the store without touching any source and prints the window as a table.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStore,
}

func init() {
	storeCmd.Flags().StringSliceVar(&titleKeywords, "title", nil, "only titles containing any of these keywords")
	storeCmd.Flags().StringSliceVar(&companyKeywords, "company", nil, "only companies containing any of these keywords")
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
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

	rows, err := readWindow(cmd.Context(), cfg, days, now)
	if err != nil {
		logger.Error("failed to read store", "error", err)
		return err
	}
	rows = filter.NewKeywordFilter(titleKeywords, companyKeywords).Apply(rows)

	return sink.NewTableSink(os.Stdout, 0, logger).Render(cmd.Context(), rows)
}

// readWindow opens the configured store, reads every vacancy dated within
// the last days days and closes it again.
func readWindow(ctx context.Context, cfg *config.Config, days int, now time.Time) ([]model.StoredVacancy, error) {
	st, err := store.NewOpener(cfg.Store, false)(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	since := model.Day(now).AddDate(0, 0, -days)
	return st.Read(ctx, since)
}
