package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/sink"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test vacancy to Slack",
	Long:  "Posts one sample vacancy through the configured Slack webhook.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	if cfg.Notification.Type != "slack" {
		err := errors.New(`notify test requires notification.type "slack"`)
		logger.Error("nothing to test", "error", err)
		return err
	}

	slack := sink.NewSlackSink(cfg.Notification.WebhookURL, &http.Client{Timeout: 30 * time.Second}, logger)
	sample := model.StoredVacancy{
		ID: 0,
		Vacancy: model.Vacancy{
			Source:     model.SourceHH,
			Title:      "Test vacancy",
			Company:    "vw",
			ShortDesc:  "Integration check, safe to ignore.",
			Link:       "https://kirov.hh.ru/",
			Date:       model.Day(time.Now()),
			Experience: "не требуется",
		},
	}
	if err := slack.Render(cmd.Context(), []model.StoredVacancy{sample}); err != nil {
		logger.Error("test notification failed", "error", err)
		return err
	}
	logger.Info("test notification sent successfully")
	return nil
}
