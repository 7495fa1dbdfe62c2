package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured sources",
	Long:  "Reads the config and prints a table of all configured sources.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}

	fmt.Printf("%-12s %-10s %-9s %s\n", "Source", "Status", "Pages/s", "Listing")
	fmt.Println(strings.Repeat("─", 72))

	enabled, disabled := 0, 0
	for _, s := range cfg.Sources {
		status := "enabled"
		if !s.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		rate := "-"
		if s.PageRate > 0 {
			rate = fmt.Sprintf("%.2g", s.PageRate)
		}
		fmt.Printf("%-12s %-10s %-9s %s\n", s.Type, status, rate, truncateURL(s.ListURL, 60))
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Sources), enabled, disabled)
	fmt.Printf("Store: %s", cfg.Store.Driver)
	if cfg.Store.Driver == "sqlite" {
		fmt.Printf(" (%s)", cfg.Store.Path)
	}
	fmt.Println()
	return nil
}

func truncateURL(u string, n int) string {
	if len(u) <= n {
		return u
	}
	return u[:n-3] + "..."
}
