// Package store persists vacancies.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/model"
)

// Opener opens a store connection. Every pipeline calls it once and closes
// what it gets.
type Opener func(ctx context.Context) (model.Store, error)

// NewOpener returns an Opener for the configured driver. In dry-run mode
// every call returns a fresh NopStore.
func NewOpener(cfg config.StoreConfig, dryRun bool) Opener {
	return func(ctx context.Context) (model.Store, error) {
		if dryRun {
			return NewNopStore(), nil
		}
		switch cfg.Driver {
		case "sqlite":
			return NewSQLiteStore(cfg.Path)
		case "postgres":
			return NewPostgresStore(ctx, cfg.DSN)
		default:
			return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
		}
	}
}

// StalenessDays returns how many days the lookback window must cover to
// reach back to the last write of the database file, plus one. A missing
// file means one day.
func StalenessDays(path string, now time.Time) (int, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	modified := model.Day(info.ModTime().In(now.Location()))
	days := int(model.Day(now).Sub(modified).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days, nil
}
