package sink

import (
	"context"
	"log/slog"

	"github.com/amishk599/vacancywatch/internal/model"
)

// Ensure LogSink implements model.ResultSink.
var _ model.ResultSink = (*LogSink)(nil)

// LogSink writes inserted vacancies to the given logger as structured messages.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs each vacancy via slog.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Render logs each row with its id, source and normalised columns.
// Returns nil (logging does not fail).
func (s *LogSink) Render(ctx context.Context, rows []model.StoredVacancy) error {
	for _, r := range rows {
		v := Normalize(r)
		args := []any{"id", r.ID, "source", r.Source}
		for _, c := range Columns {
			if v[c.Name] == "" {
				continue
			}
			args = append(args, c.Name, v[c.Name])
		}
		s.logger.InfoContext(ctx, "new vacancy", args...)
	}
	return nil
}
