package sink

import (
	"context"
	"errors"

	"github.com/amishk599/vacancywatch/internal/model"
)

// Multi fans one render out to several sinks. Every sink runs even when an
// earlier one fails; the errors are joined.
type Multi []model.ResultSink

// Ensure Multi implements model.ResultSink.
var _ model.ResultSink = Multi(nil)

func (m Multi) Render(ctx context.Context, rows []model.StoredVacancy) error {
	var errs []error
	for _, s := range m {
		if err := s.Render(ctx, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
