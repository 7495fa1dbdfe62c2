package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It remembers nothing, so
// every harvested vacancy is new on each run.
type NopStore struct {
	nextID atomic.Int64
}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Read(ctx context.Context, since time.Time) ([]model.StoredVacancy, error) {
	return nil, nil
}

// WriteBatch hands out ids without persisting anything.
func (s *NopStore) WriteBatch(ctx context.Context, vacancies []model.Vacancy) ([]model.StoredVacancy, error) {
	out := make([]model.StoredVacancy, len(vacancies))
	for i, v := range vacancies {
		out[i] = model.StoredVacancy{ID: s.nextID.Add(1), Vacancy: v}
	}
	return out, nil
}

func (s *NopStore) Close() error { return nil }
