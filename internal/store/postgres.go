package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/vacancywatch/internal/model"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS vacancies (
	id          BIGSERIAL PRIMARY KEY,
	source_type TEXT NOT NULL,
	title       TEXT NOT NULL,
	company     TEXT NOT NULL,
	salary      TEXT,
	shortdesc   TEXT,
	link        TEXT NOT NULL,
	date        DATE NOT NULL,
	experience  TEXT,
	fulldesc    TEXT
)`

// pgPool is the subset of *pgxpool.Pool the store uses.
type pgPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore keeps vacancies in a Postgres table. Each store owns its
// own pool; pools are never shared between pipelines.
type PostgresStore struct {
	pool pgPool
}

// NewPostgresStore connects to dsn with a small pool and ensures the
// vacancies table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating vacancies table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewPostgresStoreWithPool(pool pgPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// Read returns all vacancies dated on or after since, oldest id first.
func (s *PostgresStore) Read(ctx context.Context, since time.Time) ([]model.StoredVacancy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_type, title, company, COALESCE(salary, ''), COALESCE(shortdesc, ''),
		        link, date, COALESCE(experience, ''), COALESCE(fulldesc, '')
		 FROM vacancies WHERE date >= $1 ORDER BY id`, model.Day(since))
	if err != nil {
		return nil, fmt.Errorf("reading vacancies since %s: %w", since.Format(model.DateLayout), err)
	}
	defer rows.Close()

	var out []model.StoredVacancy
	for rows.Next() {
		var (
			v      model.StoredVacancy
			source string
		)
		if err := rows.Scan(&v.ID, &source, &v.Title, &v.Company, &v.Salary, &v.ShortDesc,
			&v.Link, &v.Date, &v.Experience, &v.FullDesc); err != nil {
			return nil, fmt.Errorf("scanning vacancy row: %w", err)
		}
		v.Source = model.SourceType(source)
		v.Date = model.Day(v.Date)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading vacancy rows: %w", err)
	}
	return out, nil
}

// WriteBatch inserts vacancies in a single transaction. On any failure the
// transaction is rolled back and nothing is returned.
func (s *PostgresStore) WriteBatch(ctx context.Context, vacancies []model.Vacancy) ([]model.StoredVacancy, error) {
	if len(vacancies) == 0 {
		return nil, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning vacancy batch: %w", err)
	}

	out := make([]model.StoredVacancy, 0, len(vacancies))
	for _, v := range vacancies {
		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO vacancies (source_type, title, company, salary, shortdesc, link, date, experience, fulldesc)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
			string(v.Source), v.Title, v.Company, v.Salary, v.ShortDesc, v.Link, model.Day(v.Date), v.Experience, v.FullDesc,
		).Scan(&id)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("inserting vacancy %s: %w", v.Link, err)
		}
		out = append(out, model.StoredVacancy{ID: id, Vacancy: v})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing vacancy batch: %w", err)
	}
	return out, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
