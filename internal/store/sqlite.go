package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/vacancywatch/internal/model"
)

// busyTimeout lets concurrent pipelines wait for each other's write
// transactions instead of failing with SQLITE_BUSY.
const busyTimeout = "_pragma=busy_timeout(10000)"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS vacancies (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
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

// SQLiteStore keeps vacancies in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// vacancies table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?" + busyTimeout
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vacancies table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS vacancies_date ON vacancies (date)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vacancies index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Read returns all vacancies dated on or after since, oldest id first.
func (s *SQLiteStore) Read(ctx context.Context, since time.Time) ([]model.StoredVacancy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_type, title, company, salary, shortdesc, link, date, experience, fulldesc
		 FROM vacancies WHERE date >= ? ORDER BY id`,
		since.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("reading vacancies since %s: %w", since.Format(model.DateLayout), err)
	}
	defer rows.Close()

	var out []model.StoredVacancy
	for rows.Next() {
		var (
			v                                       model.StoredVacancy
			source, date                            string
			salary, shortdesc, experience, fulldesc sql.NullString
		)
		if err := rows.Scan(&v.ID, &source, &v.Title, &v.Company, &salary, &shortdesc,
			&v.Link, &date, &experience, &fulldesc); err != nil {
			return nil, fmt.Errorf("scanning vacancy row: %w", err)
		}
		v.Source = model.SourceType(source)
		v.Salary = salary.String
		v.ShortDesc = shortdesc.String
		v.Experience = experience.String
		v.FullDesc = fulldesc.String
		if v.Date, err = parseStoredDate(date); err != nil {
			return nil, fmt.Errorf("vacancy %d: %w", v.ID, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading vacancy rows: %w", err)
	}
	return out, nil
}

// WriteBatch inserts vacancies in a single transaction.
func (s *SQLiteStore) WriteBatch(ctx context.Context, vacancies []model.Vacancy) ([]model.StoredVacancy, error) {
	if len(vacancies) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning vacancy batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vacancies (source_type, title, company, salary, shortdesc, link, date, experience, fulldesc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing vacancy insert: %w", err)
	}
	defer stmt.Close()

	out := make([]model.StoredVacancy, 0, len(vacancies))
	for _, v := range vacancies {
		res, err := stmt.ExecContext(ctx, string(v.Source), v.Title, v.Company, v.Salary, v.ShortDesc,
			v.Link, v.Date.Format(model.DateLayout), v.Experience, v.FullDesc)
		if err != nil {
			return nil, fmt.Errorf("inserting vacancy %s: %w", v.Link, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading id of vacancy %s: %w", v.Link, err)
		}
		out = append(out, model.StoredVacancy{ID: id, Vacancy: v})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing vacancy batch: %w", err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// parseStoredDate accepts the plain date the store writes and the datetime
// forms SQLite tools tend to leave behind.
func parseStoredDate(s string) (time.Time, error) {
	for _, layout := range []string{model.DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable stored date %q", s)
}
