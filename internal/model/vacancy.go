package model

import (
	"context"
	"time"
)

// SourceType identifies the site a vacancy was harvested from.
type SourceType string

const (
	SourceHH        SourceType = "hh"
	SourceTrudvsem  SourceType = "trudvsem"
	SourceSuperjob  SourceType = "superjob"
	SourceTrudkirov SourceType = "trudkirov"
)

// NoLink is stored when a listing card carries no usable link.
const NoLink = "Couldnt get a link"

// DateLayout is the day-precision layout used for dates in storage and output.
const DateLayout = "2006-01-02"

// Vacancy is a job posting harvested from a source. Harvesters create it
// partially filled, the enricher fills the rest in place.
type Vacancy struct {
	Source     SourceType
	Title      string
	Company    string
	Salary     string
	ShortDesc  string
	Link       string
	Date       time.Time // zero until resolved
	Experience string
	FullDesc   string
}

// StoredVacancy is a persisted Vacancy. ID is assigned by the store and is
// never part of equality.
type StoredVacancy struct {
	ID int64
	Vacancy
}

// DetailFields is the partial field set a detail parser extracts from a
// detail page. Empty strings mean "not found".
type DetailFields struct {
	Company    string
	Salary     string
	ShortDesc  string
	Experience string
	FullDesc   string
	Date       time.Time

	// SalaryAuthoritative and DateAuthoritative let the detail source
	// replace values the harvester already set.
	SalaryAuthoritative bool
	DateAuthoritative   bool
}

// Merge copies detail fields into v without overwriting non-empty harvester
// values, except salary and date when the detail source is authoritative.
func (v *Vacancy) Merge(d DetailFields) {
	mergeString(&v.Company, d.Company, false)
	mergeString(&v.Salary, d.Salary, d.SalaryAuthoritative)
	mergeString(&v.ShortDesc, d.ShortDesc, false)
	mergeString(&v.Experience, d.Experience, false)
	mergeString(&v.FullDesc, d.FullDesc, false)
	if !d.Date.IsZero() && (v.Date.IsZero() || d.DateAuthoritative) {
		v.Date = Day(d.Date)
	}
}

func mergeString(dst *string, value string, overwrite bool) {
	if value == "" {
		return
	}
	if *dst == "" || overwrite {
		*dst = value
	}
}

// ResolveDate sets the run date when no stage managed to find a posting date.
func (v *Vacancy) ResolveDate(runDate time.Time) {
	if v.Date.IsZero() {
		v.Date = Day(runDate)
	}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Store persists vacancies. Each pipeline opens its own Store.
type Store interface {
	// Read returns all stored vacancies dated on or after since.
	Read(ctx context.Context, since time.Time) ([]StoredVacancy, error)
	// WriteBatch inserts all vacancies in one transaction and returns them
	// with their assigned IDs. Nothing is written if any insert fails.
	WriteBatch(ctx context.Context, vacancies []Vacancy) ([]StoredVacancy, error)
	Close() error
}

// ResultSink renders the vacancies a pipeline inserted.
type ResultSink interface {
	Render(ctx context.Context, rows []StoredVacancy) error
}

// Harvester produces the partial vacancies of one source for a lookback
// window. It never fails: problems are logged and partial results returned.
type Harvester interface {
	Harvest(ctx context.Context, windowDays int) []Vacancy
}

// DetailFetcher fetches the raw detail payload for a vacancy link, applying
// any source-specific URL rewriting.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, link string, src SourceType) ([]byte, error)
}

// DetailParser extracts detail fields from a raw detail payload.
type DetailParser interface {
	ParseDetail(payload []byte) (DetailFields, error)
}
