package filter

import (
	"testing"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
)

func vacancy(title, company string) model.Vacancy {
	return model.Vacancy{Title: title, Company: company}
}

func TestKeywordFilter_Match(t *testing.T) {
	tests := []struct {
		name            string
		titleKeywords   []string
		companyKeywords []string
		vacancy         model.Vacancy
		wantMatch       bool
	}{
		{
			name:            "matches both title and company",
			titleKeywords:   []string{"программист", "go"},
			companyKeywords: []string{"Ромашка"},
			vacancy:         vacancy("Программист 1С", "ООО Ромашка"),
			wantMatch:       true,
		},
		{
			name:            "title match but company miss",
			titleKeywords:   []string{"программист"},
			companyKeywords: []string{"Ромашка"},
			vacancy:         vacancy("Программист 1С", "КОГБУ"),
			wantMatch:       false,
		},
		{
			name:          "case insensitive matching",
			titleKeywords: []string{"GOLANG"},
			vacancy:       vacancy("Golang developer", "ООО"),
			wantMatch:     true,
		},
		{
			name:          "no keywords match",
			titleKeywords: []string{"devops", "sre"},
			vacancy:       vacancy("Frontend разработчик", "ООО"),
			wantMatch:     false,
		},
		{
			name:      "empty keyword lists pass all",
			vacancy:   vacancy("Бухгалтер", "ИП"),
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewKeywordFilter(tt.titleKeywords, tt.companyKeywords)
			if got := f.Match(tt.vacancy); got != tt.wantMatch {
				t.Errorf("Match(%+v) = %v, want %v", tt.vacancy, got, tt.wantMatch)
			}
		})
	}
}

func TestKeywordFilter_Apply(t *testing.T) {
	rows := []model.StoredVacancy{
		{ID: 1, Vacancy: vacancy("Go developer", "A")},
		{ID: 2, Vacancy: vacancy("Аналитик", "B")},
		{ID: 3, Vacancy: vacancy("Senior Go", "C")},
	}
	got := NewKeywordFilter([]string{"go"}, nil).Apply(rows)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("unexpected rows %+v", got)
	}
	if all := NewKeywordFilter(nil, nil).Apply(rows); len(all) != 3 {
		t.Errorf("expected empty filter to keep all rows, got %d", len(all))
	}
}

func TestCollapseByLink(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	rows := []model.StoredVacancy{
		{ID: 1, Vacancy: model.Vacancy{Title: "a", Link: "https://hh.ru/vacancy/1", Date: day(3)}},
		{ID: 2, Vacancy: model.Vacancy{Title: "b", Link: "https://hh.ru/vacancy/2", Date: day(4)}},
		{ID: 3, Vacancy: model.Vacancy{Title: "a2", Link: "https://hh.ru/vacancy/1", Date: day(8)}},
		{ID: 4, Vacancy: model.Vacancy{Title: "a3", Link: "https://hh.ru/vacancy/1", Date: day(5)}},
		{ID: 5, Vacancy: model.Vacancy{Title: "x", Link: model.NoLink, Date: day(1)}},
		{ID: 6, Vacancy: model.Vacancy{Title: "y", Link: model.NoLink, Date: day(2)}},
	}

	got := CollapseByLink(rows)
	if len(got) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(got))
	}
	if got[0].ID != 1 || got[0].Title != "a" {
		t.Errorf("expected the first occurrence to be kept, got %+v", got[0])
	}
	if !got[0].Date.Equal(day(8)) {
		t.Errorf("expected freshest date, got %v", got[0].Date)
	}
	if got[2].ID != 5 || got[3].ID != 6 {
		t.Errorf("expected rows without links to stay separate, got %+v", got[2:])
	}
	if !rows[0].Date.Equal(day(3)) {
		t.Error("expected input rows to be left untouched")
	}
}
