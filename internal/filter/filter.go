package filter

import (
	"strings"

	"github.com/amishk599/vacancywatch/internal/model"
)

// KeywordFilter matches vacancies whose title contains any of the title
// keywords and whose company contains any of the company keywords.
// Matching is case-insensitive. Empty keyword lists are treated as "match all".
type KeywordFilter struct {
	titleKeywords   []string
	companyKeywords []string
}

// NewKeywordFilter returns a filter that requires both a title keyword match
// and a company keyword match (case-insensitive substring).
func NewKeywordFilter(titleKeywords []string, companyKeywords []string) *KeywordFilter {
	return &KeywordFilter{
		titleKeywords:   titleKeywords,
		companyKeywords: companyKeywords,
	}
}

// Match reports whether v passes both keyword lists.
func (f *KeywordFilter) Match(v model.Vacancy) bool {
	return containsAny(v.Title, f.titleKeywords) && containsAny(v.Company, f.companyKeywords)
}

// Apply returns the rows that match, in their original order.
func (f *KeywordFilter) Apply(rows []model.StoredVacancy) []model.StoredVacancy {
	if len(f.titleKeywords) == 0 && len(f.companyKeywords) == 0 {
		return rows
	}
	var out []model.StoredVacancy
	for _, r := range rows {
		if f.Match(r.Vacancy) {
			out = append(out, r)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// CollapseByLink keeps one row per link, the first seen, carrying the
// freshest date among its repeats. Rows without a usable link are never
// collapsed.
func CollapseByLink(rows []model.StoredVacancy) []model.StoredVacancy {
	out := make([]model.StoredVacancy, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		if r.Link == "" || r.Link == model.NoLink {
			out = append(out, r)
			continue
		}
		i, seen := index[r.Link]
		if !seen {
			index[r.Link] = len(out)
			out = append(out, r)
			continue
		}
		if r.Date.After(out[i].Date) {
			out[i].Date = r.Date
		}
	}
	return out
}
