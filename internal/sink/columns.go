// Package sink renders the vacancies a pipeline inserted.
package sink

import (
	"strings"

	"github.com/amishk599/vacancywatch/internal/model"
)

// Column is one output column. Percent is its share of the line width;
// zero means it shares whatever the fixed columns leave.
type Column struct {
	Name    string
	Percent int
}

// Columns is the output column order.
var Columns = []Column{
	{Name: "title", Percent: 15},
	{Name: "company", Percent: 10},
	{Name: "salary", Percent: 10},
	{Name: "shortdesc"},
	{Name: "date", Percent: 10},
	{Name: "experience", Percent: 5},
	{Name: "link"},
}

// Normalize flattens a stored vacancy into column values with line breaks
// removed.
func Normalize(v model.StoredVacancy) map[string]string {
	date := ""
	if !v.Date.IsZero() {
		date = v.Date.Format(model.DateLayout)
	}
	return map[string]string{
		"title":      oneLine(v.Title),
		"company":    oneLine(v.Company),
		"salary":     oneLine(v.Salary),
		"shortdesc":  oneLine(v.ShortDesc),
		"date":       date,
		"experience": oneLine(v.Experience),
		"link":       oneLine(v.Link),
	}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func oneLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
