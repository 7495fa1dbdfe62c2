package source

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
)

// monthStems maps the leading letters of Russian month names, in both
// nominative and genitive forms, to months.
var monthStems = []struct {
	stem  string
	month time.Month
}{
	{"янв", time.January},
	{"фев", time.February},
	{"май", time.May},
	{"мая", time.May},
	{"мар", time.March},
	{"апр", time.April},
	{"июн", time.June},
	{"июл", time.July},
	{"авг", time.August},
	{"сен", time.September},
	{"окт", time.October},
	{"ноя", time.November},
	{"дек", time.December},
}

var (
	numericDate = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	dateToken   = regexp.MustCompile(`\p{L}+|\d+`)

	errNoDate = errors.New("no date found")
)

// ParseRussianDate finds a date in free text such as "5 июня 2023",
// "Вакансия опубликована 12 сент в Кирове" or "01.02.2024". A missing
// year means the year of today.
func ParseRussianDate(s string, today time.Time) (time.Time, error) {
	if m := numericDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return buildDate(year, time.Month(month), day, s)
	}

	tokens := dateToken.FindAllString(strings.ToLower(s), -1)
	for i, tok := range tokens {
		month, ok := monthOf(tok)
		if !ok || i == 0 {
			continue
		}
		day, err := strconv.Atoi(tokens[i-1])
		if err != nil {
			continue
		}
		year := today.Year()
		if i+1 < len(tokens) && len(tokens[i+1]) == 4 {
			if y, err := strconv.Atoi(tokens[i+1]); err == nil {
				year = y
			}
		}
		return buildDate(year, month, day, s)
	}
	return time.Time{}, fmt.Errorf("parse date %q: %w", s, errNoDate)
}

func monthOf(token string) (time.Month, bool) {
	for _, m := range monthStems {
		if strings.HasPrefix(token, m.stem) {
			return m.month, true
		}
	}
	return 0, false
}

func buildDate(year int, month time.Month, day int, s string) (time.Time, error) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, errNoDate)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("parse date %q: day out of range", s)
	}
	return t, nil
}

// postingDate parses s and falls back to today for unparseable and future
// dates. ok is false when the fallback was used.
func postingDate(s string, today time.Time) (date time.Time, ok bool) {
	today = model.Day(today)
	d, err := ParseRussianDate(s, today)
	if err != nil || d.After(today) {
		return today, false
	}
	return d, true
}
