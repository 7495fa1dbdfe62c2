package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
)

const (
	trudvsemPageSize = 10
	trudvsemMaxPages = 100
	trudvsemCardURL  = "https://trudvsem.ru/vacancy/card/"

	// Listing row columns.
	trudvsemColID      = 0
	trudvsemColTitle   = 1
	trudvsemColCompany = 2
	trudvsemColName    = 3
	trudvsemColDate    = 23
)

// trudvsemFilter restricts the listing to IT vacancies of Kirov.
type trudvsemFilter struct {
	RegionCode         []string `json:"regionCode"`
	Districts          []string `json:"districts"`
	ProfessionalSphere []string `json:"professionalSphere"`
	PublishDateTime    []string `json:"publishDateTime"`
}

type trudvsemListing struct {
	Result struct {
		Data   [][]json.RawMessage `json:"data"`
		Paging struct {
			Pages int `json:"pages"`
		} `json:"paging"`
	} `json:"result"`
}

// trudvsemPeriod buckets a window into the publish periods the site supports.
func trudvsemPeriod(days int) string {
	switch {
	case days < 2:
		return "EXP_0"
	case days < 4:
		return "EXP_1"
	case days < 8:
		return "EXP_2"
	case days < 32:
		return "EXP_3"
	default:
		return "EXP_MAX"
	}
}

// TrudvsemHarvester reads the trudvsem.ru JSON search listing.
type TrudvsemHarvester struct {
	client  *Client
	listURL string
	logger  *slog.Logger
}

// NewTrudvsemHarvester creates a harvester for the listing endpoint at listURL.
func NewTrudvsemHarvester(client *Client, listURL string, logger *slog.Logger) *TrudvsemHarvester {
	return &TrudvsemHarvester{client: client, listURL: listURL, logger: logger}
}

// Harvest requests pages until the last page, an empty or failed one.
func (h *TrudvsemHarvester) Harvest(ctx context.Context, windowDays int) []model.Vacancy {
	filter, _ := json.Marshal(trudvsemFilter{
		RegionCode:         []string{"4300000000000"},
		Districts:          []string{"4300000100000"},
		ProfessionalSphere: []string{"InformationTechnology"},
		PublishDateTime:    []string{trudvsemPeriod(windowDays)},
	})

	var result []model.Vacancy
	for page := 0; page < trudvsemMaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		pageURL, err := withQuery(h.listURL, map[string]string{
			"filter":      string(filter),
			"orderColumn": "RELEVANCE_DESC",
			"page":        strconv.Itoa(page),
			"pageSize":    strconv.Itoa(trudvsemPageSize),
		})
		if err != nil {
			h.logger.Error("invalid list url", "url", h.listURL, "error", err)
			break
		}
		body, err := h.client.Page(ctx, pageURL)
		if err != nil {
			logFetchError(h.logger, pageURL, err)
			break
		}
		var listing trudvsemListing
		if err := json.Unmarshal(body, &listing); err != nil {
			h.logger.Warn("listing parse failed", "url", pageURL, "error", err)
			break
		}
		if len(listing.Result.Data) == 0 {
			break
		}
		for _, row := range listing.Result.Data {
			v, err := trudvsemVacancy(row)
			if err != nil {
				h.logger.Warn("skipping listing row", "url", pageURL, "error", err)
				continue
			}
			result = append(result, v)
		}
		if page >= listing.Result.Paging.Pages-1 {
			break
		}
	}
	h.logger.Info("harvested listing", "count", len(result))
	return result
}

var errShortRow = errors.New("listing row too short")

func trudvsemVacancy(row []json.RawMessage) (model.Vacancy, error) {
	if len(row) <= trudvsemColDate {
		return model.Vacancy{}, fmt.Errorf("parse trudvsem row of %d columns: %w", len(row), errShortRow)
	}
	id := rawString(row[trudvsemColID])
	company := rawString(row[trudvsemColCompany])
	v := model.Vacancy{
		Source:  model.SourceTrudvsem,
		Title:   rawString(row[trudvsemColTitle]),
		Company: rawString(row[trudvsemColName]),
		Link:    trudvsemCardURL + company + "/" + id,
	}
	if d, err := epochDay(rawString(row[trudvsemColDate])); err == nil {
		v.Date = d
	}
	return v, nil
}

// epochDay reads a millisecond (or second) epoch and returns its local day.
func epochDay(s string) (time.Time, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse epoch %q: %w", s, err)
	}
	return model.Day(time.Unix(sec, 0)), nil
}

// rawString renders a JSON scalar as a string: strings unquoted, numbers
// verbatim, null as "".
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	*f = flexString(rawString(b))
	return nil
}

type trudvsemDetail struct {
	Results struct {
		Vacancies []struct {
			Vacancy struct {
				Salary      flexString `json:"salary"`
				Duty        string     `json:"duty"`
				Requirement struct {
					Experience flexString `json:"experience"`
				} `json:"requirement"`
			} `json:"vacancy"`
		} `json:"vacancies"`
	} `json:"results"`
}

var errNoVacancy = errors.New("detail response holds no vacancy")

// TrudvsemParser reads the open data API vacancy document.
type TrudvsemParser struct {
	logger *slog.Logger
}

// NewTrudvsemParser creates a parser logging ambiguous API answers to logger.
func NewTrudvsemParser(logger *slog.Logger) *TrudvsemParser {
	return &TrudvsemParser{logger: logger}
}

// ParseDetail implements model.DetailParser. The API salary replaces the
// listing salary.
func (p *TrudvsemParser) ParseDetail(payload []byte) (model.DetailFields, error) {
	var doc trudvsemDetail
	if err := json.Unmarshal(payload, &doc); err != nil {
		return model.DetailFields{}, fmt.Errorf("parse trudvsem detail: %w", err)
	}
	vacancies := doc.Results.Vacancies
	switch {
	case len(vacancies) == 0:
		return model.DetailFields{}, fmt.Errorf("parse trudvsem detail: %w", errNoVacancy)
	case len(vacancies) > 1:
		p.logger.Warn("detail response holds several vacancies, using the first", "count", len(vacancies))
	}

	v := vacancies[0].Vacancy
	full := htmlText(v.Duty)
	return model.DetailFields{
		Salary:              string(v.Salary),
		FullDesc:            full,
		ShortDesc:           truncate(full, shortDescLen),
		Experience:          string(v.Requirement.Experience),
		SalaryAuthoritative: true,
	}, nil
}

var errNoCardID = errors.New("link has no card id")

// TrudvsemFetcher loads trudvsem details from the open data API instead of
// the card page the listing links to.
type TrudvsemFetcher struct {
	client *Client
	api    string
}

// Ensure TrudvsemFetcher implements model.DetailFetcher.
var _ model.DetailFetcher = (*TrudvsemFetcher)(nil)

// NewTrudvsemFetcher creates a fetcher resolving card links against api.
func NewTrudvsemFetcher(client *Client, api string) *TrudvsemFetcher {
	return &TrudvsemFetcher{client: client, api: api}
}

// FetchDetail rewrites the card link to the API and fetches it.
func (f *TrudvsemFetcher) FetchDetail(ctx context.Context, link string, src model.SourceType) ([]byte, error) {
	target, err := trudvsemDetailURL(f.api, link)
	if err != nil {
		return nil, err
	}
	return f.client.FetchDetail(ctx, target, src)
}

// trudvsemDetailURL maps https://trudvsem.ru/vacancy/card/<company>/<id>
// to <api>/<company>/<id>.
func trudvsemDetailURL(api, link string) (string, error) {
	_, id, ok := strings.Cut(link, "card/")
	if !ok || id == "" {
		return "", fmt.Errorf("rewrite trudvsem link %q: %w", link, errNoCardID)
	}
	return strings.TrimSuffix(api, "/") + "/" + id, nil
}
