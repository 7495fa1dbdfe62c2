package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/vacancywatch/internal/model"
)

// hhMaxPages stops pagination if the site never returns an empty page.
const hhMaxPages = 100

// HHHarvester walks the hh.ru search result pages for a lookback window.
type HHHarvester struct {
	client  *Client
	listURL string
	logger  *slog.Logger
}

// NewHHHarvester creates a harvester for the hh.ru search at listURL.
func NewHHHarvester(client *Client, listURL string, logger *slog.Logger) *HHHarvester {
	return &HHHarvester{client: client, listURL: listURL, logger: logger}
}

// Harvest requests pages until an empty one, a failed one or ctx is done.
func (h *HHHarvester) Harvest(ctx context.Context, windowDays int) []model.Vacancy {
	base, _ := url.Parse(h.listURL)
	var result []model.Vacancy
	for page := 0; page < hhMaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		pageURL, err := withQuery(h.listURL, map[string]string{
			"search_period": strconv.Itoa(windowDays),
			"page":          strconv.Itoa(page),
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
		items, err := parseHHListing(body, base)
		if err != nil {
			h.logger.Warn("listing parse failed", "url", pageURL, "error", err)
			break
		}
		if len(items) == 0 {
			break
		}
		result = append(result, items...)
	}
	h.logger.Info("harvested listing", "count", len(result))
	return result
}

func parseHHListing(body []byte, base *url.URL) ([]model.Vacancy, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse hh listing: %w", err)
	}
	var items []model.Vacancy
	doc.Find("div.serp-item").Each(func(_ int, s *goquery.Selection) {
		link := model.NoLink
		if href, ok := s.Find("a.bloko-link").First().Attr("href"); ok && href != "" {
			href, _, _ = strings.Cut(href, "?")
			link = absolute(base, href)
		}
		items = append(items, model.Vacancy{
			Source:    model.SourceHH,
			Title:     textOf(s, "a[class*=bloko-link]"),
			Salary:    textOf(s, `span[data-qa="vacancy-serp__vacancy-compensation"]`),
			Company:   textOf(s, "div[class*=vacancy-serp-item__meta-info-company]"),
			ShortDesc: textOf(s, "div[class*=g-user-content]"),
			Link:      link,
		})
	})
	return items, nil
}

// HHParser extracts experience, description and the creation date from an
// hh.ru vacancy page.
type HHParser struct {
	today time.Time
}

// NewHHParser creates a parser resolving dates relative to today.
func NewHHParser(today time.Time) *HHParser {
	return &HHParser{today: model.Day(today)}
}

// ParseDetail implements model.DetailParser. The creation date on the page
// replaces any listing date.
func (p *HHParser) ParseDetail(payload []byte) (model.DetailFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return model.DetailFields{}, fmt.Errorf("parse hh detail: %w", err)
	}
	fields := model.DetailFields{
		Experience: textOf(doc.Selection, "span[data-qa*=vacancy-experience]"),
		FullDesc:   textOf(doc.Selection, "div[data-qa*=vacancy-description]"),
	}
	if created := textOf(doc.Selection, "p[class*=vacancy-creation-time-redesigned] > span"); created != "" {
		if d, ok := postingDate(created, p.today); ok {
			fields.Date = d
			fields.DateAuthoritative = true
		}
	}
	return fields, nil
}
