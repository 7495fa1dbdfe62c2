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

const superjobMaxPages = 5

// superjobPeriod buckets a window into the periods the site supports.
func superjobPeriod(days int) int {
	switch {
	case days < 2:
		return 1
	case days < 4:
		return 3
	default:
		return 7
	}
}

// SuperjobHarvester scrapes the superjob.ru category listing. The site lists
// the configured region first and other regions after it, mixed with ads.
type SuperjobHarvester struct {
	client  *Client
	listURL string
	region  string
	today   time.Time
	logger  *slog.Logger
}

// NewSuperjobHarvester creates a harvester keeping only cards located in region.
func NewSuperjobHarvester(client *Client, listURL, region string, today time.Time, logger *slog.Logger) *SuperjobHarvester {
	return &SuperjobHarvester{
		client:  client,
		listURL: listURL,
		region:  region,
		today:   model.Day(today),
		logger:  logger,
	}
}

// Harvest reads up to five pages and stops at the first card outside the
// region or older than the window.
func (h *SuperjobHarvester) Harvest(ctx context.Context, windowDays int) []model.Vacancy {
	period := superjobPeriod(windowDays)
	oldest := dayBefore(h.today, period)
	base, _ := url.Parse(h.listURL)

	var result []model.Vacancy
	for page := 1; page <= superjobMaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		pageURL, err := withQuery(h.listURL, map[string]string{
			"period":     strconv.Itoa(period),
			"click_from": "facet",
			"page":       strconv.Itoa(page),
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
		items, done, err := h.parseListing(body, base, oldest)
		if err != nil {
			h.logger.Warn("listing parse failed", "url", pageURL, "error", err)
			break
		}
		result = append(result, items...)
		if done {
			break
		}
	}
	h.logger.Info("harvested listing", "count", len(result))
	return result
}

// parseListing returns the cards of one page. done reports that the region
// or the window was left, or that the page was empty.
func (h *SuperjobHarvester) parseListing(body []byte, base *url.URL, oldest time.Time) (items []model.Vacancy, done bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse superjob listing: %w", err)
	}
	cards := doc.Find("div.f-test-search-result-item")
	if cards.Length() == 0 {
		return nil, true, nil
	}

	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		// Promoted cards are framed by an inline background colour.
		if card.Find(`div[style*="background-color"]`).Length() > 0 {
			return true
		}
		first := card.Find("span").First()
		if first.Length() == 0 {
			return true
		}
		date, skip := h.cardDate(text(first))
		if skip {
			return true
		}
		city := textOf(card, "span[class*=f-test-text-company-item-location]")
		if city == "" {
			return true
		}
		if !strings.Contains(city, h.region) || date.Before(oldest) {
			done = true
			return false
		}

		a := card.Find("a").First()
		href, _ := a.Attr("href")
		link := model.NoLink
		if href != "" {
			link = absolute(base, href)
		}
		items = append(items, model.Vacancy{
			Source:    model.SourceSuperjob,
			Title:     text(a),
			Link:      link,
			Salary:    textOf(card, "div[class*=f-test-text-company-item-salary]"),
			Company:   textOf(card, "span[class*=f-test-text-vacancy-item-company-name]"),
			ShortDesc: superjobShortDesc(card),
			Date:      date,
		})
		return true
	})
	return items, done, nil
}

// cardDate interprets the first span of a card. skip is true for course ads
// and the neighbouring-cities banner.
func (h *SuperjobHarvester) cardDate(s string) (date time.Time, skip bool) {
	switch {
	case s == "Курс" || s == "Вакансии из соседних городов":
		return time.Time{}, true
	case strings.Contains(s, "Сегодня"):
		return h.today, false
	case s == "Вчера":
		return dayBefore(h.today, 1), false
	}
	d, ok := postingDate(s, h.today)
	if !ok {
		h.logger.Info("unparseable card date, using today", "date", s)
	}
	return d, false
}

// superjobShortDesc collects the snippet blocks above the apply button:
// up to three previous siblings of its fifth ancestor, stopping at the badge row.
func superjobShortDesc(card *goquery.Selection) string {
	btn := card.Find("button.f-test-button-Otkliknutsya").First()
	if btn.Length() == 0 {
		return ""
	}
	node := btn
	for i := 0; i < 5; i++ {
		node = node.Parent()
	}

	var desc string
	for i := 0; i < 3; i++ {
		node = node.Prev()
		if node.Length() == 0 {
			break
		}
		if badges := node.Find("span.f-test-badge"); badges.Length() > 0 {
			labels := badges.Map(func(_ int, b *goquery.Selection) string { return text(b) })
			desc = strings.Join(labels, ". ") + ". " + desc
			break
		}
		desc = text(node) + desc
	}
	return strings.TrimSpace(desc)
}

// SuperjobParser extracts the features line and base description from a
// superjob.ru vacancy page.
type SuperjobParser struct{}

// NewSuperjobParser creates a SuperjobParser.
func NewSuperjobParser() *SuperjobParser {
	return &SuperjobParser{}
}

// ParseDetail implements model.DetailParser.
func (p *SuperjobParser) ParseDetail(payload []byte) (model.DetailFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return model.DetailFields{}, fmt.Errorf("parse superjob detail: %w", err)
	}

	var fields model.DetailFields
	// "Опыт работы не требуется, неполный рабочий день, удалённая работа"
	if features := doc.Find("div.f-test-address").First().Next(); features.Length() > 0 {
		line := text(features)
		fields.FullDesc = line
		for _, f := range strings.Split(line, ",") {
			if strings.Contains(strings.ToLower(f), "опыт") {
				fields.Experience = strings.TrimSpace(f)
				break
			}
		}
	}

	base := doc.Find("div.f-test-vacancy-base-info").First()
	if section := base.Children().Eq(1); section.Children().Length() > 1 {
		if desc := text(section.Children().Eq(1)); desc != "" {
			if fields.FullDesc != "" {
				fields.FullDesc += "\n"
			}
			fields.FullDesc += desc
		}
	}
	return fields, nil
}
