package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/vacancywatch/internal/model"
)

// trudkirovDateLayout is the date format of the listing and its StartDate filter.
const trudkirovDateLayout = "02.01.2006"

// TrudkirovHarvester reads the trudkirov.ru vacancy table. One page of up
// to 1000 rows covers any realistic window.
type TrudkirovHarvester struct {
	client  *Client
	listURL string
	today   time.Time
	logger  *slog.Logger
}

// NewTrudkirovHarvester creates a harvester for the listing at listURL.
func NewTrudkirovHarvester(client *Client, listURL string, today time.Time, logger *slog.Logger) *TrudkirovHarvester {
	return &TrudkirovHarvester{client: client, listURL: listURL, today: model.Day(today), logger: logger}
}

// Harvest requests the single listing page for the window.
func (h *TrudkirovHarvester) Harvest(ctx context.Context, windowDays int) []model.Vacancy {
	pageURL, err := withQuery(h.listURL, map[string]string{
		"StartDate": dayBefore(h.today, windowDays).Format(trudkirovDateLayout),
		"Sort":      "1",
		"PageSize":  "1000",
	})
	if err != nil {
		h.logger.Error("invalid list url", "url", h.listURL, "error", err)
		return nil
	}
	body, err := h.client.Page(ctx, pageURL)
	if err != nil {
		logFetchError(h.logger, pageURL, err)
		return nil
	}
	base, _ := url.Parse(h.listURL)
	result, err := h.parseListing(body, base)
	if err != nil {
		h.logger.Warn("listing parse failed", "url", pageURL, "error", err)
		return nil
	}
	h.logger.Info("harvested listing", "count", len(result))
	return result
}

func (h *TrudkirovHarvester) parseListing(body []byte, base *url.URL) ([]model.Vacancy, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse trudkirov listing: %w", err)
	}
	// The vacancy table is the only tbody on the page; an empty result
	// renders a single .k-no-data row.
	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 || tbody.Find(".k-no-data").Length() > 0 {
		return nil, nil
	}

	var result []model.Vacancy
	tbody.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Children()
		if cells.Length() < 5 {
			h.logger.Warn("skipping short table row", "row", i, "cells", cells.Length())
			return
		}
		link := model.NoLink
		if href, ok := cells.Eq(0).Find("a").First().Attr("href"); ok && href != "" {
			link = absolute(base, href)
			link, _, _ = strings.Cut(link, "?returnurl=")
		}
		dateText := text(cells.Eq(4))
		date, ok := postingDate(dateText, h.today)
		if !ok {
			h.logger.Info("unparseable row date, using today", "date", dateText)
		}
		result = append(result, model.Vacancy{
			Source:  model.SourceTrudkirov,
			Title:   text(cells.Eq(0)),
			Salary:  text(cells.Eq(1)),
			Company: text(cells.Eq(3)),
			Date:    date,
			Link:    link,
		})
	})
	return result, nil
}

// TrudkirovParser reads the dt/dd description list of a trudkirov.ru
// vacancy page.
type TrudkirovParser struct{}

// NewTrudkirovParser creates a TrudkirovParser.
func NewTrudkirovParser() *TrudkirovParser {
	return &TrudkirovParser{}
}

// ParseDetail implements model.DetailParser.
func (p *TrudkirovParser) ParseDetail(payload []byte) (model.DetailFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return model.DetailFields{}, fmt.Errorf("parse trudkirov detail: %w", err)
	}

	var fields model.DetailFields
	var duties, additional string
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := text(dt.NextAllFiltered("dd").First())
		switch text(dt) {
		case "Стаж":
			fields.Experience = dd
		case "Должностные обязанности":
			duties = "Должностные обязанности: " + dd
		case "Дополнительные пожелания":
			additional = "Дополнительные пожелания: " + dd
		}
	})

	var parts []string
	for _, s := range []string{duties, additional} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	fields.FullDesc = strings.Join(parts, "\n")
	fields.ShortDesc = truncate(duties, shortDescLen)
	return fields, nil
}
