package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
)

// Ensure SlackSink implements model.ResultSink.
var _ model.ResultSink = (*SlackSink)(nil)

const slackPause = 500 * time.Millisecond

// SlackSink posts inserted vacancies to a Slack channel via Incoming Webhooks.
type SlackSink struct {
	webhookURL string
	httpClient *http.Client
	pause      time.Duration
	logger     *slog.Logger
}

// NewSlackSink returns a sink that posts each vacancy to Slack via webhook.
func NewSlackSink(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackSink {
	return &SlackSink{
		webhookURL: webhookURL,
		httpClient: httpClient,
		pause:      slackPause,
		logger:     logger,
	}
}

// Render sends each row as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackSink) Render(ctx context.Context, rows []model.StoredVacancy) error {
	if len(rows) == 0 {
		return nil
	}

	failures := 0
	for i, r := range rows {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("slack: %w", ctx.Err())
			case <-time.After(s.pause):
			}
		}

		if err := s.send(ctx, r); err != nil {
			s.logger.Error("slack post failed", "id", r.ID, "title", r.Title, "error", err)
			failures++
		}
	}

	if failures == len(rows) {
		return fmt.Errorf("all %d slack posts failed", failures)
	}
	s.logger.Info("slack posts complete", "sent", len(rows)-failures, "failed", failures)
	return nil
}

func (s *SlackSink) send(ctx context.Context, r model.StoredVacancy) error {
	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{StatusCode: resp.StatusCode, URL: s.webhookURL}
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func buildPayload(r model.StoredVacancy) slackPayload {
	v := Normalize(r)

	header := v["title"]
	if v["company"] != "" {
		header = v["company"] + ": " + header
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: header},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Salary:*\n" + orDash(v["salary"])},
				{Type: "mrkdwn", Text: "*Experience:*\n" + orDash(v["experience"])},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + orDash(v["date"])},
				{Type: "mrkdwn", Text: "*Source:*\n" + string(r.Source)},
			},
		},
	}

	if v["shortdesc"] != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: v["shortdesc"]},
		})
	}

	if r.Link != "" && r.Link != model.NoLink {
		blocks = append(blocks, slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Open"},
					URL:   r.Link,
					Style: "primary",
				},
			},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Blocks: blocks}
}
