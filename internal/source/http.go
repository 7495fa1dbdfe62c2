package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/ratelimit"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Client performs the HTTP requests of one source: listing pages paced by a
// host limiter and single-attempt detail fetches. It implements
// model.DetailFetcher.
type Client struct {
	http      *http.Client
	detail    *http.Client
	headers   map[string]string
	limiter   *ratelimit.HostLimiter
	timeout   time.Duration
}

// NewClient creates a Client sending headers with every request. Detail
// fetches do not follow redirects; a redirect is reported as a bad status.
func NewClient(base *http.Client, headers map[string]string, limiter *ratelimit.HostLimiter, timeout time.Duration) *Client {
	if base == nil {
		base = &http.Client{}
	}
	detail := *base
	detail.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{
		http:    base,
		detail:  &detail,
		headers: headers,
		limiter: limiter,
		timeout: timeout,
	}
}

// Page fetches one listing page after waiting for the limiter.
func (c *Client) Page(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return nil, err
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.get(ctx, c.http, url)
}

// FetchDetail fetches the detail payload at link as is. The caller bounds
// the request with ctx.
func (c *Client) FetchDetail(ctx context.Context, link string, _ model.SourceType) ([]byte, error) {
	return c.get(ctx, c.detail, link)
}

func (c *Client) get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
