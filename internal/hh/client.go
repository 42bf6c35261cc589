package hh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mpetrenko/hh-scout/internal/metrics"
)

// DefaultBaseURL is the public HeadHunter API root.
const DefaultBaseURL = "https://api.hh.ru"

const userAgent = "hh-scout/0.1 (api-client)"

// PageFetcher is the capability the pipeline depends on: fetch one page of
// records from an endpoint. Client is the production implementation; tests
// substitute fakes.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, params url.Values) (*Page, error)
}

// Client performs rate-limited GETs against the upstream API with a shared
// HTTP client. The limiter throttles every page request, including retries.
type Client struct {
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a Client. timeout bounds each page request; rps and
// burst configure the request rate limiter.
func NewClient(timeout time.Duration, rps float64, burst int) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// FetchPage requests one page and decodes the envelope. A non-2xx response
// yields a *StatusError carrying the code and body; transport failures are
// returned as-is for the caller's retry policy.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := endpoint
	if enc := params.Encode(); enc != "" {
		// Endpoints handed back by the API (vacancies_url) already carry a query.
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		reqURL = endpoint + sep + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var p Page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	metrics.PagesFetched.Inc()
	return &p, nil
}
