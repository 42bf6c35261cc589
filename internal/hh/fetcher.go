package hh

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/mpetrenko/hh-scout/internal/metrics"
)

// Fetcher drives repeated page requests against one endpoint, accumulating
// raw records until the upstream-reported page count or the caller-supplied
// cap is reached. A Fetcher is restartable only by calling FetchAll again
// with reset parameters; it is not resumable mid-sequence.
type Fetcher struct {
	Pages PageFetcher

	// MaxRetries bounds transport-level retries per page before the page is
	// given up on. Zero means the package default.
	MaxRetries uint64

	// BackoffSeed overrides the initial retry interval. Tests shrink it.
	BackoffSeed time.Duration
}

const defaultMaxRetries = 3

// FetchAll pages through endpoint starting from params["page"] (default 0)
// and returns every accumulated item. It stops silently on reaching either
// the upstream page count or maxPages.
//
// A non-2xx response terminates the sequence and surfaces the *StatusError
// together with the records gathered so far. A transport failure is retried
// with exponential backoff; once retries are exhausted the page is treated
// as yielding zero records, a warning is logged, and the sequence ends with
// whatever was accumulated. No partial results are committed anywhere.
func (f *Fetcher) FetchAll(ctx context.Context, endpoint string, params url.Values, maxPages int) ([]json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	page := 0
	if v := params.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	pages := page + 1 // unknown until the first response arrives

	var items []json.RawMessage
	for page < pages && page < maxPages {
		params.Set("page", strconv.Itoa(page))

		p, err := f.fetchPage(ctx, endpoint, params)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) {
				return items, err
			}
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			metrics.FetchFailures.Inc()
			log.Warn().Err(err).
				Str("endpoint", endpoint).
				Int("page", page).
				Msg("page fetch failed after retries, ending pagination early")
			return items, nil
		}

		items = append(items, p.Items...)
		page = p.PageIndex + 1
		pages = p.Pages
	}
	return items, nil
}

// fetchPage wraps one page request in a bounded exponential backoff. Status
// errors and context cancellation are permanent; only transport failures
// are retried.
func (f *Fetcher) fetchPage(ctx context.Context, endpoint string, params url.Values) (*Page, error) {
	retries := f.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	}

	var p *Page
	op := func() error {
		var err error
		p, err = f.Pages.FetchPage(ctx, endpoint, params)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		metrics.FetchRetries.Inc()
		log.Debug().Err(err).Str("endpoint", endpoint).Msg("transport failure, backing off")
		return err
	}

	b := backoff.NewExponentialBackOff()
	if f.BackoffSeed > 0 {
		b.InitialInterval = f.BackoffSeed
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)); err != nil {
		return nil, err
	}
	return p, nil
}
