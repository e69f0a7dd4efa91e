package hn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Hacker News Firebase API root.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

const (
	defaultTimeout   = 8 * time.Second
	defaultRetries   = 3
	defaultUserAgent = "hnpulse/1.0"
)

// ItemURL returns the endpoint for a single item.
func ItemURL(base string, id int) string {
	return fmt.Sprintf("%s/item/%d.json", base, id)
}

// BestStoriesURL returns the endpoint for the score-ordered best story ids.
func BestStoriesURL(base string) string {
	return base + "/beststories.json"
}

// Options configures a Client. Zero values fall back to the defaults
// above.
type Options struct {
	// Timeout bounds a single attempt, not the whole call.
	Timeout time.Duration
	// Retries is the number of re-attempts after the first try.
	Retries   int
	UserAgent string
}

// Client issues GETs against the upstream with a per-attempt timeout,
// exponential-backoff retry on transient failures, and a shared circuit
// breaker. Policy order, outermost first: retry, breaker, timeout.
type Client struct {
	http      *http.Client
	breaker   *Breaker
	timeout   time.Duration
	retries   int
	userAgent string

	// backoffBase scales the retry sleeps (base<<attempt). Shortened in
	// tests.
	backoffBase time.Duration
}

// NewClient creates a client sharing the given breaker.
func NewClient(breaker *Breaker, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	} else if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		http:        &http.Client{},
		breaker:     breaker,
		timeout:     opts.Timeout,
		retries:     opts.Retries,
		userAgent:   opts.UserAgent,
		backoffBase: time.Second,
	}
}

// Fetch retrieves url and returns the raw response body. Transient
// failures are retried with 2s/4s/8s backoff; a breaker refusal or a
// permanent failure returns immediately.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoffBase<<attempt); err != nil {
				return nil, err
			}
		}

		body, err := c.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		if !transient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// attempt runs one breaker-admitted, timeout-bounded request and reports
// its outcome to the breaker.
func (c *Client) attempt(ctx context.Context, url string) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("fetching %s: %w", url, ErrCircuitOpen)
	}

	body, err := c.roundTrip(ctx, url)
	switch {
	case err == nil:
		c.breaker.Success()
	case ctx.Err() != nil:
		c.breaker.Cancel()
	case transient(err):
		c.breaker.Failure()
	default:
		// A non-transient response still proves the upstream is
		// reachable.
		c.breaker.Success()
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, url string) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if actx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("fetching %s: %w", url, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
