// Package github provides a resilient GitHub REST v3 client for the sync engine
package github

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/platform/logger"
	pstrings "scorekeeper/internal/platform/strings"
)

const (
	baseURLDefault   = "https://api.github.com"
	defaultTimeout   = 10 * time.Second
	defaultUA        = "scorekeeper-sync"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
	maxBackoff       = 30 * time.Second
)

// Observer receives one call per HTTP response class
// metrics.Manager satisfies it
type Observer interface {
	GitHubRequest(class string)
}

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Owner and Repo name the repository every endpoint targets
	Owner string
	Repo  string

	// Comma separated tokens passed in from CLI or config
	// Empty means tokenless which is very low quota so not recommended
	TokensCSV string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	Observer Observer
}

// Client is a minimal GitHub REST client with token rotation and ETag support
type Client struct {
	http   *http.Client
	opts   Options
	tokens []string
	cur    atomic.Int32
	log    logger.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error

	// last rate headers seen on any response
	lastRate atomic.Pointer[RateLimit]
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:   &http.Client{Timeout: o.Timeout},
		opts:   o,
		tokens: pstrings.SplitCSV(o.TokensCSV),
		log:    *logger.Named("github"),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Repository returns owner/repo
func (c *Client) Repository() string { return c.opts.Owner + "/" + c.opts.Repo }

// LastRate returns the rate headers of the most recent response
func (c *Client) LastRate() (RateLimit, bool) {
	p := c.lastRate.Load()
	if p == nil {
		return RateLimit{}, false
	}
	return *p, true
}

// getToken returns the next token in a round robin rotation
func (c *Client) getToken() string {
	n := int(c.cur.Add(1))
	if len(c.tokens) == 0 {
		return ""
	}
	return c.tokens[n%len(c.tokens)]
}

func (c *Client) observe(class string) {
	if c.opts.Observer != nil {
		c.opts.Observer.GitHubRequest(class)
	}
}

// Do issues one logical request with auth, conditional ETag, retries and quota handling
// 2xx and 304 return the response, anything else a perr wrapping *StatusError
func (c *Client) Do(ctx context.Context, method, path string, etag string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := c.send(ctx, method, path, etag, attempt)
		var r *retry
		if !errors.As(err, &r) {
			return resp, err
		}
		if attempt >= c.opts.MaxRetries {
			return nil, r.err
		}
		c.log.Warn().Err(r.err).Str("path", path).Int("attempt", attempt).Dur("retry_in", r.wait).Msg("github retrying")
		if err := c.sleep(ctx, r.wait); err != nil {
			return nil, err
		}
	}
}

// retry marks a failed attempt worth repeating after wait
type retry struct {
	wait time.Duration
	err  error
}

func (r *retry) Error() string { return r.err.Error() }
func (r *retry) Unwrap() error { return r.err }

func (c *Client) send(ctx context.Context, method, path, etag string, attempt int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "github build request %s", path)
	}
	h := req.Header
	h.Set("User-Agent", c.opts.UserAgent)
	h.Set("Accept", "application/vnd.github+json")
	h.Set("X-GitHub-Api-Version", "2022-11-28")
	if etag != "" {
		h.Set("If-None-Match", etag)
	}
	if tok := c.getToken(); tok != "" {
		h.Set("Authorization", "token "+tok)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("transport_error")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retry{wait: c.backoff(attempt), err: perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s failed", path)}
	}

	q := readQuota(resp.Header)
	if q.present {
		c.lastRate.Store(&RateLimit{Limit: q.limit, Remaining: q.remaining, Reset: q.reset})
	}
	c.log.Debug().
		Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Int("attempt", attempt).
		Dur("latency", c.now().Sub(start)).
		Int("rate_remaining", q.remaining).
		Msg("github response")

	code := resp.StatusCode
	switch {
	case code/100 == 2 || code == http.StatusNotModified:
		c.observe("2xx")
		return resp, nil
	case code == http.StatusTooManyRequests || (code == http.StatusForbidden && q.exhausted()):
		c.observe("rate_limited")
		discard(resp.Body)
		wait := q.wait(c.now())
		if wait <= 0 {
			wait = c.backoff(attempt)
		}
		return nil, &retry{wait: wait, err: perr.Wrapf(&StatusError{Status: code}, perr.ErrorCodeTooManyRequests, "github rate limited")}
	case code >= 500:
		c.observe("5xx")
		discard(resp.Body)
		return nil, &retry{wait: c.backoff(attempt), err: perr.Wrapf(&StatusError{Status: code}, perr.ErrorCodeUnavailable, "github server error %d", code)}
	}

	c.observe("4xx")
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	_ = resp.Body.Close()
	se := &StatusError{Status: code, Body: string(body)}
	return nil, perr.Wrapf(se, clientCodes[code], "github %s %s", path, http.StatusText(code))
}

// clientCodes maps 4xx replies to error codes, unknown statuses map to ErrorCodeUnknown
var clientCodes = map[int]perr.ErrorCode{
	http.StatusNotFound:     perr.ErrorCodeNotFound,
	http.StatusUnauthorized: perr.ErrorCodeUnauthorized,
	http.StatusForbidden:    perr.ErrorCodeForbidden,
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
