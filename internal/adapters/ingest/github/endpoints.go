package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	perr "scorekeeper/internal/platform/errors"
)

// maxBody bounds how much of a response body is decoded
const maxBody = 8 << 20

// getJSON issues a GET and decodes the body into out
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, "")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("github close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "github read %s", path)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "github decode %s", path)
	}
	return nil
}

func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s%s", url.PathEscape(c.opts.Owner), url.PathEscape(c.opts.Repo), suffix)
}

// ListClosedPulls returns one page of closed pulls, most recently updated first
func (c *Client) ListClosedPulls(ctx context.Context, page, perPage int) ([]PullRequest, error) {
	q := url.Values{}
	q.Set("state", "closed")
	q.Set("sort", "updated")
	q.Set("direction", "desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))

	var out []PullRequest
	if err := c.getJSON(ctx, c.repoPath("/pulls?"+q.Encode()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPull fetches one pull by number
func (c *Client) GetPull(ctx context.Context, number int) (PullRequest, error) {
	var out PullRequest
	err := c.getJSON(ctx, c.repoPath(fmt.Sprintf("/pulls/%d", number)), &out)
	return out, err
}

// ListReviews returns every review on a pull, following pages until a short one
func (c *Client) ListReviews(ctx context.Context, number int) ([]Review, error) {
	const per = 100
	var all []Review
	for page := 1; ; page++ {
		var batch []Review
		p := c.repoPath(fmt.Sprintf("/pulls/%d/reviews?per_page=%d&page=%d", number, per, page))
		if err := c.getJSON(ctx, p, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < per {
			return all, nil
		}
	}
}

// RateLimit queries the core quota, this call does not count against it
func (c *Client) RateLimit(ctx context.Context) (RateLimit, error) {
	var doc rateLimitDoc
	if err := c.getJSON(ctx, "/rate_limit", &doc); err != nil {
		return RateLimit{}, err
	}
	core := doc.Resources.Core
	return RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     time.Unix(core.Reset, 0).UTC(),
	}, nil
}
