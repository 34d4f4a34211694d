// Package ingest adapts the GitHub client to the sync Source port
package ingest

import (
	"context"

	gh "scorekeeper/internal/adapters/ingest/github"
	"scorekeeper/internal/core/normalize"
	"scorekeeper/internal/services/sync/domain"
)

// GitHub implements domain.Source over a repository scoped client
type GitHub struct{ c *gh.Client }

var _ domain.Source = GitHub{}

// NewGitHub wraps c
func NewGitHub(c *gh.Client) GitHub {
	if c == nil {
		panic("sync.GitHub requires a non nil client")
	}
	return GitHub{c: c}
}

// ListClosed implements domain.Source
func (g GitHub) ListClosed(ctx context.Context, page, perPage int) ([]domain.Item, error) {
	prs, err := g.c.ListClosedPulls(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0, len(prs))
	for _, p := range prs {
		out = append(out, toItem(p))
	}
	return out, nil
}

// Item implements domain.Source
func (g GitHub) Item(ctx context.Context, number int) (domain.Item, error) {
	p, err := g.c.GetPull(ctx, number)
	if err != nil {
		return domain.Item{}, err
	}
	return toItem(p), nil
}

// Reviews implements domain.Source
func (g GitHub) Reviews(ctx context.Context, number int) ([]domain.Review, error) {
	rs, err := g.c.ListReviews(ctx, number)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(rs))
	for _, r := range rs {
		out = append(out, domain.Review{
			ID:          r.ID,
			Author:      r.User.Login,
			State:       r.State,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return out, nil
}

// RateLimit implements domain.Source
func (g GitHub) RateLimit(ctx context.Context) (domain.Budget, error) {
	rl, err := g.c.RateLimit(ctx)
	if err != nil {
		return domain.Budget{}, err
	}
	return domain.Budget{Remaining: rl.Remaining, ResetAt: rl.Reset}, nil
}

func toItem(p gh.PullRequest) domain.Item {
	return domain.Item{
		ID:        p.ID,
		Number:    p.Number,
		Author:    p.User.Login,
		Title:     normalize.Title(p.Title),
		Labels:    p.LabelNames(),
		MergedAt:  p.MergedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
