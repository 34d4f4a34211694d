package store

import (
	"context"

	"scorekeeper/internal/platform/store/ch"
)

func openCH(ctx context.Context, cfg Config) (Clickhouse, error) {
	c, err := ch.Open(ctx, ch.Config{URL: cfg.CH.URL, Role: cfg.CH.Role, Tag: cfg.CH.ClientTag})
	if err != nil {
		return nil, err
	}
	return c, nil
}
