package service

import (
	"context"
	"iter"

	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/services/sync/domain"
)

// Fetcher walks the closed item listing backward in time
type Fetcher struct {
	src      domain.Source
	pageSize int
	overscan int
	log      logger.Logger
}

// NewFetcher constructs a Fetcher
// overscan is the number of extra pages read after the listing passes the window start
func NewFetcher(src domain.Source, pageSize, overscan int) *Fetcher {
	if src == nil {
		panic("sync.Fetcher requires a non nil Source")
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	if overscan < 0 {
		overscan = 0
	}
	return &Fetcher{src: src, pageSize: pageSize, overscan: overscan, log: *logger.Named("fetcher")}
}

// Items yields merged items inside w, newest first, each id at most once
// gate runs before every page request; a gate or page error is yielded once and ends the sequence
// the sequence is restartable, every range over it starts again at page one
func (f *Fetcher) Items(ctx context.Context, w domain.Window, gate func() error) iter.Seq2[domain.Item, error] {
	return func(yield func(domain.Item, error) bool) {
		seen := make(map[int64]struct{})
		past := -1
		for page := 1; ; page++ {
			if gate != nil {
				if err := gate(); err != nil {
					yield(domain.Item{}, err)
					return
				}
			}
			items, err := f.src.ListClosed(ctx, page, f.pageSize)
			if err != nil {
				yield(domain.Item{}, err)
				return
			}
			if len(items) == 0 {
				return
			}
			for _, it := range items {
				// unmerged items and items without a merge time never count
				if !it.Merged() || !w.Contains(*it.MergedAt) {
					continue
				}
				if _, dup := seen[it.ID]; dup {
					continue
				}
				seen[it.ID] = struct{}{}
				if !yield(it, nil) {
					return
				}
			}
			if len(items) < f.pageSize {
				return
			}
			// merged_at <= updated_at, so a page last updated before the window
			// start holds nothing newer; read a few more pages for ordering slack
			if past < 0 && items[len(items)-1].UpdatedAt.Before(w.Start) {
				past = 0
			}
			if past >= 0 {
				if past >= f.overscan {
					f.log.Debug().Int("page", page).Msg("listing passed window start")
					return
				}
				past++
			}
		}
	}
}
