package module

import (
	"time"

	gh "scorekeeper/internal/adapters/ingest/github"
	"scorekeeper/internal/platform/config"
	"scorekeeper/internal/services/sync/service"
)

// Options holds configuration for the sync module
type Options struct {
	GitHub gh.Options
	Sync   service.Config

	Schedule time.Duration
	// DistributedLock shares the run lock with every process on the same database
	DistributedLock bool
	LeaseTTL        time.Duration
}

// FromConfig reads CORE_GITHUB_* and CORE_SYNC_*
func FromConfig(cfg config.Conf) Options {
	g := cfg.Prefix("CORE_GITHUB_")
	s := cfg.Prefix("CORE_SYNC_")
	return Options{
		GitHub: gh.Options{
			BaseURL:    g.MayString("BASE_URL", ""),
			Owner:      g.MayString("OWNER", ""),
			Repo:       g.MayString("REPO", ""),
			TokensCSV:  g.MayString("TOKENS", ""),
			Timeout:    g.MayDuration("TIMEOUT", 15*time.Second),
			MaxRetries: g.MayInt("RETRIES", 5),
			RetryBase:  g.MayDuration("RETRY_BASE", 500*time.Millisecond),
		},
		Sync: service.Config{
			PageSize:            s.MayInt("PAGE_SIZE", 100),
			RateThreshold:       s.MayInt("RATE_THRESHOLD", 100),
			RateBuffer:          s.MayDuration("RATE_BUFFER", 5*time.Second),
			FailBackoff:         s.MayDuration("RATE_FAIL_BACKOFF", 30*time.Second),
			CheckEvery:          s.MayInt("CHECK_EVERY", 10),
			OverscanPages:       s.MayInt("OVERSCAN_PAGES", 1),
			IncrementalLookback: s.MayDuration("WATERMARK_DEFAULT", 90*24*time.Hour),
		},
		Schedule:        s.MayDuration("SCHEDULE", time.Hour),
		DistributedLock: s.MayBool("DISTRIBUTED_LOCK", true),
		LeaseTTL:        s.MayDuration("LEASE_TTL", 10*time.Minute),
	}
}
