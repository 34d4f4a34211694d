package module

import (
	"time"

	"scorekeeper/internal/platform/config"
)

// Options holds configuration for the scoring module
type Options struct {
	Timezone  string
	RulesFile string
	SkipBots  bool
	TxRetries int
	RetryBase time.Duration
}

// FromConfig reads CORE_SCORING_* plus the shared CORE_SYNC_TX_RETRIES
func FromConfig(cfg config.Conf) Options {
	sc := cfg.Prefix("CORE_SCORING_")
	sy := cfg.Prefix("CORE_SYNC_")
	return Options{
		Timezone:  sc.MayString("TIMEZONE", "UTC"),
		RulesFile: sc.MayString("RULES_FILE", ""),
		SkipBots:  sc.MayBool("SKIP_BOTS", true),
		TxRetries: sy.MayInt("TX_RETRIES", 3),
		RetryBase: sy.MayDuration("TX_RETRY_BASE", 50*time.Millisecond),
	}
}
