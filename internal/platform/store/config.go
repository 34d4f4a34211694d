package store

import (
	"time"

	"scorekeeper/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int
	PingTimeout    time.Duration
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string

	// ClientTag and Role are reported to clickhouse as client info
	ClientTag string
	Role      string
}

// FromConfig reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* under root
// clickhouse stays disabled unless its DBURL is set
func FromConfig(root config.Conf, role string) Config {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	chURL := chCfg.MayString("DBURL", "")
	return Config{
		AppName: "scorekeeper-" + role,
		PG: PGConfig{
			Enabled:        true,
			URL:            pgCfg.MustString("DBURL"),
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:   chCfg.MayBool("ENABLED", chURL != ""),
			URL:       chURL,
			ClientTag: chCfg.MayString("CLIENT_TAG", "dev"),
			Role:      role,
		},
	}
}
