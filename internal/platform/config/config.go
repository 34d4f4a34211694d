// Package config reads settings from environment variables under a namespace prefix
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"scorekeeper/internal/platform/logger"
	pstrings "scorekeeper/internal/platform/strings"
)

// Conf is a namespaced view over the environment, e.g. Prefix("SYNC_")
type Conf struct {
	prefix string
	env    map[string]string
}

// New creates a root Conf over the process environment
func New() Conf { return Conf{} }

// FromMap creates a root Conf over a fixed map instead of the environment
func FromMap(env map[string]string) Conf { return Conf{env: env} }

// Prefix creates a child Conf with an additional prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, env: c.env} }

func (c Conf) lookup(key string) (string, string) {
	k := c.prefix + key
	if c.env != nil {
		return k, strings.TrimSpace(c.env[k])
	}
	return k, strings.TrimSpace(os.Getenv(k))
}

// MustString panics if key is missing or blank
func (c Conf) MustString(key string) string {
	k, v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", k).Msg("missing required env")
	}
	return v
}

// MayString returns the value or def when missing
func (c Conf) MayString(key, def string) string {
	if _, v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// may parses a present value, logging and falling back to def when it does not parse
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	k, s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", k).Str("value", s).Interface("default", def).Msg("invalid value; using default")
		return def
	}
	return v
}

// MayInt returns the int value or def
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayBool returns the bool value or def
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration returns the duration value or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV splits a comma separated value, dropping blanks; def when nothing remains
func (c Conf) MayCSV(key string, def []string) []string {
	_, s := c.lookup(key)
	return pstrings.IfEmpty(pstrings.SplitCSV(s), def)
}
