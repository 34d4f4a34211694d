package rules

import (
	"strings"
	"time"

	perr "scorekeeper/internal/platform/errors"
	ptime "scorekeeper/internal/platform/time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of rule override env vars
// SCOREKEEPER_RULES_POINTS__BUG=60 maps to points.bug
const EnvPrefix = "SCOREKEEPER_RULES_"

// Overrides are the tunable parts of the rule set
type Overrides struct {
	Points      PointValues  `koanf:"points"`
	Multipliers []Multiplier `koanf:"multipliers"`
}

// DefaultOverrides returns the compiled in values
func DefaultOverrides() Overrides {
	return Overrides{Points: DefaultPointValues(), Multipliers: DefaultMultipliers()}
}

// LoadOverrides layers an optional YAML file and env vars over the defaults
func LoadOverrides(path string) (Overrides, error) {
	out := DefaultOverrides()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return out, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "rules: load %s", path)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return out, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "rules: load env")
	}

	// a configured tier list replaces the defaults instead of merging by index
	if k.Exists("multipliers") {
		out.Multipliers = nil
	}
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return out, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "rules: decode overrides")
	}
	for _, m := range out.Multipliers {
		if m.MinDays <= 0 || m.Factor < 1 {
			return out, perr.Newf(perr.ErrorCodeInvalidArgument, "rules: bad multiplier tier %d/%v", m.MinDays, m.Factor)
		}
	}
	return out, nil
}

// Engine bundles the tables the projector consults
type Engine struct {
	Table      *Table
	Scorer     Scorer
	Milestones []Milestone
	Location   *time.Location
	SkipBots   bool
}

// Option configures an Engine
type Option func(*Engine)

// WithOverrides replaces point values and streak tiers
func WithOverrides(o Overrides) Option {
	return func(e *Engine) { e.Scorer = NewScorer(o.Points, o.Multipliers) }
}

// WithTimezone sets the zone streak days are computed in
func WithTimezone(name string) Option {
	return func(e *Engine) { e.Location = ptime.LoadLocation(name) }
}

// WithSkipBots toggles excluding bot accounts from unlocks and bills
func WithSkipBots(skip bool) Option {
	return func(e *Engine) { e.SkipBots = skip }
}

// WithTable swaps the threshold table
func WithTable(t *Table) Option {
	return func(e *Engine) { e.Table = t }
}

// NewEngine returns an engine with the built in tables
func NewEngine(opts ...Option) *Engine {
	o := DefaultOverrides()
	e := &Engine{
		Table:      MustTable(DefaultThresholds()),
		Scorer:     NewScorer(o.Points, o.Multipliers),
		Milestones: DefaultMilestones(),
		Location:   time.UTC,
		SkipBots:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rewarded reports whether login may earn unlocks and bills
func (e *Engine) Rewarded(login string) bool {
	return !(e.SkipBots && IsBot(login))
}

// IsBot reports whether login belongs to an app account
func IsBot(login string) bool {
	return strings.HasSuffix(strings.ToLower(login), "[bot]")
}
