package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knolvocab/internal/srs"
)

// EnvPrefix is the prefix of environment variables read by Load. Nested keys
// are separated by a double underscore, e.g. KNOLVOCAB_SRS__MAX_EASE.
const EnvPrefix = "KNOLVOCAB_"

// Config is the runtime configuration of knolvocab.
type Config struct {
	DB        string          `koanf:"db" validate:"required"`
	ReposDir  string          `koanf:"repos_dir" validate:"required"`
	Log       LogConfig       `koanf:"log"`
	SRS       SRSConfig       `koanf:"srs"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type SRSConfig struct {
	InitialEase       float64       `koanf:"initial_ease" validate:"gt=0"`
	MinEase           float64       `koanf:"min_ease" validate:"gt=0"`
	MaxEase           float64       `koanf:"max_ease" validate:"gtefield=MinEase"`
	MaxIntervalDays   int           `koanf:"max_interval_days" validate:"gte=1"`
	MinReviewInterval time.Duration `koanf:"min_review_interval" validate:"gte=0"`
}

type SchedulerConfig struct {
	NewCardsPerDay int  `koanf:"new_cards_per_day" validate:"gte=0"`
	LoopMode       bool `koanf:"loop_mode"`
	RecentWindow   int  `koanf:"recent_window" validate:"gte=0"`
}

// Params returns the SM-2 parameters described by the configuration.
func (c SRSConfig) Params() srs.Params {
	return srs.Params{
		InitialEase:       c.InitialEase,
		MinEase:           c.MinEase,
		MaxEase:           c.MaxEase,
		MaxIntervalDays:   c.MaxIntervalDays,
		MinReviewInterval: c.MinReviewInterval,
	}
}

// SlogLevel converts the configured level name.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewFlagSet returns the flags understood by Load. Flag defaults double as
// the configuration defaults.
func NewFlagSet(name string) *pflag.FlagSet {
	d := srs.DefaultParams()
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.String("config", "", "Path to a YAML configuration file")
	f.String("db", "knolvocab.db", "Path to the SQLite database file")
	f.String("repos-dir", "repos", "Directory git deck sources are cloned into")
	f.String("log.level", "info", "Log level (debug, info, warn, error)")
	f.Float64("srs.initial-ease", d.InitialEase, "Ease factor of a card that has never been reviewed")
	f.Float64("srs.min-ease", d.MinEase, "Lower bound of the ease factor")
	f.Float64("srs.max-ease", d.MaxEase, "Upper bound of the ease factor")
	f.Int("srs.max-interval-days", d.MaxIntervalDays, "Upper bound of the review interval in days")
	f.Duration("srs.min-review-interval", d.MinReviewInterval, "Reviews closer together than this only consolidate")
	f.Int("scheduler.new-cards-per-day", 20, "Number of new cards introduced per day")
	f.Bool("scheduler.loop-mode", false, "Keep presenting reviewed cards when nothing is due")
	f.Int("scheduler.recent-window", 5, "Number of recently shown cards penalised by the scheduler")
	return f
}

// Load parses args and merges, in increasing precedence, the flag defaults,
// the YAML file named by --config, KNOLVOCAB_ environment variables and the
// flags that were set explicitly. It returns the validated configuration and
// the remaining positional arguments.
func Load(args []string) (*Config, []string, error) {
	f := NewFlagSet("knolvocab")
	if err := f.Parse(args); err != nil {
		return nil, nil, err
	}

	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Unchanged flags only fill keys that are still missing.
	err = k.Load(posflag.ProviderWithValue(f, ".", k, func(key, value string) (string, interface{}) {
		if key == "config" {
			return "", nil
		}
		return strings.ReplaceAll(key, "-", "_"), value
	}), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, f.Args(), nil
}

// Validate checks the struct constraints and the SM-2 parameter bounds.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %s", verrs.Error())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.SRS.Params().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
