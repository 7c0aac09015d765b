// Package config loads process settings from the environment and the campaign
// script from TOML
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lixenwraith/mega-knights/parameter"
)

// Config is the process configuration
type Config struct {
	// StorePath is the SQLite file; "memory" keeps state in process only
	StorePath   string        `env:"MK_STORE" envDefault:"mega-knights.db"`
	ContentPath string        `env:"MK_CONTENT"`
	Debug       bool          `env:"MK_DEBUG"`
	LogDir      string        `env:"MK_LOG_DIR" envDefault:"logs"`
	Step        time.Duration `env:"MK_STEP" envDefault:"50ms"`
	MaxOps      int           `env:"MK_MAX_OPS" envDefault:"6"`
	Audio       bool          `env:"MK_AUDIO" envDefault:"true"`
	Console     bool          `env:"MK_CONSOLE" envDefault:"true"`

	// Sandbox roster for the standalone binary
	Players []string `env:"MK_PLAYERS" envSeparator:"," envDefault:"steve,alex"`

	// StartDay jumps the clock on launch when non-negative
	StartDay int  `env:"MK_START_DAY" envDefault:"-1"`
	Endless  bool `env:"MK_ENDLESS"`
}

// ParseEnv loads configuration from environment variables
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates Config
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Step <= 0 {
		cfg.Step = parameter.StepInterval
	}
	if cfg.MaxOps <= 0 {
		cfg.MaxOps = parameter.DefaultMaxOpsPerStep
	}
	return cfg, nil
}

// InMemory reports whether state should not be persisted to disk
func (c Config) InMemory() bool {
	return c.StorePath == "" || c.StorePath == "memory"
}

// Overrides holds operator capacity overrides; zero fields keep the content value
type Overrides struct {
	Capacity struct {
		Base          int `env:"BASE"`
		MaxBonus      int `env:"MAX_BONUS"`
		GlobalCeiling int `env:"GLOBAL_CEILING"`
	} `envPrefix:"MK_CAP_"`
}

// LoadOverrides parses MK_CAP_* overrides
func LoadOverrides() (Overrides, error) {
	var o Overrides
	return o, ParseEnv(&o)
}

// Apply writes non-zero overrides into content and revalidates it
func (o Overrides) Apply(c *Content) error {
	if o.Capacity.Base > 0 {
		c.Capacity.Base = o.Capacity.Base
	}
	if o.Capacity.MaxBonus > 0 {
		c.Capacity.MaxBonus = o.Capacity.MaxBonus
	}
	if o.Capacity.GlobalCeiling > 0 {
		c.Capacity.GlobalCeiling = o.Capacity.GlobalCeiling
	}
	return c.Validate()
}
