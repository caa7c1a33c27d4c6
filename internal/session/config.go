package session

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds session pacing and startup settings.
type Config struct {
	// DefaultScenario is loaded when Start is given no scenario id.
	DefaultScenario string `env:"KAGAMI_DEFAULT_SCENARIO" envDefault:"prologue"`

	// AutoDelay is the pause between auto-play progress steps.
	AutoDelay time.Duration `env:"KAGAMI_AUTO_DELAY" envDefault:"2s"`

	// SkipDelay is the fast fixed pause between skip-mode progress steps.
	SkipDelay time.Duration `env:"KAGAMI_SKIP_DELAY" envDefault:"200ms"`

	// TextSpeed is the typing-effect pace per character. The engine never
	// consumes this; it is surfaced to the rendering layer through the
	// session so all pacing config lives in one place.
	TextSpeed time.Duration `env:"KAGAMI_TEXT_SPEED" envDefault:"30ms"`

	// MaxSaveSlots is the soft cap on numbered save slots offered by
	// save/load menus. Not enforced by the persistence gateway.
	MaxSaveSlots int `env:"KAGAMI_MAX_SAVE_SLOTS" envDefault:"20"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DefaultScenario: "prologue",
		AutoDelay:       2 * time.Second,
		SkipDelay:       200 * time.Millisecond,
		TextSpeed:       30 * time.Millisecond,
		MaxSaveSlots:    20,
	}
}

// LoadConfigFromEnv loads session configuration from KAGAMI_* environment
// variables, falling back to defaults on parse failure.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("invalid session environment, using defaults", "error", err)
		return DefaultConfig()
	}
	return cfg
}
