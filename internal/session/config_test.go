package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "prologue", cfg.DefaultScenario)
	assert.Equal(t, 2*time.Second, cfg.AutoDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.SkipDelay)
	assert.Equal(t, 30*time.Millisecond, cfg.TextSpeed)
	assert.Equal(t, 20, cfg.MaxSaveSlots)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAGAMI_DEFAULT_SCENARIO", "chapter3")
	t.Setenv("KAGAMI_AUTO_DELAY", "1500ms")
	t.Setenv("KAGAMI_MAX_SAVE_SLOTS", "8")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, "chapter3", cfg.DefaultScenario)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutoDelay)
	assert.Equal(t, 8, cfg.MaxSaveSlots)
	// Untouched fields keep their defaults.
	assert.Equal(t, 200*time.Millisecond, cfg.SkipDelay)
}

func TestLoadConfigFromEnv_FallsBackOnParseFailure(t *testing.T) {
	t.Setenv("KAGAMI_AUTO_DELAY", "soon")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "off", PolicyOff.String())
	assert.Equal(t, "auto", PolicyAuto.String())
	assert.Equal(t, "skip", PolicySkip.String())
}

func TestPolicy_Delay(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Duration(0), PolicyOff.delay(cfg))
	assert.Equal(t, cfg.AutoDelay, PolicyAuto.delay(cfg))
	assert.Equal(t, cfg.SkipDelay, PolicySkip.delay(cfg))
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7Generator_UniqueTokens(t *testing.T) {
	gen := UUIDv7Generator{}
	assert.NotEqual(t, gen.Generate(), gen.Generate())
}
