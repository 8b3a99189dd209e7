package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, ":memory:", cfg.SQLitePath)
	assert.Equal(t, "Cyberpunk Robot Basketball", cfg.Theme)
	assert.Equal(t, "15:00", cfg.QuarterLength)
	assert.Equal(t, int64(1000), cfg.StartingBalance)
	assert.Equal(t, 5*time.Second, cfg.ReplayPollEvery)
	assert.Equal(t, 60, cfg.ReplayMaxPolls)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadReplayPollEvery(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("REPLAY_POLL_EVERY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.ReplayPollEvery)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("REPLAY_POLL_EVERY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.ReplayPollEvery)
}
