package config_test

import (
	"testing"
	"time"

	"github.com/dom/speed-dating/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 24, cfg.JWTExpirationHours)
	assert.Equal(t, 5*time.Second, cfg.PersistTimeout)
	assert.Equal(t, 256, cfg.HistoryQueue)
	assert.Equal(t, float64(20), cfg.WSEventsPerSecond)
	assert.Equal(t, 40, cfg.WSEventBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("PERSIST_TIMEOUT_SECONDS", "2")
	t.Setenv("WS_EVENTS_PER_SECOND", "2.5")
	t.Setenv("HISTORY_QUEUE_SIZE", "not-a-number")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, 2*time.Second, cfg.PersistTimeout)
	assert.Equal(t, 2.5, cfg.WSEventsPerSecond)
	assert.Equal(t, 256, cfg.HistoryQueue, "malformed numbers fall back to the default")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
