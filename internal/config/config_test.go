package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Chat.FlushInterval)
	assert.Equal(t, "chat:messages:", cfg.Chat.CacheKeyPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CHAT_FLUSH_INTERVAL", "250ms")
	t.Setenv("CHAT_CACHE_PREFIX", "buffer:room:")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Chat.FlushInterval)
	assert.Equal(t, "buffer:room:", cfg.Chat.CacheKeyPrefix)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("CHAT_FLUSH_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Chat.FlushInterval)
}
