package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL",
		"CHAT_RESPONSE_DELAY", "CHAT_RESET_TEXT", "CHAT_PREVIEW_LIMIT",
		"CHAT_SEND_RPS", "CHAT_SEND_BURST", "CHAT_EVENT_BUFFER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "dev", cfg.Log.Env)
	assert.True(t, cfg.Log.Dev())
	assert.Equal(t, 1500*time.Millisecond, cfg.Chat.ResponseDelay)
	assert.Equal(t, 30, cfg.Chat.PreviewLimit)
	assert.Equal(t, 2.0, cfg.Chat.SendRPS)
	assert.Equal(t, 5, cfg.Chat.SendBurst)
	assert.Equal(t, 64, cfg.Chat.EventBuffer)
	assert.Empty(t, cfg.Chat.ResetText)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CHAT_RESPONSE_DELAY", "250ms")
	t.Setenv("CHAT_RESET_TEXT", "Chat cleared")
	t.Setenv("CHAT_PREVIEW_LIMIT", "40")
	t.Setenv("CHAT_SEND_RPS", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.False(t, cfg.Log.Dev())
	assert.Equal(t, 250*time.Millisecond, cfg.Chat.ResponseDelay)
	assert.Equal(t, "Chat cleared", cfg.Chat.ResetText)
	assert.Equal(t, 40, cfg.Chat.PreviewLimit)
	assert.Equal(t, 0.5, cfg.Chat.SendRPS)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                "80 80",
		"CHAT_RESPONSE_DELAY": "soon",
		"CHAT_PREVIEW_LIMIT":  "0",
		"CHAT_SEND_BURST":     "many",
		"CHAT_SEND_RPS":       "fast",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
