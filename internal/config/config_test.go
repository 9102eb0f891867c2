package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "SESSION_SECRET", "GEMINI_MAX_ATTEMPTS", "TOON_ENABLED", "TYPING_RATE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":3000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []byte(defaultSessionSecret), cfg.Session.Secret)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.Chat.Timezone)
	assert.Zero(t, cfg.Chat.TypingRate)
	assert.Equal(t, 3, cfg.Gemini.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Gemini.InitialBackoff)
	assert.True(t, cfg.TOON.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("DATABASE_DRIVER", "Memory")
	t.Setenv("SESSION_SECURE", "true")
	t.Setenv("GEMINI_MAX_ATTEMPTS", "5")
	t.Setenv("GEMINI_ATTEMPT_TIMEOUT", "2s")
	t.Setenv("TYPING_RATE", "2.5")
	t.Setenv("TOON_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, 5, cfg.Gemini.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Gemini.AttemptTimeout)
	assert.Equal(t, 2.5, cfg.Chat.TypingRate)
	assert.False(t, cfg.TOON.Enabled)
}

func TestNormalizePort(t *testing.T) {
	assert.Equal(t, ":3000", normalizePort("3000"))
	assert.Equal(t, ":8080", normalizePort(":8080"))
	assert.Equal(t, "127.0.0.1:8080", normalizePort("127.0.0.1:8080"))
}
