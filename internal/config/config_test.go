package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("TOKEN_TTL", "")

	cfg := Load()
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ATTENDANCE_TIMEZONE", "Asia/Kolkata")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone.String())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "one day")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")
	t.Setenv("ATTENDANCE_TIMEZONE", "Mars/Olympus")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.Len(t, cfg.Warnings, 3)
}

func TestLoadRejectsNonPositiveRateLimit(t *testing.T) {
	for _, val := range []string{"0", "-5"} {
		t.Run(val, func(t *testing.T) {
			t.Setenv("RATE_LIMIT_PER_MIN", val)
			t.Setenv("TOKEN_TTL", "")
			t.Setenv("ATTENDANCE_TIMEZONE", "")

			cfg := Load()
			assert.Equal(t, 120, cfg.RateLimitPerMin)
			assert.Len(t, cfg.Warnings, 1)
			assert.Contains(t, cfg.Warnings[0], "RATE_LIMIT_PER_MIN")
		})
	}
}
