package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "dev-secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Hour, cfg.Maintenance.StatsCacheTTL)
	assert.Equal(t, "@hourly", cfg.Maintenance.HousekeepingSchedule)
	assert.Equal(t, "info.mptcommunity@gmail.com", cfg.SuperAdminEmail)
	assert.Equal(t, 4, cfg.SMTP.Workers)
	assert.Empty(t, cfg.SMTP.Host)
	assert.False(t, cfg.Auth.CookieSecure)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "dev-secret",
		"TOKEN_TTL":       "24h",
		"COOKIE_SECURE":   "true",
		"AUTH_RATE_LIMIT": "0.5",
		"SMTP_HOST":       "smtp.example.com",
		"SMTP_PORT":       "2525",
	}))
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.InDelta(t, 0.5, cfg.Auth.RateLimit, 1e-9)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestValidateProductionSecret(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "short",
		"ENV":        "production",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateRejectsNonPositive(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":   "dev-secret",
		"MAIL_WORKERS": "0",
		"TOKEN_TTL":    "0s",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAIL_WORKERS")
	assert.Contains(t, err.Error(), "TOKEN_TTL")
}
