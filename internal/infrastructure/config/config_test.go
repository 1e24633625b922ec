package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, StoreMongo, cfg.RefreshStore)
	require.Equal(t, StoreMemory, cfg.RateLimitStore)
	require.Equal(t, "hikari-app", cfg.JWT.Issuer)
	require.Equal(t, "hikari-users", cfg.JWT.Audience)
	require.Equal(t, 15*time.Minute, cfg.JWT.Expiration)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	require.Equal(t, 0.5, cfg.Captcha.MinScore)
	require.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":                           "production",
		"REFRESH_STORE":                 "postgres",
		"POSTGRES_DSN":                  "postgres://auth@localhost/auth",
		"RATE_LIMIT_STORE":              "redis",
		"JWT_EXPIRATION":                "5m",
		"REFRESH_TOKEN_EXPIRATION_DAYS": "30",
		"RECAPTCHA_ENABLED":             "true",
		"AUDIT_WORKERS":                 "8",
	}))
	require.NoError(t, err)

	require.True(t, cfg.IsProduction())
	require.Equal(t, StorePostgres, cfg.RefreshStore)
	require.Equal(t, 5*time.Minute, cfg.JWT.Expiration)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL())
	require.True(t, cfg.Captcha.Enabled)
	require.Equal(t, 8, cfg.AuditWorkers)
}

func TestLoad_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"REFRESH_STORE": "cassandra"},
		{"REFRESH_STORE": "postgres"},
		{"RATE_LIMIT_STORE": "memcached"},
		{"REFRESH_TOKEN_EXPIRATION_DAYS": "0"},
	} {
		_, err := load(context.Background(), envconfig.MapLookuper(env))
		require.Error(t, err, "env %v", env)
	}
}
