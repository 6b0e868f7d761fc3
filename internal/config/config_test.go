package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Same(t, cfg, Get())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/spendly-test.db")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/spendly-test.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7, cfg.RateLimit)
}

func TestLoadFallsBackOnBadDuration(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_REFRESH_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "postgres", cfg: Config{DBDriver: "postgres", JWTSecret: "s"}},
		{name: "sqlite", cfg: Config{DBDriver: "sqlite", JWTSecret: "s"}},
		{name: "unknown_driver", cfg: Config{DBDriver: "mysql"}, wantErr: true},
		{name: "dev_secret_in_production", cfg: Config{Env: "production", DBDriver: "postgres", JWTSecret: devJWTSecret}, wantErr: true},
		{name: "negative_rate_limit", cfg: Config{DBDriver: "postgres", RateLimit: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
