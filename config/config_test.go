package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database:     DatabaseConfig{URL: "postgres://localhost/grocery"},
		Auth:         AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef", SessionTTL: time.Hour},
		ExchangeRate: ExchangeRateConfig{Cache: CachePostgres},
	}
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 4*time.Hour, cfg.ExchangeRate.TTL)
	assert.Equal(t, CachePostgres, cfg.ExchangeRate.Cache)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 3, cfg.HTTPClient.MaxRetries)
	assert.Equal(t, float64(10), cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.Access.EagerTempUsers)
	assert.Same(t, cfg, Get())
}

func TestLoadEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://db/grocery")
	t.Setenv("PORT", "8080")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("PRICE_SERVICE_EXCHANGE_RATE_TTL", "30m")
	t.Setenv("PRICE_SERVICE_ACCESS_EAGER_TEMP_USERS", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/grocery", cfg.Database.URL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "admin@example.com", cfg.Auth.AdminEmail)
	assert.Equal(t, 30*time.Minute, cfg.ExchangeRate.TTL)
	assert.False(t, cfg.Access.EagerTempUsers)
	assert.Equal(t, "postgres://db/grocery", GetDatabaseURL())
}

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := "server:\n  port: 9090\nexchange_rate:\n  cache: redis\nredis:\n  addr: localhost:6379\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	dotenv := `# local overrides
export JWT_SECRET="from-dotenv'quoted"
ADMIN_EMAIL=admin@example.dk # the reviewer
DATABASE_URL=postgres://dotenv/grocery
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))
	unsetEnv(t, "JWT_SECRET")
	unsetEnv(t, "ADMIN_EMAIL")
	t.Setenv("DATABASE_URL", "postgres://env/grocery")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, CacheRedis, cfg.ExchangeRate.Cache)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "from-dotenv'quoted", cfg.Auth.JWTSecret)
	assert.Equal(t, "admin@example.dk", cfg.Auth.AdminEmail)
	assert.Equal(t, "postgres://env/grocery", cfg.Database.URL, "environment wins over .env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no database", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"no ttl", func(c *Config) { c.Auth.SessionTTL = 0 }, "session_ttl"},
		{"zero cleanup interval", func(c *Config) { c.Cleanup = CleanupConfig{Enabled: true} }, "cleanup.interval"},
		{"cleanup disabled without interval", func(c *Config) { c.Cleanup = CleanupConfig{Enabled: false} }, ""},
		{"unknown cache", func(c *Config) { c.ExchangeRate.Cache = "memcached" }, "exchange_rate.cache"},
		{"redis without addr", func(c *Config) { c.ExchangeRate.Cache = CacheRedis }, "redis.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
