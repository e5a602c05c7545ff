package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/grocerycompare/price-service/internal/http/ratelimit"
	"github.com/grocerycompare/price-service/internal/middleware"
)

// Config holds the application configuration
type Config struct {
	Server       ServerConfig                 `mapstructure:"server"`
	Database     DatabaseConfig               `mapstructure:"database"`
	Redis        RedisConfig                  `mapstructure:"redis"`
	Auth         AuthConfig                   `mapstructure:"auth"`
	Access       AccessConfig                 `mapstructure:"access"`
	ExchangeRate ExchangeRateConfig           `mapstructure:"exchange_rate"`
	HTTPClient   ratelimit.Config             `mapstructure:"http_client"`
	RateLimit    middleware.RateLimiterConfig `mapstructure:"rate_limit"`
	Cleanup      CleanupConfig                `mapstructure:"cleanup"`
	Logging      LoggingConfig                `mapstructure:"logging"`
	Telemetry    TelemetryConfig              `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// RedisConfig holds the optional Redis connection
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds session and administrator settings
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	AdminEmail string        `mapstructure:"admin_email"`
}

// AccessConfig tunes the access request workflow
type AccessConfig struct {
	EagerTempUsers bool `mapstructure:"eager_temp_users"`
}

// ExchangeRateConfig holds the SEK to DKK rate source settings
type ExchangeRateConfig struct {
	URL             string        `mapstructure:"url"`
	TTL             time.Duration `mapstructure:"ttl"`
	Cache           string        `mapstructure:"cache"` // postgres or redis
	RedisKey        string        `mapstructure:"redis_key"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 disables the background refresh
	Timeout         time.Duration `mapstructure:"timeout"`
}

// CleanupConfig holds background cleanup settings
type CleanupConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry export settings
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

const (
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	// Enable environment variable override
	v.SetEnvPrefix("PRICE_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind env keys for nested config
	bindEnvVars(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate checks the settings the API server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (DATABASE_URL) is required"))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET) must be at least 32 characters"))
	}
	if c.Cleanup.Enabled && c.Cleanup.Interval <= 0 {
		errs = append(errs, errors.New("cleanup.interval must be positive when cleanup is enabled"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("auth.session_ttl must be positive"))
	}
	switch c.ExchangeRate.Cache {
	case CachePostgres:
	case CacheRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr (REDIS_ADDR) is required for the redis exchange rate cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("exchange_rate.cache must be %q or %q, got %q", CachePostgres, CacheRedis, c.ExchangeRate.Cache))
	}
	return errors.Join(errs...)
}

// loadEnvFile loads the first .env file found in the usual locations.
// Variables already set in the environment win.
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			return godotenv.Load(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// bindEnvVars binds the conventional unprefixed variables to config keys
func bindEnvVars(v *viper.Viper) {
	bindings := map[string][]string{
		"database.url":        {"PRICE_SERVICE_DATABASE_URL", "DATABASE_URL"},
		"server.port":         {"PRICE_SERVICE_SERVER_PORT", "PORT"},
		"server.host":         {"PRICE_SERVICE_SERVER_HOST", "HOST"},
		"logging.level":       {"PRICE_SERVICE_LOGGING_LEVEL", "LOG_LEVEL"},
		"redis.addr":          {"PRICE_SERVICE_REDIS_ADDR", "REDIS_ADDR"},
		"redis.password":      {"PRICE_SERVICE_REDIS_PASSWORD", "REDIS_PASSWORD"},
		"auth.jwt_secret":     {"PRICE_SERVICE_AUTH_JWT_SECRET", "JWT_SECRET"},
		"auth.admin_email":    {"PRICE_SERVICE_AUTH_ADMIN_EMAIL", "ADMIN_EMAIL"},
		"exchange_rate.url":   {"PRICE_SERVICE_EXCHANGE_RATE_URL", "EXCHANGE_RATE_URL"},
		"exchange_rate.cache": {"PRICE_SERVICE_EXCHANGE_RATE_CACHE", "EXCHANGE_RATE_CACHE"},
		"telemetry.endpoint":  {"PRICE_SERVICE_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"},
	}
	for key, envs := range bindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.migrate_on_start", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("access.eager_temp_users", true)

	v.SetDefault("exchange_rate.url", "https://open.er-api.com/v6/latest/SEK")
	v.SetDefault("exchange_rate.ttl", 4*time.Hour)
	v.SetDefault("exchange_rate.cache", CachePostgres)
	v.SetDefault("exchange_rate.redis_key", "grocery:exchangeRate")
	v.SetDefault("exchange_rate.refresh_interval", 1*time.Hour)
	v.SetDefault("exchange_rate.timeout", 10*time.Second)

	// Outbound HTTP defaults
	v.SetDefault("http_client.requests_per_second", 2)
	v.SetDefault("http_client.max_retries", 3)
	v.SetDefault("http_client.initial_backoff_ms", 100)
	v.SetDefault("http_client.max_backoff_ms", 30000)

	// Inbound rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.idle_timeout", 10*time.Minute)

	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.interval", 1*time.Hour)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "price-service")
	v.SetDefault("telemetry.environment", "production")
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
