// Package app assembles the services shared by the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/grocerycompare/price-service/config"
	"github.com/grocerycompare/price-service/internal/access"
	"github.com/grocerycompare/price-service/internal/database"
	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/exchangerate"
	xhttp "github.com/grocerycompare/price-service/internal/http"
	"github.com/grocerycompare/price-service/internal/i18n"
	"github.com/grocerycompare/price-service/internal/identity"
	"github.com/grocerycompare/price-service/internal/metrics"
)

// App holds the wired services.
type App struct {
	Config   *config.Config
	Logger   *zerolog.Logger
	Metrics  *metrics.Recorder
	Store    *database.Store
	Identity *identity.Provider
	Access   *access.Service
	Entries  *entries.Service
	Rates    *exchangerate.Provider
	Catalog  *i18n.Catalog

	redis *redis.Client
}

// New connects to the database, applies migrations when configured and
// builds every service. Close releases the connections.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := database.Connect(
		ctx,
		cfg.Database.URL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info().Msg("Database connected")

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, cfg.Database.URL); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info().Msg("Database migrations applied")
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRecorder(),
		Store:   database.New(database.Pool()),
	}

	cache, err := a.rateCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	client := xhttp.NewClient(cfg.HTTPClient, cfg.ExchangeRate.Timeout)
	a.Rates = exchangerate.NewProvider(cache, exchangerate.NewAPIFetcher(client, cfg.ExchangeRate.URL),
		cfg.ExchangeRate.TTL, logger, a.Metrics)

	a.Identity = identity.NewProvider(a.Store, []byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	a.Identity.OnSessionChange(func(_ context.Context, e identity.Event, s identity.Session) {
		logger.Info().Str("event", e.String()).Str("userID", s.UserID).Msg("Session changed")
	})

	a.Access = access.NewService(database.AccessStore{Store: a.Store}, a.Identity, access.Options{
		EagerTempUsers: cfg.Access.EagerTempUsers,
		Logger:         logger,
		Metrics:        a.Metrics,
	})
	a.Entries = entries.NewService(a.Store, a.Access, logger, a.Metrics)

	a.Catalog = i18n.NewCatalog(a.Store)
	if err := a.Catalog.Reload(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to load translations, serving English only")
	}
	return a, nil
}

func (a *App) rateCache(ctx context.Context) (exchangerate.Cache, error) {
	if a.Config.ExchangeRate.Cache != config.CacheRedis {
		return exchangerate.NewPostgresCache(a.Store), nil
	}
	rdb, err := exchangerate.NewRedisClient(ctx, exchangerate.RedisConfig{
		Addr:     a.Config.Redis.Addr,
		Username: a.Config.Redis.Username,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = rdb
	a.Logger.Info().Str("addr", a.Config.Redis.Addr).Msg("Redis exchange rate cache connected")
	return exchangerate.NewRedisCache(rdb, a.Config.ExchangeRate.RedisKey, a.Config.ExchangeRate.TTL), nil
}

// Ping checks the database connection.
func (a *App) Ping(ctx context.Context) error {
	return database.Status(ctx)
}

// Close releases Redis and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	database.Close()
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the logging configuration.
func NewLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "price-service").Logger()
	return &logger
}
