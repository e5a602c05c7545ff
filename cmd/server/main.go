// @title Grocery Compare API
// @version 1.0
// @description Sweden/Denmark grocery price comparison: price entries, per-item comparisons and access administration.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grocerycompare/price-service/config"
	"github.com/grocerycompare/price-service/internal/app"
	"github.com/grocerycompare/price-service/internal/handlers"
	"github.com/grocerycompare/price-service/internal/jobs"
	"github.com/grocerycompare/price-service/internal/middleware"
	"github.com/grocerycompare/price-service/internal/sweepers"
	"github.com/grocerycompare/price-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Logging)

	logger.Info().Msg("Starting price service")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Auth.AdminEmail == "" {
		logger.Warn().Msg("ADMIN_EMAIL not set, admin routes are unreachable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.GetConfigFromEnv()
	if cfg.Telemetry.Enabled {
		telemetryCfg = telemetry.Config{
			Enabled:     true,
			Endpoint:    cfg.Telemetry.Endpoint,
			ServiceName: cfg.Telemetry.ServiceName,
			Environment: cfg.Telemetry.Environment,
		}
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.Close()

	var rateSweeper *sweepers.ExchangeRateSweeper
	if cfg.ExchangeRate.RefreshInterval > 0 {
		rateSweeper = sweepers.NewExchangeRateSweeper(a.Rates, logger, cfg.ExchangeRate.RefreshInterval)
		go rateSweeper.Start(ctx)
	}

	cleanup := jobs.NewCleanupManager(jobs.CleanupConfig{
		Interval: cfg.Cleanup.Interval,
		Enabled:  cfg.Cleanup.Enabled,
	}, a.Store, logger, a.Metrics)
	cleanup.Start()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics(a.Metrics))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDocs(router)

	api := handlers.New(handlers.Deps{
		Access:     a.Access,
		Entries:    a.Entries,
		Rates:      a.Rates,
		Catalog:    a.Catalog,
		Sessions:   a.Identity,
		AdminEmail: cfg.Auth.AdminEmail,
		Ping:       a.Ping,
		Logger:     logger,
	})
	api.Register(router, middleware.RateLimitMiddleware(ctx, cfg.RateLimit))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info().Msg("Shutting down server...")
	if rateSweeper != nil {
		rateSweeper.Stop()
	}
	cleanup.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

