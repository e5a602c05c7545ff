package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/grocerycompare/price-service/internal/metrics"
)

// CleanupConfig holds configuration for cleanup jobs
type CleanupConfig struct {
	Interval time.Duration // How often to run cleanup
	Enabled  bool          // Whether cleanup jobs are enabled
}

// DefaultCleanupConfig returns the default cleanup configuration
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval: 1 * time.Hour,
		Enabled:  true,
	}
}

// Store is the maintenance side of the database.
type Store interface {
	// DeleteSupersededTempUsers removes placeholder users whose real
	// user record already exists.
	DeleteSupersededTempUsers(ctx context.Context) (int64, error)
	// DeleteExpiredRevocations drops revoked sessions that expired before cutoff.
	DeleteExpiredRevocations(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager manages background cleanup jobs
type CleanupManager struct {
	config  CleanupConfig
	store   Store
	logger  *zerolog.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(config CleanupConfig, store Store, logger *zerolog.Logger, m *metrics.Recorder) *CleanupManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupManager{
		config:  config,
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start begins the background cleanup loop
func (cm *CleanupManager) Start() {
	if !cm.config.Enabled {
		cm.logger.Info().Msg("Cleanup jobs are disabled, not starting")
		close(cm.done)
		return
	}
	if cm.config.Interval <= 0 {
		cm.logger.Warn().Dur("interval", cm.config.Interval).Msg("Cleanup interval is not positive, not starting")
		close(cm.done)
		return
	}

	cm.logger.Info().
		Dur("interval", cm.config.Interval).
		Msg("Starting cleanup manager")

	go cm.run()
}

// Stop gracefully stops the cleanup loop
func (cm *CleanupManager) Stop() {
	cm.logger.Info().Msg("Stopping cleanup manager...")
	cm.cancel()

	select {
	case <-cm.done:
		cm.logger.Info().Msg("Cleanup manager stopped")
	case <-time.After(5 * time.Second):
		cm.logger.Warn().Msg("Cleanup manager did not stop gracefully")
	}
}

func (cm *CleanupManager) run() {
	defer close(cm.done)

	ticker := time.NewTicker(cm.config.Interval)
	defer ticker.Stop()

	// Run once immediately on startup
	_ = cm.RunOnce(cm.ctx)

	for {
		select {
		case <-cm.ctx.Done():
			return
		case <-ticker.C:
			_ = cm.RunOnce(cm.ctx)
		}
	}
}

// RunOnce runs every cleanup job and returns their combined error
func (cm *CleanupManager) RunOnce(ctx context.Context) error {
	return errors.Join(
		cm.cleanup(ctx, "temp_users", "superseded placeholder users", cm.store.DeleteSupersededTempUsers),
		cm.cleanup(ctx, "revoked_sessions", "expired session revocations", func(ctx context.Context) (int64, error) {
			return cm.store.DeleteExpiredRevocations(ctx, cm.now())
		}),
	)
}

func (cm *CleanupManager) cleanup(ctx context.Context, name, what string, fn func(context.Context) (int64, error)) error {
	start := time.Now()
	deleted, err := fn(ctx)
	cm.metrics.RecordSweep(name, deleted, err)
	if err != nil {
		cm.logger.Error().Err(err).Str("job", name).Msg("Cleanup job failed")
		return err
	}

	duration := time.Since(start)
	if deleted > 0 {
		cm.logger.Info().
			Int64("deleted", deleted).
			Dur("duration", duration).
			Msg("Cleaned up " + what)
	} else {
		cm.logger.Debug().
			Dur("duration", duration).
			Msg("No " + what + " to clean up")
	}
	return nil
}
