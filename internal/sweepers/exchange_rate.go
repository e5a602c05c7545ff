package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/grocerycompare/price-service/internal/exchangerate"
)

// RateRefresher fetches and caches a fresh exchange rate.
type RateRefresher interface {
	Refresh(ctx context.Context) (exchangerate.Record, error)
}

// ExchangeRateSweeper periodically refreshes the cached exchange rate so
// requests rarely wait on the remote API.
type ExchangeRateSweeper struct {
	refresher RateRefresher
	logger    *zerolog.Logger
	interval  time.Duration
	stopChan  chan struct{}
}

// NewExchangeRateSweeper creates a new sweeper for exchange rate refreshes
func NewExchangeRateSweeper(refresher RateRefresher, logger *zerolog.Logger, interval time.Duration) *ExchangeRateSweeper {
	return &ExchangeRateSweeper{
		refresher: refresher,
		logger:    logger,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start refreshes immediately and then on every tick until stopped
func (s *ExchangeRateSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting exchange rate sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Exchange rate sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Exchange rate sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// Stop signals the sweeper to stop
func (s *ExchangeRateSweeper) Stop() {
	close(s.stopChan)
}

func (s *ExchangeRateSweeper) refresh(ctx context.Context) {
	rec, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to refresh exchange rate")
		return
	}
	s.logger.Debug().Float64("sekToDkk", rec.SekToDkk).Msg("Exchange rate sweep complete")
}
