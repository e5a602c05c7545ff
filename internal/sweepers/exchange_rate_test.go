package sweepers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerycompare/price-service/internal/exchangerate"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) (exchangerate.Record, error) {
	r.calls.Add(1)
	return exchangerate.Record{SekToDkk: 0.65}, r.err
}

func TestExchangeRateSweeper(t *testing.T) {
	logger := zerolog.Nop()
	r := &countingRefresher{}
	s := NewExchangeRateSweeper(r, &logger, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
	<-done
}

func TestExchangeRateSweeperSurvivesErrors(t *testing.T) {
	logger := zerolog.Nop()
	r := &countingRefresher{err: errors.New("api down")}
	s := NewExchangeRateSweeper(r, &logger, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.GreaterOrEqual(t, r.calls.Load(), int32(2))
}
