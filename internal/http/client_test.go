package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerycompare/price-service/internal/http/ratelimit"
)

func fastConfig() ratelimit.Config {
	return ratelimit.Config{RequestsPerSecond: 0, MaxRetries: 2, InitialBackoffMs: 1, MaxBackoffMs: 5}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"rates":{"DKK":0.65}}`))
	}))
	defer srv.Close()

	c := NewClient(fastConfig(), time.Second)
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &body))
	assert.Equal(t, 0.65, body.Rates["DKK"])
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetFailsFastOnClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(fastConfig(), time.Second)
	_, err := c.Get(context.Background(), srv.URL)

	var fre *ratelimit.FetchRetryError
	require.ErrorAs(t, err, &fre)
	assert.Equal(t, http.StatusNotFound, fre.LastStatus)
	assert.Equal(t, 1, fre.Attempts)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(fastConfig(), time.Second)
	_, err := c.Get(context.Background(), srv.URL)

	var fre *ratelimit.FetchRetryError
	require.ErrorAs(t, err, &fre)
	assert.Equal(t, 3, fre.Attempts)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.InitialBackoffMs = 10_000
	cfg.MaxBackoffMs = 10_000
	c := NewClient(cfg, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, srv.URL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff(t *testing.T) {
	cfg := ratelimit.Config{InitialBackoffMs: 100, MaxBackoffMs: 1000}

	d := ratelimit.CalculateBackoff(0, cfg)
	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.LessOrEqual(t, d, 125*time.Millisecond)

	d = ratelimit.CalculateBackoff(10, cfg)
	assert.LessOrEqual(t, d, 1250*time.Millisecond, "capped")

	d = ratelimit.CalculateRateLimitBackoff(0, cfg, "2")
	assert.GreaterOrEqual(t, d, 2*time.Second)
	assert.Less(t, d, 3*time.Second)

	assert.True(t, ratelimit.IsRetryableStatus(429))
	assert.True(t, ratelimit.IsRetryableStatus(503))
	assert.False(t, ratelimit.IsRetryableStatus(404))
}
