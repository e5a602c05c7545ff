// Package exchangerate supplies the SEK to DKK rate used to put Danish
// prices on a Swedish basis.
package exchangerate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/grocerycompare/price-service/internal/metrics"
	"github.com/grocerycompare/price-service/internal/pricing"
)

const (
	// DefaultURL returns rates with SEK as base.
	DefaultURL = "https://open.er-api.com/v6/latest/SEK"

	// DefaultTTL is how long a fetched rate is served before refreshing.
	DefaultTTL = 4 * time.Hour

	// SourceAPI labels rates fetched from DefaultURL.
	SourceAPI = "ExchangeRate-API.com"

	// SourceFallback labels the built-in rate.
	SourceFallback = "fallback"

	// ConfigKey is the app_config key of the cached rate.
	ConfigKey = "exchangeRate"

	fetchTimeout = 15 * time.Second

	// fallbackBackoff is how long a failed fetch serves the fallback
	// before the next attempt.
	fallbackBackoff = time.Minute
)

// Record is a cached rate: 1 SEK buys SekToDkk DKK.
type Record struct {
	SekToDkk    float64   `json:"sekToDkk"`
	LastUpdated time.Time `json:"lastUpdated"`
	Source      string    `json:"source"`
}

// Fresh reports whether r is usable at now for the given TTL.
func (r Record) Fresh(now time.Time, ttl time.Duration) bool {
	return r.SekToDkk > 0 && !r.LastUpdated.IsZero() && now.Sub(r.LastUpdated) < ttl
}

// Fallback is the record served when no live rate is available.
func Fallback() Record {
	return Record{SekToDkk: pricing.DefaultExchangeRate, Source: SourceFallback}
}

// Cache persists the last fetched rate.
type Cache interface {
	// Load returns ok=false when nothing is cached.
	Load(ctx context.Context) (rec Record, ok bool, err error)
	Store(ctx context.Context, rec Record) error
}

// Fetcher retrieves the current rate from a remote source.
type Fetcher interface {
	Fetch(ctx context.Context) (float64, error)
}

// Provider serves the SEK to DKK rate, refreshing it from the Fetcher
// once the cached value is older than the TTL. It never fails: any error
// yields the fallback rate.
type Provider struct {
	cache   Cache
	fetcher Fetcher
	ttl     time.Duration
	logger  *zerolog.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	mem      Record
	failedAt time.Time
}

// NewProvider constructs a Provider. A non-positive ttl uses DefaultTTL.
func NewProvider(cache Cache, fetcher Fetcher, ttl time.Duration, logger *zerolog.Logger, m *metrics.Recorder) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Provider{cache: cache, fetcher: fetcher, ttl: ttl, logger: logger, metrics: m, now: time.Now}
}

// Rate returns the current rate.
func (p *Provider) Rate(ctx context.Context) float64 {
	return p.Quote(ctx).SekToDkk
}

// Quote returns the current rate with its age and source.
func (p *Provider) Quote(ctx context.Context) Record {
	now := p.now()

	p.mu.RLock()
	mem, failedAt := p.mem, p.failedAt
	p.mu.RUnlock()
	if mem.Fresh(now, p.ttl) {
		p.metrics.RecordExchangeRate(mem.SekToDkk, "memory")
		return mem
	}

	rec, ok, err := p.cache.Load(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to load cached exchange rate")
	}
	if ok && rec.Fresh(now, p.ttl) {
		p.remember(rec)
		p.metrics.RecordExchangeRate(rec.SekToDkk, "cache")
		return rec
	}
	if !failedAt.IsZero() && now.Sub(failedAt) < fallbackBackoff {
		fb := Fallback()
		p.metrics.RecordExchangeRate(fb.SekToDkk, "fallback")
		return fb
	}

	v, err, _ := p.group.Do("rate", func() (any, error) {
		return p.Refresh(ctx)
	})
	if err != nil {
		p.mu.Lock()
		p.failedAt = now
		p.mu.Unlock()
		p.logger.Error().Err(err).Float64("fallback", pricing.DefaultExchangeRate).Msg("Exchange rate unavailable, using fallback")
		fb := Fallback()
		p.metrics.RecordExchangeRate(fb.SekToDkk, "fallback")
		return fb
	}
	rec = v.(Record)
	p.metrics.RecordExchangeRate(rec.SekToDkk, "remote")
	return rec
}

// Refresh fetches a new rate and stores it, regardless of the cached age.
func (p *Provider) Refresh(ctx context.Context) (Record, error) {
	// a caller that gives up must not fail the callers sharing this fetch
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
	defer cancel()

	start := time.Now()
	rate, err := p.fetcher.Fetch(ctx)
	p.metrics.RecordExchangeRateFetch(time.Since(start), err == nil)
	if err != nil {
		return Record{}, err
	}

	rec := Record{SekToDkk: rate, LastUpdated: p.now().UTC(), Source: SourceAPI}
	if err := p.cache.Store(ctx, rec); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to store exchange rate")
	}
	p.remember(rec)
	p.logger.Info().Float64("sekToDkk", rate).Msg("Exchange rate refreshed")
	return rec, nil
}

func (p *Provider) remember(rec Record) {
	p.mu.Lock()
	p.mem = rec
	p.failedAt = time.Time{}
	p.mu.Unlock()
}

// LastUpdated returns when the cached rate was fetched.
func (p *Provider) LastUpdated(ctx context.Context) (time.Time, bool) {
	p.mu.RLock()
	mem := p.mem
	p.mu.RUnlock()
	if !mem.LastUpdated.IsZero() {
		return mem.LastUpdated, true
	}
	rec, ok, err := p.cache.Load(ctx)
	if err != nil || !ok {
		return time.Time{}, false
	}
	return rec.LastUpdated, true
}
