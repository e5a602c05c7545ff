package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting and retry configuration
type Config struct {
	RequestsPerSecond float64 `json:"requestsPerSecond" mapstructure:"requests_per_second"`
	MaxRetries        int     `json:"maxRetries" mapstructure:"max_retries"`
	InitialBackoffMs  int     `json:"initialBackoffMs" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int     `json:"maxBackoffMs" mapstructure:"max_backoff_ms"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		MaxRetries:        3,
		InitialBackoffMs:  100,
		MaxBackoffMs:      30000,
	}
}

// NewLimiter returns a token bucket limiter for config. A non-positive
// rate disables limiting.
func NewLimiter(config Config) *rate.Limiter {
	if config.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
}

func (c Config) initialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMs) * time.Millisecond
}

func (c Config) maxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}
