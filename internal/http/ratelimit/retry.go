package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"time"
)

// FetchRetryError represents an error when all retry attempts are exhausted
type FetchRetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *FetchRetryError) Error() string {
	msg := "failed to fetch " + e.URL + " after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.LastStatus != 0 {
		msg += " (HTTP " + strconv.Itoa(e.LastStatus) + ")"
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *FetchRetryError) Unwrap() error { return e.LastError }

// IsRetryableStatus checks if an HTTP status code is retryable
// Retryable: 429, 5xx
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

func backoff(attempt int, base float64, config Config) time.Duration {
	delay := float64(config.initialBackoff()) * math.Pow(base, float64(attempt))
	capped := math.Min(delay, float64(config.maxBackoff()))
	// 0-25% jitter
	return time.Duration(capped + rand.Float64()*0.25*capped)
}

// CalculateBackoff returns the exponential backoff delay for attempt
func CalculateBackoff(attempt int, config Config) time.Duration {
	return backoff(attempt, 2, config)
}

// CalculateRateLimitBackoff returns the delay after an HTTP 429. A
// Retry-After header in seconds wins over the computed delay.
func CalculateRateLimitBackoff(attempt int, config Config, retryAfter string) time.Duration {
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds)*time.Second + time.Duration(rand.Intn(1000))*time.Millisecond
	}
	return backoff(attempt, 3, config)
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
