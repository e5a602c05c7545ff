package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/grocerycompare/price-service/internal/http/ratelimit"
)

// UserAgent is sent with every outbound request
const UserAgent = "GroceryCompare-PriceService/1.0"

// Client is an HTTP client with rate limiting and retry logic
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     ratelimit.Config
}

// NewClient creates a new HTTP client with rate limiting
func NewClient(config ratelimit.Config, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    ratelimit.NewLimiter(config),
		config:     config,
	}
}

// NewClientDefault creates a new HTTP client with default rate limiting
func NewClientDefault() *Client {
	return NewClient(ratelimit.DefaultConfig(), 10*time.Second)
}

// Get performs a GET request with rate limiting and retry logic
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var (
		attempts   int
		lastStatus int
		lastErr    error
	)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		attempts = attempt + 1
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || attempt == c.config.MaxRetries {
				break
			}
			if err := ratelimit.Sleep(ctx, ratelimit.CalculateBackoff(attempt, c.config)); err != nil {
				return nil, err
			}
			continue
		}

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = nil

		// Non-retryable error or last attempt - fail immediately
		if !ratelimit.IsRetryableStatus(resp.StatusCode) || attempt == c.config.MaxRetries {
			return nil, &ratelimit.FetchRetryError{URL: url, Attempts: attempts, LastStatus: lastStatus}
		}

		delay := ratelimit.CalculateBackoff(attempt, c.config)
		if resp.StatusCode == http.StatusTooManyRequests {
			delay = ratelimit.CalculateRateLimitBackoff(attempt, c.config, resp.Header.Get("Retry-After"))
		}
		if err := ratelimit.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &ratelimit.FetchRetryError{
		URL:        url,
		Attempts:   attempts,
		LastStatus: lastStatus,
		LastError:  lastErr,
	}
}

// GetJSON performs a GET request and decodes the JSON body into dest
func (c *Client) GetJSON(ctx context.Context, url string, dest any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dest); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
