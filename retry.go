package autotrans

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Delay before the first retry, doubled each time
	MaxDelay   time.Duration // Cap on any single delay, Retry-After included
}

// DefaultRetryConfig returns the retry settings used for providers.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// delay returns the wait before retry number attempt+1. A Retry-After hint
// carried by err stretches the backoff but never past MaxDelay.
func (c RetryConfig) delay(attempt int, err error) time.Duration {
	d := c.MaxDelay
	if attempt < 32 {
		d = min(c.BaseDelay<<attempt, c.MaxDelay)
	}
	return min(max(d, RetryAfter(err)), c.MaxDelay)
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// WithRetry calls fn until it succeeds, fails permanently or the retries
// run out, backing off exponentially in between. The last error is
// returned when every attempt fails.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) || attempt >= cfg.MaxRetries {
			return zero, err
		}

		if err := sleep(ctx, cfg.delay(attempt, err)); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryable reports whether err is worth another attempt: a provider
// error flagged retryable, or a backend rate limit or server error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.StatusCode == http.StatusTooManyRequests || backendErr.StatusCode >= 500
	}

	return false
}

// RetryAfter returns the wait the upstream asked for in err, or 0.
func RetryAfter(err error) time.Duration {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.RetryAfter > 0 {
		return providerErr.RetryAfter
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.RetryAfter > 0 {
		return backendErr.RetryAfter
	}
	return 0
}

// ParseRetryAfter reads a Retry-After header value, given either as
// seconds or as an HTTP date. Missing, malformed and past values give 0.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// RetryableProvider wraps a Provider, retrying failed calls.
type RetryableProvider struct {
	provider Provider
	config   RetryConfig
}

// NewRetryableProvider creates a new provider with retry logic.
func NewRetryableProvider(provider Provider, cfg RetryConfig) *RetryableProvider {
	return &RetryableProvider{
		provider: provider,
		config:   cfg,
	}
}

// Translate implements Provider with retry logic.
func (p *RetryableProvider) Translate(ctx context.Context, req ProviderRequest) ([]string, error) {
	return WithRetry(ctx, p.config, func() ([]string, error) {
		return p.provider.Translate(ctx, req)
	})
}

var _ Provider = (*RetryableProvider)(nil)
