// Package provider implements the upstream machine translation engines used
// by the translation server.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/autotrans"
)

// Provider names accepted by New.
const (
	NameOpenAI = "openai"
	NameGoogle = "google"
	NameMock   = "mock"
)

// Config selects and configures an upstream provider.
type Config struct {
	Name        string  // openai, google or mock
	APIKey      string  // OpenAI API key
	Model       string  // OpenAI model
	BaseURL     string  // OpenAI-compatible base URL (optional)
	Temperature float32 // OpenAI temperature
	Credentials string  // Google credentials file (optional)
	Endpoint    string  // Google endpoint override (optional)

	Retries           int // retry attempts for retryable failures, 0 disables retries
	RequestsPerMinute int // upstream rate limit, 0 disables limiting
}

// New builds the provider named by cfg.Name, wrapped with rate limiting
// and retries when configured. The returned cleanup releases upstream
// clients.
func New(ctx context.Context, cfg Config) (p autotrans.Provider, cleanup func() error, err error) {
	cleanup = func() error { return nil }
	switch strings.ToLower(cfg.Name) {
	case NameOpenAI, "":
		p = NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})
	case NameGoogle:
		g, err := NewGoogleProvider(ctx, GoogleConfig{
			Credentials: cfg.Credentials,
			Endpoint:    cfg.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		p = g
		cleanup = g.Close
	case NameMock:
		p = NewMockProvider()
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}

	if cfg.RequestsPerMinute > 0 {
		p = autotrans.NewRateLimitedProvider(p, autotrans.RateLimitConfig{
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
	}
	if cfg.Retries > 0 {
		retry := autotrans.DefaultRetryConfig()
		retry.MaxRetries = cfg.Retries
		p = autotrans.NewRetryableProvider(p, retry)
	}

	return p, cleanup, nil
}
