package provider

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	translate "cloud.google.com/go/translate"
	"github.com/ZaguanLabs/autotrans"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleConfig holds configuration for the Google Cloud Translation provider.
type GoogleConfig struct {
	Credentials string // service account file, empty for default credentials
	Endpoint    string // endpoint override (optional)

	// ClientOptions are appended after the options derived above.
	ClientOptions []option.ClientOption
}

// GoogleProvider translates through the Google Cloud Translation v2 API.
type GoogleProvider struct {
	client *translate.Client
}

// NewGoogleProvider creates a client for the Cloud Translation API.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) (*GoogleProvider, error) {
	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, cfg.ClientOptions...)

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, &autotrans.ProviderError{Message: "failed to create Google client", Cause: err}
	}
	return &GoogleProvider{client: client}, nil
}

// Translate translates texts in a single API call.
func (p *GoogleProvider) Translate(ctx context.Context, req autotrans.ProviderRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, &autotrans.ProviderError{Message: fmt.Sprintf("invalid target language %q", req.TargetLang), Cause: err}
	}

	opts := &translate.Options{Format: translate.Text}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		source, err := language.Parse(req.SourceLang)
		if err != nil {
			return nil, &autotrans.ProviderError{Message: fmt.Sprintf("invalid source language %q", req.SourceLang), Cause: err}
		}
		opts.Source = source
	}

	translations, err := p.client.Translate(ctx, req.Texts, target, opts)
	if err != nil {
		return nil, &autotrans.ProviderError{
			Message:    "Google translation failed",
			Cause:      err,
			Retryable:  isRetryableGoogleError(err),
			RetryAfter: googleRetryAfter(err),
		}
	}
	if len(translations) != len(req.Texts) {
		return nil, &autotrans.CountMismatchError{Expected: len(req.Texts), Got: len(translations)}
	}

	out := make([]string, len(translations))
	for i, t := range translations {
		out[i] = html.UnescapeString(t.Text)
	}
	return out, nil
}

// Close releases the underlying client.
func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

func isRetryableGoogleError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	return false
}

func googleRetryAfter(err error) time.Duration {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Header != nil {
		return autotrans.ParseRetryAfter(apiErr.Header.Get("Retry-After"), time.Now())
	}
	return 0
}

var _ autotrans.Provider = (*GoogleProvider)(nil)
