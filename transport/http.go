// Package transport talks to a translation backend over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/autotrans"
)

// Endpoint paths relative to the backend base URL.
const (
	TextPath  = "/api/translate-text"
	BatchPath = "/api/translate-batch"
)

// DefaultTimeout bounds each backend call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody is how much of an error response is kept for the message.
const maxErrorBody = 512

// HTTPBackend is an autotrans.Backend speaking JSON over HTTP.
type HTTPBackend struct {
	baseURL   string
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option is a functional option for configuring the HTTPBackend.
// Options may be given in any order.
type Option func(*HTTPBackend)

// WithHTTPClient sets the HTTP client. A nil client selects the default.
// Its own timeout is kept unless WithTimeout is also given.
func WithHTTPClient(c *http.Client) Option {
	return func(b *HTTPBackend) {
		b.client = c
	}
}

// WithTimeout sets the per-call timeout, overriding the client's.
func WithTimeout(d time.Duration) Option {
	return func(b *HTTPBackend) {
		b.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(b *HTTPBackend) {
		b.userAgent = ua
	}
}

// NewHTTPBackend creates a backend for the service at baseURL.
func NewHTTPBackend(baseURL string, opts ...Option) *HTTPBackend {
	b := &HTTPBackend{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: autotrans.UserAgent(),
	}
	for _, opt := range opts {
		opt(b)
	}

	switch {
	case b.client == nil:
		b.client = &http.Client{Timeout: DefaultTimeout}
		if b.timeout > 0 {
			b.client.Timeout = b.timeout
		}
	case b.timeout > 0:
		// Leave the caller's client untouched.
		c := *b.client
		c.Timeout = b.timeout
		b.client = &c
	}
	return b
}

// TranslateText calls the single-text endpoint.
func (b *HTTPBackend) TranslateText(ctx context.Context, req autotrans.TextRequest) (string, error) {
	var resp autotrans.TextResponse
	if err := b.post(ctx, TextPath, req, &resp); err != nil {
		return "", err
	}
	if resp.TranslatedText == nil {
		return "", &autotrans.BackendError{Endpoint: TextPath, Message: "response has no translated_text"}
	}
	return *resp.TranslatedText, nil
}

// TranslateBatch calls the batch endpoint. The result has the length of
// req.Texts or an error is returned.
func (b *HTTPBackend) TranslateBatch(ctx context.Context, req autotrans.BatchRequest) ([]string, error) {
	var resp struct {
		TranslatedTexts *[]string `json:"translated_texts"`
	}
	if err := b.post(ctx, BatchPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.TranslatedTexts == nil {
		return nil, &autotrans.BackendError{Endpoint: BatchPath, Message: "response has no translated_texts"}
	}
	out := *resp.TranslatedTexts
	if len(out) != len(req.Texts) {
		return nil, &autotrans.CountMismatchError{Expected: len(req.Texts), Got: len(out)}
	}
	return out, nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &autotrans.BackendError{Endpoint: path, Message: "encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &autotrans.BackendError{Endpoint: path, Message: "building request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return &autotrans.BackendError{Endpoint: path, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &autotrans.BackendError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(snippet)),
			RetryAfter: autotrans.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &autotrans.BackendError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decoding %s response", path),
			Cause:      err,
		}
	}
	return nil
}

var _ autotrans.Backend = (*HTTPBackend)(nil)
