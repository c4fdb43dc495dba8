package autotrans

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// trivialText matches text made only of whitespace, digits and common punctuation.
var trivialText = regexp.MustCompile(`^[\d\s.,;:!@#$%^&*()\-_=+\[\]{}|\\/<>?~` + "`" + `'"]*$`)

// Client translates text through a Backend with caching and in-flight
// de-duplication. Failures never reach the caller: the input text is
// returned instead.
type Client struct {
	backend    Backend
	cache      TranslationCache
	sourceLang string
	logger     *zap.Logger
	inflight   singleflight.Group
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithClientCache sets the translation cache.
func WithClientCache(cache TranslationCache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithClientSourceLang sets the default source language.
func WithClientSourceLang(lang string) ClientOption {
	return func(c *Client) {
		c.sourceLang = lang
	}
}

// WithClientLogger sets the logger used to report backend failures.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Client for the given backend.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend:    backend,
		sourceLang: DefaultSourceLang,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SourceLang returns the default source language.
func (c *Client) SourceLang() string {
	return c.sourceLang
}

// NeedsTranslation reports whether text has to go to the backend to be
// shown in targetLang.
func NeedsTranslation(text, targetLang, sourceLang string) bool {
	if targetLang == sourceLang {
		return false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	return !trivialText.MatchString(trimmed)
}

// TranslateText translates a single text. The source language defaults to
// the client's source language.
func (c *Client) TranslateText(ctx context.Context, text, targetLang string, sourceLang ...string) string {
	source := c.source(sourceLang)
	if !NeedsTranslation(text, targetLang, source) {
		return text
	}

	key := CacheKey(text, source, targetLang)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached
		}
	}

	// Callers sharing a key share one backend call. The call runs detached
	// from any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (interface{}, error) {
		translated, err := c.backend.TranslateText(shared, TextRequest{
			Text:       text,
			TargetLang: targetLang,
			SourceLang: source,
		})
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.Set(key, translated); err != nil {
				c.logger.Warn("caching translation failed", zap.Error(err))
			}
		}
		return translated, nil
	})

	select {
	case <-ctx.Done():
		return text
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("text translation failed, keeping original",
				zap.String("target", targetLang),
				zap.Error(res.Err))
			return text
		}
		return res.Val.(string)
	}
}

// TranslateBatch translates texts, preserving order and length. Texts that
// do not need translation are passed through unchanged. On failure the
// input is returned unchanged.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, targetLang string, sourceLang ...string) []string {
	out, err := c.TryTranslateBatch(ctx, texts, targetLang, sourceLang...)
	if err != nil {
		c.logger.Warn("batch translation failed, keeping originals",
			zap.String("target", targetLang),
			zap.Int("texts", len(texts)),
			zap.Error(err))
	}
	return out
}

// TryTranslateBatch is TranslateBatch reporting the failure. The returned
// slice is always usable: on error it is a copy of texts.
func (c *Client) TryTranslateBatch(ctx context.Context, texts []string, targetLang string, sourceLang ...string) ([]string, error) {
	source := c.source(sourceLang)
	out := make([]string, len(texts))
	copy(out, texts)

	if targetLang == source {
		return out, nil
	}

	// Positions of each unique text still missing a translation
	pending := make(map[string][]int)
	var misses []string
	for i, text := range texts {
		if !NeedsTranslation(text, targetLang, source) {
			continue
		}
		if c.cache != nil {
			if cached, ok := c.cache.Get(CacheKey(text, source, targetLang)); ok {
				out[i] = cached
				continue
			}
		}
		if _, seen := pending[text]; !seen {
			misses = append(misses, text)
		}
		pending[text] = append(pending[text], i)
	}

	if len(misses) == 0 {
		return out, nil
	}

	results, err := c.backend.TranslateBatch(ctx, BatchRequest{
		Texts:      misses,
		TargetLang: targetLang,
		SourceLang: source,
	})
	if err == nil && len(results) != len(misses) {
		err = &CountMismatchError{Expected: len(misses), Got: len(results)}
	}
	if err != nil {
		copy(out, texts)
		return out, &TranslationError{Message: "batch translation failed", Cause: err}
	}

	for i, text := range misses {
		for _, pos := range pending[text] {
			out[pos] = results[i]
		}
		if c.cache != nil {
			if err := c.cache.Set(CacheKey(text, source, targetLang), results[i]); err != nil {
				c.logger.Warn("caching translation failed", zap.Error(err))
			}
		}
	}

	return out, nil
}

// ClearCache empties the cache when it supports clearing.
func (c *Client) ClearCache() {
	if cl, ok := c.cache.(interface{ Clear() }); ok {
		cl.Clear()
	}
}

// CacheLen returns the number of cached translations, or 0 when unknown.
func (c *Client) CacheLen() int {
	if l, ok := c.cache.(interface{ Len() int }); ok {
		return l.Len()
	}
	return 0
}

func (c *Client) source(override []string) string {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return c.sourceLang
}
