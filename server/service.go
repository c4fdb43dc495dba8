// Package server provides the translation backend consumed by page clients:
// a Service translating through an upstream provider with a shared cache,
// and an HTTP server exposing it.
package server

import (
	"context"
	"strings"
	"unicode"

	"github.com/ZaguanLabs/autotrans"
	"go.uber.org/zap"
)

// Service translates texts through a Provider, caching results by text hash
// and language pair. It implements autotrans.Backend, so a page client can
// use it in-process.
type Service struct {
	provider      autotrans.Provider
	cache         autotrans.TranslationCache
	logger        *zap.Logger
	style         autotrans.TranslationStyle
	context       string
	glossary      map[string]string
	excludedTerms []string
	concurrency   int
}

// ServiceOption is a functional option for configuring the Service.
type ServiceOption func(*Service)

// WithCache sets the server side translation cache.
func WithCache(cache autotrans.TranslationCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStyle sets the translation style passed to the provider.
func WithStyle(style autotrans.TranslationStyle) ServiceOption {
	return func(s *Service) {
		s.style = style
	}
}

// WithDomainContext describes the translated content to the provider.
func WithDomainContext(desc string) ServiceOption {
	return func(s *Service) {
		s.context = desc
	}
}

// WithGlossary sets preferred translations for specific terms.
func WithGlossary(glossary map[string]string) ServiceOption {
	return func(s *Service) {
		s.glossary = glossary
	}
}

// WithExcludedTerms sets terms that must never be translated.
func WithExcludedTerms(terms ...string) ServiceOption {
	return func(s *Service) {
		s.excludedTerms = terms
	}
}

// WithLookupConcurrency bounds the cache lookups a batch runs at once.
// Values below 2 make lookups sequential.
func WithLookupConcurrency(n int) ServiceOption {
	return func(s *Service) {
		s.concurrency = n
	}
}

// NewService creates a Service over provider.
func NewService(provider autotrans.Provider, opts ...ServiceOption) *Service {
	s := &Service{
		provider:    provider,
		logger:      zap.NewNop(),
		style:       autotrans.StyleNeutral,
		concurrency: DefaultLookupConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// TranslateText translates a single text.
func (s *Service) TranslateText(ctx context.Context, req autotrans.TextRequest) (string, error) {
	out, err := s.TranslateBatch(ctx, autotrans.BatchRequest{
		Texts:      []string{req.Text},
		TargetLang: req.TargetLang,
		SourceLang: req.SourceLang,
	})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// TranslateBatch translates texts in order. Texts that need no translation
// are echoed, and each distinct cache miss is sent upstream once.
func (s *Service) TranslateBatch(ctx context.Context, req autotrans.BatchRequest) ([]string, error) {
	source := req.SourceLang
	if source == "" {
		source = autotrans.DefaultSourceLang
	}

	out := make([]string, len(req.Texts))
	copy(out, req.Texts)

	if len(req.Texts) == 0 || autotrans.SameLanguage(source, req.TargetLang) {
		return out, nil
	}

	// Positions of each distinct trimmed text still needing translation
	pending := make(map[string][]int)
	var distinct []string
	for i, text := range req.Texts {
		if !autotrans.NeedsTranslation(text, req.TargetLang, source) {
			continue
		}
		trimmed := strings.TrimSpace(text)
		if _, seen := pending[trimmed]; !seen {
			distinct = append(distinct, trimmed)
		}
		pending[trimmed] = append(pending[trimmed], i)
	}

	hits := s.lookupAll(ctx, distinct, source, req.TargetLang)
	var misses []string
	for _, text := range distinct {
		cached, ok := hits[text]
		if !ok {
			misses = append(misses, text)
			continue
		}
		for _, pos := range pending[text] {
			out[pos] = rewrap(req.Texts[pos], cached)
		}
	}

	if len(misses) == 0 {
		s.logger.Debug("batch served from cache",
			zap.String("target", req.TargetLang),
			zap.Int("texts", len(req.Texts)))
		return out, nil
	}

	results, err := s.provider.Translate(ctx, autotrans.ProviderRequest{
		Texts:         misses,
		TargetLang:    req.TargetLang,
		SourceLang:    source,
		Style:         s.style,
		Context:       s.context,
		Glossary:      s.glossary,
		ExcludedTerms: s.excludedTerms,
	})
	if err == nil && len(results) != len(misses) {
		err = &autotrans.CountMismatchError{Expected: len(misses), Got: len(results)}
	}
	if err != nil {
		s.logger.Warn("upstream translation failed",
			zap.String("target", req.TargetLang),
			zap.Int("misses", len(misses)),
			zap.Error(err))
		return nil, &autotrans.TranslationError{Message: "upstream translation failed", Cause: err}
	}

	for i, text := range misses {
		translated := strings.TrimSpace(results[i])
		if translated == "" {
			translated = text
		} else {
			s.store(text, source, req.TargetLang, translated)
		}
		for _, pos := range pending[text] {
			out[pos] = rewrap(req.Texts[pos], translated)
		}
	}

	s.logger.Debug("batch translated",
		zap.String("target", req.TargetLang),
		zap.Int("texts", len(req.Texts)),
		zap.Int("misses", len(misses)))

	return out, nil
}

func (s *Service) lookup(text, source, target string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(autotrans.ServerCacheKey(autotrans.HashText(text), source, target))
}

func (s *Service) store(text, source, target, translated string) {
	if s.cache == nil {
		return
	}
	key := autotrans.ServerCacheKey(autotrans.HashText(text), source, target)
	if err := s.cache.Set(key, translated); err != nil {
		s.logger.Warn("caching translation failed", zap.Error(err))
	}
}

// rewrap surrounds translated with the leading and trailing whitespace of original.
func rewrap(original, translated string) string {
	lead := len(original) - len(strings.TrimLeftFunc(original, unicode.IsSpace))
	trail := len(strings.TrimRightFunc(original, unicode.IsSpace))
	if lead >= trail {
		return original
	}
	return original[:lead] + translated + original[trail:]
}

var _ autotrans.Backend = (*Service)(nil)
