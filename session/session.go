// Package session holds the active display language of a document and
// drives translation and restoration when it changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/dom"
	"github.com/ZaguanLabs/autotrans/pipeline"
	"github.com/ZaguanLabs/autotrans/prefs"
)

// DefaultSettleDelay is how long to wait after a pass before restoring the
// reader's position.
const DefaultSettleDelay = 100 * time.Millisecond

// Runner runs passes over a document. *pipeline.Pipeline satisfies it.
type Runner interface {
	Translate(ctx context.Context, doc dom.Document, lang string) (*pipeline.PassResult, error)
	Restore(ctx context.Context, doc dom.Document) (int, error)
	Busy() bool
}

// Session is the language state of one document.
//
// A language change cancels any pass still running for an earlier change
// and waits for it to stop before starting its own, so stale translations
// are never written over newer ones.
type Session struct {
	doc         dom.Document
	runner      Runner
	prefs       *prefs.Preferences
	viewport    Viewport
	settleDelay time.Duration
	sourceLang  string
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	lang   string
	gen    uint64             // bumped by every language change
	cancel context.CancelFunc // cancels the running pass
	done   chan struct{}      // closed when the running pass returns

	persistMu sync.Mutex // orders writes of the persisted language

	translating atomic.Int32 // language changes in progress
}

// Option is a functional option for configuring the Session.
type Option func(*Session)

// WithViewport sets the viewport snapshotted on language changes.
func WithViewport(v Viewport) Option {
	return func(s *Session) {
		s.viewport = v
	}
}

// WithSettleDelay sets the delay before the reader's position is restored.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) {
		s.settleDelay = d
	}
}

// WithSourceLang sets the language of the markup.
func WithSourceLang(lang string) Option {
	return func(s *Session) {
		s.sourceLang = lang
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a Session whose language is the persisted one, or the source
// language when none is stored. It does not translate the document; call
// Refresh for that.
func New(ctx context.Context, doc dom.Document, runner Runner, p *prefs.Preferences, opts ...Option) (*Session, error) {
	s := &Session{
		doc:         doc,
		runner:      runner,
		prefs:       p,
		viewport:    &MemoryViewport{},
		settleDelay: DefaultSettleDelay,
		sourceLang:  autotrans.DefaultSourceLang,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.lang = s.sourceLang
	saved, ok, err := p.Language(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading language: %w", err)
	}
	if ok {
		if code, err := autotrans.NormalizeLanguage(saved); err == nil && autotrans.IsSupported(code) {
			s.lang = code
		} else {
			s.logger.Warn("ignoring unsupported saved language", zap.String("lang", saved))
		}
	}
	return s, nil
}

// Language returns the active language.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Translating reports whether a language change is in progress. It is
// advisory, for a loading indicator.
func (s *Session) Translating() bool {
	return s.translating.Load() > 0
}

// ChangeLanguage switches the document to code.
//
// Changing to the active language does nothing. Otherwise the reader's
// position is saved under the outgoing language, the new language is
// persisted, and the document is translated, or restored when code is the
// source language. Once the pass ends, the position saved for the new
// language is restored after the settle delay.
//
// Translation failures are not reported: untranslated text is an accepted
// outcome. A call superseded by a later change returns nil early.
func (s *Session) ChangeLanguage(ctx context.Context, code string) error {
	lang, err := autotrans.NormalizeLanguage(code)
	if err != nil || !autotrans.IsSupported(lang) {
		return fmt.Errorf("%w: %q", autotrans.ErrUnsupportedLanguage, code)
	}

	s.mu.Lock()
	outgoing := s.lang
	if lang == outgoing {
		s.mu.Unlock()
		return nil
	}
	s.lang = lang
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	log := s.logger.With(zap.String("from", outgoing), zap.String("to", lang))

	snapshot := prefs.PageState{
		ScrollY:   s.viewport.ScrollY(),
		FocusedID: s.viewport.FocusedID(),
		SavedAt:   s.now(),
	}
	if err := s.prefs.SavePageState(ctx, outgoing, snapshot); err != nil {
		log.Warn("saving page state failed", zap.Error(err))
	}
	s.persistLanguage(ctx, lang, gen, log)

	s.translating.Add(1)
	defer s.translating.Add(-1)

	superseded, err := s.runPass(ctx, lang, gen, true)
	if err != nil {
		return err
	}
	if superseded {
		log.Debug("language change superseded")
		return nil
	}

	s.restoreViewport(ctx, lang)
	log.Info("language changed")
	return nil
}

// Refresh translates content added since the last pass. It fails with
// autotrans.ErrPassRunning instead of interrupting a running pass.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	lang, gen, running := s.lang, s.gen, s.done != nil
	s.mu.Unlock()
	if lang == s.sourceLang {
		return nil
	}
	if running {
		return autotrans.ErrPassRunning
	}

	_, err := s.runPass(ctx, lang, gen, false)
	return err
}

// persistLanguage stores lang unless a later change has been made. Writes
// are serialized, so the stored language is always the latest one.
func (s *Session) persistLanguage(ctx context.Context, lang string, gen uint64, log *zap.Logger) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if !s.current(gen) {
		return
	}
	if err := s.prefs.SetLanguage(ctx, lang); err != nil {
		log.Warn("persisting language failed", zap.Error(err))
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// Watch returns a started watcher that refreshes the session when content
// is added to the document.
func (s *Session) Watch(opts ...pipeline.WatcherOption) *pipeline.Watcher {
	w := pipeline.NewWatcher(s.doc, s.runner.Busy, func() {
		if err := s.Refresh(context.Background()); err != nil && !errors.Is(err, autotrans.ErrPassRunning) {
			s.logger.Warn("refresh failed", zap.Error(err))
		}
	}, opts...)
	w.Start()
	return w
}

// runPass runs one pass for lang, first cancelling and awaiting the
// running one. superseded is true when a later change was made before the
// pass started, or cancelled it while running.
func (s *Session) runPass(ctx context.Context, lang string, gen uint64, preempt bool) (superseded bool, err error) {
	s.mu.Lock()
	for {
		if gen != s.gen {
			s.mu.Unlock()
			return true, nil
		}
		if s.done == nil {
			break
		}
		if !preempt {
			s.mu.Unlock()
			return false, autotrans.ErrPassRunning
		}
		s.cancel()
		done := s.done
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
	passCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}()

	if lang == s.sourceLang {
		restored, err := s.runner.Restore(passCtx, s.doc)
		if err != nil {
			return s.classify(ctx, passCtx, err)
		}
		s.logger.Debug("restored source text", zap.Int("elements", restored))
		return false, nil
	}

	result, err := s.runner.Translate(passCtx, s.doc, lang)
	if result != nil {
		s.logger.Info("pass finished",
			zap.String("pass", result.ID),
			zap.String("lang", lang),
			zap.Int("translated", result.Translated),
			zap.Int("failed_batches", result.FailedBatches),
			zap.Duration("elapsed", result.Elapsed))
	}
	if err != nil {
		return s.classify(ctx, passCtx, err)
	}
	return false, nil
}

// classify tells a pass cancelled by a later change from a cancelled caller.
func (s *Session) classify(ctx, passCtx context.Context, err error) (bool, error) {
	if passCtx.Err() != nil && ctx.Err() == nil {
		return true, nil
	}
	return false, err
}

func (s *Session) restoreViewport(ctx context.Context, lang string) {
	st, ok, err := s.prefs.PageState(ctx, lang)
	if err != nil || !ok {
		return
	}

	if s.settleDelay > 0 {
		timer := time.NewTimer(s.settleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	if st.ScrollY > 0 {
		s.viewport.ScrollTo(st.ScrollY)
	}
	if st.FocusedID != "" {
		s.viewport.Focus(st.FocusedID)
	}
}
