// Package pipeline runs translation passes over a document: scan, batch,
// translate, patch, and the reverse path that restores recorded originals.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/dom"
	"github.com/ZaguanLabs/autotrans/scanner"
)

const (
	// DefaultBatchSize is the number of texts sent per backend call.
	DefaultBatchSize = 15
	// DefaultBatchDelay paces consecutive batches of one pass.
	DefaultBatchDelay = 100 * time.Millisecond
)

// BatchTranslator translates texts in order. On error the returned slice
// must still hold one entry per input. *autotrans.Client satisfies it.
type BatchTranslator interface {
	TryTranslateBatch(ctx context.Context, texts []string, targetLang string, sourceLang ...string) ([]string, error)
}

// State is the run state of a Pipeline.
type State int32

const (
	// Idle means no pass is running; a new one may start.
	Idle State = iota
	// Running means a pass holds the pipeline. Others fail with ErrPassRunning.
	Running
)

// String returns the lowercase state name.
func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// PassResult summarises one pass.
type PassResult struct {
	ID            string
	Lang          string
	Restored      int // elements reverted before scanning
	Candidates    int
	Batches       int
	FailedBatches int
	Translated    int // text nodes patched
	Cancelled     bool
	Elapsed       time.Duration
}

// Pipeline translates documents. At most one pass runs at a time; a pass
// requested while another runs fails with autotrans.ErrPassRunning.
type Pipeline struct {
	translator BatchTranslator
	scanner    *scanner.Scanner
	batchSize  int
	batchDelay time.Duration
	sourceLang string
	logger     *zap.Logger
	state      atomic.Int32
}

// Option is a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets the number of texts per backend call.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between batches. Zero disables pacing.
func WithBatchDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		p.batchDelay = d
	}
}

// WithSourceLang sets the language of the markup.
func WithSourceLang(lang string) Option {
	return func(p *Pipeline) {
		p.sourceLang = lang
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline. A nil scanner means scanner.New().
func New(translator BatchTranslator, s *scanner.Scanner, opts ...Option) *Pipeline {
	if s == nil {
		s = scanner.New()
	}
	p := &Pipeline{
		translator: translator,
		scanner:    s,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
		sourceLang: autotrans.DefaultSourceLang,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SourceLang returns the language of the markup.
func (p *Pipeline) SourceLang() string {
	return p.sourceLang
}

// State returns the current run state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Busy reports whether a pass is running.
func (p *Pipeline) Busy() bool {
	return p.State() == Running
}

func (p *Pipeline) acquire() bool {
	return p.state.CompareAndSwap(int32(Idle), int32(Running))
}

func (p *Pipeline) release() {
	p.state.Store(int32(Idle))
}

// pending is a scanned node with the data it had when scanned.
type pending struct {
	scanner.Candidate
	raw string
}

// Translate runs a pass translating doc into lang.
//
// Elements still marked for another language are restored first, so the
// scan always starts from source text. Batches run one after another with
// the configured pacing. A failed batch is logged and skipped. Nodes that
// were removed or edited while their batch was in flight are left alone.
//
// Cancelling ctx stops the pass before the next batch is applied; the
// result is returned together with ctx.Err().
func (p *Pipeline) Translate(ctx context.Context, doc dom.Document, lang string) (*PassResult, error) {
	if !p.acquire() {
		return nil, autotrans.ErrPassRunning
	}
	defer p.release()

	start := time.Now()
	result := &PassResult{ID: uuid.NewString(), Lang: lang}
	log := p.logger.With(zap.String("pass", result.ID), zap.String("lang", lang))

	var items []pending
	doc.Do(func(body dom.Element) {
		result.Restored = restoreMarked(body, func(marked string) bool {
			return marked != lang
		})
		if lang == p.sourceLang {
			return
		}
		for c := range p.scanner.Scan(body, lang) {
			items = append(items, pending{Candidate: c, raw: c.Node.Data()})
		}
	})
	result.Candidates = len(items)

	for from := 0; from < len(items); from += p.batchSize {
		if from > 0 && !p.pause(ctx) {
			result.Cancelled = true
			break
		}

		batch := items[from:min(from+p.batchSize, len(items))]
		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.Text
		}

		translated, err := p.translator.TryTranslateBatch(ctx, texts, lang, p.sourceLang)
		result.Batches++
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		if err != nil {
			result.FailedBatches++
			log.Warn("batch failed, keeping current text",
				zap.Int("batch", result.Batches),
				zap.Int("texts", len(texts)),
				zap.Error(err))
			continue
		}

		doc.Do(func(body dom.Element) {
			result.Translated += apply(body, batch, translated, lang)
		})
	}

	result.Elapsed = time.Since(start)
	log.Debug("pass finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("batches", result.Batches),
		zap.Int("failed", result.FailedBatches),
		zap.Int("translated", result.Translated),
		zap.Bool("cancelled", result.Cancelled),
		zap.Duration("elapsed", result.Elapsed))

	if result.Cancelled {
		return result, ctx.Err()
	}
	return result, nil
}

// Restore reverts every translated element of doc to its recorded original
// and returns the number of elements reverted.
func (p *Pipeline) Restore(ctx context.Context, doc dom.Document) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !p.acquire() {
		return 0, autotrans.ErrPassRunning
	}
	defer p.release()

	var restored int
	doc.Do(func(body dom.Element) {
		restored = restoreMarked(body, func(string) bool { return true })
	})
	p.logger.Debug("restored originals", zap.Int("elements", restored))
	return restored, nil
}

func (p *Pipeline) pause(ctx context.Context) bool {
	if p.batchDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(p.batchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
