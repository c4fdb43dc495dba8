package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ZaguanLabs/autotrans/dom"
)

// DefaultDebounce is the quiet period before a watcher re-runs a pass.
const DefaultDebounce = time.Second

// Watcher re-runs translation when content is added to or edited in a
// document. Mutations that arrive while busy reports true are ignored: they
// are the pass's own writes.
type Watcher struct {
	doc      dom.Document
	busy     func() bool
	trigger  func()
	debounce time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	debouncer *Debouncer
	stop      func()
}

// WatcherOption is a functional option for configuring the Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a stopped Watcher calling trigger after content changes.
func NewWatcher(doc dom.Document, busy func() bool, trigger func(), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		doc:      doc,
		busy:     busy,
		trigger:  trigger,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins observing the document. Starting a started watcher is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stop != nil {
		return
	}
	w.debouncer = NewDebouncer(w.debounce, w.trigger)
	w.stop = w.doc.Observe(w.handle)
}

// Stop stops observing and drops any scheduled run.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stop == nil {
		return
	}
	w.stop()
	w.stop = nil
	w.debouncer.Stop()
}

// Flush runs a scheduled trigger immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	d := w.debouncer
	w.mu.Unlock()
	if d != nil {
		d.Flush()
	}
}

func (w *Watcher) handle(records []dom.Mutation) {
	if w.busy != nil && w.busy() {
		return
	}
	for _, r := range records {
		if (r.Type == dom.ChildList && r.Added > 0) || r.Type == dom.CharacterData {
			w.mu.Lock()
			d := w.debouncer
			w.mu.Unlock()
			if d != nil {
				w.logger.Debug("content changed, scheduling pass", zap.Stringer("mutation", r.Type))
				d.Trigger()
			}
			return
		}
	}
}
