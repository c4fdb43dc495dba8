package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/dom"
	"github.com/ZaguanLabs/autotrans/dom/domtest"
)

// fakeTranslator prefixes texts with the target language.
type fakeTranslator struct {
	mu      sync.Mutex
	batches [][]string
	failOn  map[int]bool // 1-based batch numbers that fail
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeTranslator) TryTranslateBatch(ctx context.Context, texts []string, targetLang string, sourceLang ...string) ([]string, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	n := len(f.batches)
	f.mu.Unlock()

	fallback := append([]string(nil), texts...)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return fallback, ctx.Err()
		}
	}
	if f.failOn[n] {
		return fallback, errors.New("backend unavailable")
	}

	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = targetLang + ":" + text
	}
	return out, nil
}

func (f *fakeTranslator) calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.batches...)
}

func newTestPipeline(tr BatchTranslator, opts ...Option) *Pipeline {
	return New(tr, nil, append([]Option{WithBatchDelay(0)}, opts...)...)
}

func lessonDocument() (*domtest.Document, []*domtest.Text) {
	texts := []*domtest.Text{
		domtest.Txt("Photosynthesis"),
		domtest.Txt("\n    Plants make food from sunlight.  "),
		domtest.Txt("Water moves up the stem."),
	}
	doc := domtest.NewDocument(
		domtest.El("h1", nil, texts[0]),
		domtest.El("div", domtest.Attrs{"class": "content"},
			domtest.El("p", nil, texts[1]),
			domtest.El("p", nil, texts[2]),
			domtest.El("pre", domtest.Attrs{autotrans.AttrNoTranslate: ""}, domtest.Txt("x = y + 1")),
		),
	)
	return doc, texts
}

func TestTranslate_PatchesAndMarks(t *testing.T) {
	doc, texts := lessonDocument()
	tr := &fakeTranslator{}
	p := newTestPipeline(tr)

	result, err := p.Translate(context.Background(), doc, "hi")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if result.Candidates != 3 || result.Translated != 3 || result.Batches != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.ID == "" {
		t.Error("pass should have an ID")
	}
	if got := texts[1].Data(); got != "\n    hi:Plants make food from sunlight.  " {
		t.Errorf("whitespace not preserved: %q", got)
	}

	owner := texts[0].Parent()
	if lang, _ := owner.Attr(autotrans.AttrTranslated); lang != "hi" {
		t.Errorf("owner marker = %q, want hi", lang)
	}
	if orig, _ := owner.Attr(autotrans.AttrOriginalText); orig != "Photosynthesis" {
		t.Errorf("recorded original = %q", orig)
	}
	if p.State() != Idle {
		t.Error("pipeline should be idle after the pass")
	}
}

func TestTranslate_Idempotent(t *testing.T) {
	doc, _ := lessonDocument()
	tr := &fakeTranslator{}
	p := newTestPipeline(tr)

	if _, err := p.Translate(context.Background(), doc, "hi"); err != nil {
		t.Fatal(err)
	}
	once := doc.TextContent()

	result, err := p.Translate(context.Background(), doc, "hi")
	if err != nil {
		t.Fatal(err)
	}
	twice := doc.TextContent()

	if strings.Join(once, "|") != strings.Join(twice, "|") {
		t.Errorf("second pass changed the document:\n%q\n%q", once, twice)
	}
	if result.Candidates != 0 || len(tr.calls()) != 1 {
		t.Errorf("second pass should be a no-op, got %+v after %d calls", result, len(tr.calls()))
	}
}

func TestTranslate_RoundTrip(t *testing.T) {
	doc, texts := lessonDocument()
	before := make([]string, len(texts))
	for i, txt := range texts {
		before[i] = txt.Data()
	}

	p := newTestPipeline(&fakeTranslator{})
	if _, err := p.Translate(context.Background(), doc, "kn"); err != nil {
		t.Fatal(err)
	}

	restored, err := p.Restore(context.Background(), doc)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored != 3 {
		t.Errorf("restored %d elements, want 3", restored)
	}

	for i, txt := range texts {
		if txt.Data() != before[i] {
			t.Errorf("text %d = %q, want exact original %q", i, txt.Data(), before[i])
		}
		owner := txt.Parent()
		if _, ok := owner.Attr(autotrans.AttrTranslated); ok {
			t.Errorf("text %d: translated marker not cleared", i)
		}
		if _, ok := owner.Attr(autotrans.AttrOriginalText); ok {
			t.Errorf("text %d: original marker not cleared", i)
		}
	}
}

func TestTranslate_SwitchBetweenTargetLanguages(t *testing.T) {
	doc, texts := lessonDocument()
	tr := &fakeTranslator{}
	p := newTestPipeline(tr)

	p.Translate(context.Background(), doc, "hi")
	result, err := p.Translate(context.Background(), doc, "ta")
	if err != nil {
		t.Fatal(err)
	}

	if result.Restored != 3 {
		t.Errorf("expected 3 elements restored before scanning, got %d", result.Restored)
	}
	if got := texts[0].Data(); got != "ta:Photosynthesis" {
		t.Errorf("expected translation from the source text, got %q", got)
	}
	if orig, _ := texts[0].Parent().Attr(autotrans.AttrOriginalText); orig != "Photosynthesis" {
		t.Errorf("original should still be the source text, got %q", orig)
	}
}

func TestTranslate_SourceLanguageRestores(t *testing.T) {
	doc, texts := lessonDocument()
	tr := &fakeTranslator{}
	p := newTestPipeline(tr)

	p.Translate(context.Background(), doc, "hi")
	result, err := p.Translate(context.Background(), doc, "en")
	if err != nil {
		t.Fatal(err)
	}

	if result.Restored != 3 || result.Candidates != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if texts[0].Data() != "Photosynthesis" {
		t.Errorf("text not restored: %q", texts[0].Data())
	}
	if len(tr.calls()) != 1 {
		t.Errorf("source language pass must not call the backend, got %d calls", len(tr.calls()))
	}
}

func TestTranslate_Batching(t *testing.T) {
	items := make([]string, 45)
	for i := range items {
		items[i] = fmt.Sprintf("Sentence number %d", i)
	}
	doc := domtest.NewDocument(domtest.Texts(items...)...)
	tr := &fakeTranslator{}
	p := newTestPipeline(tr, WithBatchSize(20))

	result, err := p.Translate(context.Background(), doc, "hi")
	if err != nil {
		t.Fatal(err)
	}

	calls := tr.calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 batch calls, got %d", len(calls))
	}
	for i, want := range []int{20, 20, 5} {
		if len(calls[i]) != want {
			t.Errorf("batch %d has %d texts, want %d", i, len(calls[i]), want)
		}
	}
	for i, first := range []int{0, 20, 40} {
		if calls[i][0] != items[first] {
			t.Errorf("batch %d starts with %q, want %q", i, calls[i][0], items[first])
		}
	}
	if result.Batches != 3 || result.Translated != 45 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestTranslate_PacesBatches(t *testing.T) {
	doc := domtest.NewDocument(domtest.Texts("First text", "Second text", "Third text")...)
	p := New(&fakeTranslator{}, nil, WithBatchSize(1), WithBatchDelay(20*time.Millisecond))

	result, err := p.Translate(context.Background(), doc, "hi")
	if err != nil {
		t.Fatal(err)
	}
	if result.Elapsed < 40*time.Millisecond {
		t.Errorf("3 batches should take at least 2 pauses, took %v", result.Elapsed)
	}
}

func TestTranslate_FailedBatchIsSkipped(t *testing.T) {
	doc := domtest.NewDocument(domtest.Texts("One text", "Two text", "Three text")...)
	tr := &fakeTranslator{failOn: map[int]bool{2: true}}
	p := newTestPipeline(tr, WithBatchSize(1))

	result, err := p.Translate(context.Background(), doc, "hi")
	if err != nil {
		t.Fatalf("a failed batch must not fail the pass: %v", err)
	}

	got := doc.TextContent()
	want := []string{"hi:One text", "Two text", "hi:Three text"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("text %d = %q, want %q", i, got[i], want[i])
		}
	}
	if result.FailedBatches != 1 || result.Translated != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestTranslate_SkipsNodesChangedInFlight(t *testing.T) {
	kept := domtest.Txt("Stays attached")
	removedP := domtest.El("p", nil, domtest.Txt("Gets removed"))
	edited := domtest.Txt("Gets edited")
	doc := domtest.NewDocument(
		domtest.El("p", nil, kept),
		removedP,
		domtest.El("p", nil, edited),
	)

	tr := &fakeTranslator{entered: make(chan struct{}), gate: make(chan struct{})}
	p := newTestPipeline(tr)

	done := make(chan *PassResult)
	go func() {
		result, _ := p.Translate(context.Background(), doc, "hi")
		done <- result
	}()

	<-tr.entered
	doc.Detach(removedP)
	doc.SetText(edited, "Edited by the user")
	close(tr.gate)
	result := <-done

	if kept.Data() != "hi:Stays attached" {
		t.Errorf("attached node not translated: %q", kept.Data())
	}
	if edited.Data() != "Edited by the user" {
		t.Errorf("user edit overwritten: %q", edited.Data())
	}
	if _, ok := removedP.Attr(autotrans.AttrTranslated); ok {
		t.Error("detached element should not be marked")
	}
	if result.Translated != 1 {
		t.Errorf("expected 1 node translated, got %d", result.Translated)
	}
}

func TestTranslate_CancelStopsApplying(t *testing.T) {
	doc, texts := lessonDocument()
	tr := &fakeTranslator{entered: make(chan struct{}), gate: make(chan struct{})}
	p := newTestPipeline(tr)

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		result *PassResult
		err    error
	}
	done := make(chan outcome)
	go func() {
		result, err := p.Translate(ctx, doc, "hi")
		done <- outcome{result, err}
	}()

	<-tr.entered
	cancel()
	out := <-done

	if !errors.Is(out.err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", out.err)
	}
	if !out.result.Cancelled || out.result.Translated != 0 {
		t.Errorf("unexpected result: %+v", out.result)
	}
	if texts[0].Data() != "Photosynthesis" {
		t.Errorf("cancelled pass must not patch, got %q", texts[0].Data())
	}
}

func TestTranslate_AlreadyRunning(t *testing.T) {
	doc, _ := lessonDocument()
	tr := &fakeTranslator{entered: make(chan struct{}), gate: make(chan struct{})}
	p := newTestPipeline(tr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Translate(context.Background(), doc, "hi")
	}()
	<-tr.entered

	if !p.Busy() {
		t.Error("pipeline should report busy during a pass")
	}
	if _, err := p.Translate(context.Background(), doc, "ta"); !errors.Is(err, autotrans.ErrPassRunning) {
		t.Errorf("expected ErrPassRunning, got %v", err)
	}
	if _, err := p.Restore(context.Background(), doc); !errors.Is(err, autotrans.ErrPassRunning) {
		t.Errorf("expected ErrPassRunning from Restore, got %v", err)
	}

	close(tr.gate)
	<-done
	if p.Busy() {
		t.Error("pipeline should be idle again")
	}
}

func TestTranslate_FirstWriteWins(t *testing.T) {
	text := domtest.Txt("Already changed")
	owner := domtest.El("p", domtest.Attrs{autotrans.AttrOriginalText: "True original"}, text)
	doc := domtest.NewDocument(owner)

	p := newTestPipeline(&fakeTranslator{})
	p.Translate(context.Background(), doc, "hi")

	if orig, _ := owner.Attr(autotrans.AttrOriginalText); orig != "True original" {
		t.Errorf("recorded original overwritten: %q", orig)
	}
	p.Restore(context.Background(), doc)
	if text.Data() != "True original" {
		t.Errorf("restore should use the first recorded original, got %q", text.Data())
	}
}

func TestRoundTrip_MixedContent(t *testing.T) {
	lead := domtest.Txt("Three ")
	nested := domtest.Txt("apples")
	tail := domtest.Txt(" are red")
	owner := domtest.El("p", nil, lead, domtest.El("b", nil, nested), tail)
	doc := domtest.NewDocument(owner)
	p := newTestPipeline(&fakeTranslator{})

	for _, lang := range []string{"hi", "ta"} {
		if _, err := p.Translate(context.Background(), doc, lang); err != nil {
			t.Fatalf("Translate(%s): %v", lang, err)
		}
		if got := lead.Data(); got != lang+":Three " {
			t.Errorf("%s: lead = %q", lang, got)
		}
		if got := tail.Data(); got != " "+lang+":are red" {
			t.Errorf("%s: tail = %q", lang, got)
		}
	}

	if _, err := p.Restore(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if lead.Data() != "Three " || nested.Data() != "apples" || tail.Data() != " are red" {
		t.Errorf("after restore: %q %q %q", lead.Data(), nested.Data(), tail.Data())
	}
	for _, name := range []string{
		autotrans.AttrTranslated,
		autotrans.AttrOriginalText,
		autotrans.AttrOriginalIndex,
		autotrans.OriginalTextAttr(1),
	} {
		if _, ok := owner.Attr(name); ok {
			t.Errorf("%s left after restore", name)
		}
	}
}

func TestRestore_LaterNodeOnly(t *testing.T) {
	lead := domtest.Txt("  ")
	tail := domtest.Txt("Good morning")
	owner := domtest.El("p", nil, lead, domtest.El("br", nil), tail)
	doc := domtest.NewDocument(owner)
	p := newTestPipeline(&fakeTranslator{})

	if _, err := p.Translate(context.Background(), doc, "hi"); err != nil {
		t.Fatal(err)
	}
	if idx, _ := owner.Attr(autotrans.AttrOriginalIndex); idx != "1" {
		t.Errorf("original index = %q, want 1", idx)
	}
	if _, err := p.Restore(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if lead.Data() != "  " || tail.Data() != "Good morning" {
		t.Errorf("after restore: %q %q", lead.Data(), tail.Data())
	}
}

func TestRestore_SkipsElementsWithoutText(t *testing.T) {
	owner := domtest.El("p", domtest.Attrs{
		autotrans.AttrTranslated:   "hi",
		autotrans.AttrOriginalText: "Lost",
	}, domtest.El("img", nil))
	doc := domtest.NewDocument(owner)

	n, err := newTestPipeline(&fakeTranslator{}).Restore(context.Background(), doc)
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	if _, ok := owner.Attr(autotrans.AttrTranslated); ok {
		t.Error("markers should be cleared even without a text node")
	}
}

func TestTranslate_HTMLDocument(t *testing.T) {
	doc, err := dom.ParseHTMLString(`<html><body><h1> Welcome </h1><script>var x = "skip";</script></body></html>`)
	if err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(&fakeTranslator{})
	if _, err := p.Translate(context.Background(), doc, "bn"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.String(), `<h1 data-original-text=" Welcome " data-translated="bn"> bn:Welcome </h1>`) {
		t.Errorf("unexpected page: %s", doc.String())
	}

	p.Restore(context.Background(), doc)
	if !strings.Contains(doc.String(), "<h1> Welcome </h1>") {
		t.Errorf("page not restored: %s", doc.String())
	}
}

func TestPreserveWhitespace(t *testing.T) {
	tests := []struct {
		original, translated, want string
	}{
		{"Hello", "नमस्ते", "नमस्ते"},
		{"  Hello\n", "नमस्ते", "  नमस्ते\n"},
		{"\tHello", " नमस्ते ", "\tनमस्ते"},
	}
	for _, tt := range tests {
		if got := preserveWhitespace(tt.original, tt.translated); got != tt.want {
			t.Errorf("preserveWhitespace(%q, %q) = %q, want %q", tt.original, tt.translated, got, tt.want)
		}
	}
}
