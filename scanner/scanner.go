// Package scanner finds the text nodes of a document that should be
// translated.
package scanner

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/dom"
)

// DefaultMinLength is the shortest trimmed text, in runes, worth translating.
const DefaultMinLength = 2

// codeLike matches text made only of brackets, punctuation, digits and whitespace.
var codeLike = regexp.MustCompile(`^[{}\[\]().,;:!@#$%^&*\-_=+|\\/<>?~` + "`" + `'"0-9\s]*$`)

// LooksLikeCode reports whether text is structured data rather than prose.
func LooksLikeCode(text string) bool {
	return codeLike.MatchString(text)
}

// Candidate is a text node eligible for translation.
type Candidate struct {
	Node  dom.Text
	Owner dom.Element
	Text  string // trimmed
}

// Scanner walks a tree and yields translation candidates.
type Scanner struct {
	excludedTags      map[string]bool
	excludedSelectors []string
	minLength         int
}

// Option is a functional option for configuring the Scanner.
type Option func(*Scanner)

// WithExcludedTags adds tags whose subtrees are never scanned.
func WithExcludedTags(tags ...string) Option {
	return func(s *Scanner) {
		for _, tag := range tags {
			s.excludedTags[strings.ToLower(strings.TrimSpace(tag))] = true
		}
	}
}

// WithExcludedSelectors adds selectors whose subtrees are never scanned.
func WithExcludedSelectors(selectors ...string) Option {
	return func(s *Scanner) {
		s.excludedSelectors = append(s.excludedSelectors, selectors...)
	}
}

// WithMinLength sets the minimum trimmed length in runes.
func WithMinLength(n int) Option {
	return func(s *Scanner) {
		s.minLength = n
	}
}

// New creates a Scanner excluding autotrans.DefaultExcludedTags and
// autotrans.DefaultExcludedSelectors plus whatever the options add.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		excludedTags: make(map[string]bool),
		minLength:    DefaultMinLength,
	}
	for _, tag := range autotrans.DefaultExcludedTags {
		s.excludedTags[tag] = true
	}
	s.excludedSelectors = append(s.excludedSelectors, autotrans.DefaultExcludedSelectors...)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan yields, in document order, the text nodes under root that still need
// translating into lang. The walk is lazy and each call starts afresh.
//
// Excluded tags, excluded selectors and the no-translate attribute prune the
// whole subtree. An element already translated into lang only hides its own
// text; its descendants are still scanned.
//
// The caller must hold the document for as long as it ranges over the
// sequence.
func (s *Scanner) Scan(root dom.Element, lang string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		dom.Walk(root, func(n dom.Node) dom.Visit {
			switch n := n.(type) {
			case dom.Element:
				if s.Excluded(n) {
					return dom.SkipChildren
				}
			case dom.Text:
				c, ok := s.candidate(n, lang)
				if ok && !yield(c) {
					return dom.Stop
				}
			}
			return dom.Continue
		})
	}
}

// Collect returns all candidates of one scan.
func (s *Scanner) Collect(root dom.Element, lang string) []Candidate {
	var out []Candidate
	for c := range s.Scan(root, lang) {
		out = append(out, c)
	}
	return out
}

// Excluded reports whether el opts its subtree out of translation.
func (s *Scanner) Excluded(el dom.Element) bool {
	if s.excludedTags[el.Tag()] {
		return true
	}
	if _, ok := el.Attr(autotrans.AttrNoTranslate); ok {
		return true
	}
	for _, sel := range s.excludedSelectors {
		if el.Matches(sel) {
			return true
		}
	}
	return false
}

func (s *Scanner) candidate(t dom.Text, lang string) (Candidate, bool) {
	owner := t.Parent()
	if owner == nil {
		return Candidate{}, false
	}
	if marked, ok := owner.Attr(autotrans.AttrTranslated); ok && marked == lang {
		return Candidate{}, false
	}

	trimmed := strings.TrimSpace(t.Data())
	if trimmed == "" || utf8.RuneCountInString(trimmed) < s.minLength {
		return Candidate{}, false
	}
	if LooksLikeCode(trimmed) {
		return Candidate{}, false
	}
	return Candidate{Node: t, Owner: owner, Text: trimmed}, true
}
