package autotrans

import (
	"context"
	"strconv"
)

// DefaultSourceLang is the language stored in markup.
const DefaultSourceLang = "en"

// Markers written on owner elements by the translation pipeline.
const (
	// AttrTranslated holds the language an element's text was translated into.
	AttrTranslated = "data-translated"
	// AttrOriginalText holds the text an element had before its first translation.
	AttrOriginalText = "data-original-text"
	// AttrOriginalIndex holds the position, among the element's own text
	// nodes, of the node whose text is in AttrOriginalText.
	AttrOriginalIndex = "data-original-index"
	// AttrNoTranslate opts an element and its subtree out of translation.
	AttrNoTranslate = "data-no-translate"
	// ClassNoTranslate is the class-based opt-out marker.
	ClassNoTranslate = "no-translate"
)

// OriginalTextAttr names the attribute holding the original of the
// element's own text node at index i, for nodes translated after the first.
func OriginalTextAttr(i int) string {
	return AttrOriginalText + "-" + strconv.Itoa(i)
}

// TranslationStyle controls the tone and formality of translations.
type TranslationStyle string

const (
	// StyleNeutral uses a neutral, professional tone suitable for general content.
	StyleNeutral TranslationStyle = "neutral"
	// StyleFormal uses formal language suitable for official documents.
	StyleFormal TranslationStyle = "formal"
	// StyleClassroom uses plain language a school student can follow.
	StyleClassroom TranslationStyle = "classroom"
)

// TextRequest is the body of a single-text translation call.
type TextRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_language"`
	SourceLang string `json:"source_language"`
}

// TextResponse is the body returned by a single-text translation call.
type TextResponse struct {
	TranslatedText *string `json:"translated_text"`
}

// BatchRequest is the body of a batch translation call.
type BatchRequest struct {
	Texts      []string `json:"texts"`
	TargetLang string   `json:"target_language"`
	SourceLang string   `json:"source_language"`
}

// BatchResponse is the body returned by a batch translation call.
// The translations are in the same order and of the same length as the request.
type BatchResponse struct {
	TranslatedTexts []string `json:"translated_texts"`
}

// Backend is a translation service reachable by the page client.
type Backend interface {
	TranslateText(ctx context.Context, req TextRequest) (string, error)
	TranslateBatch(ctx context.Context, req BatchRequest) ([]string, error)
}

// Provider is the interface for upstream machine translation engines.
type Provider interface {
	Translate(ctx context.Context, req ProviderRequest) ([]string, error)
}

// ProviderRequest contains the parameters for an upstream translation request.
type ProviderRequest struct {
	Texts         []string
	TargetLang    string
	SourceLang    string
	ExcludedTerms []string
	Context       string
	TextContexts  []string
	Glossary      map[string]string
	Style         TranslationStyle
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// DefaultExcludedTags contains tags whose text is never translated.
var DefaultExcludedTags = []string{"script", "style", "noscript"}

// DefaultExcludedSelectors contains selectors whose subtrees are never translated.
var DefaultExcludedSelectors = []string{"." + ClassNoTranslate}
