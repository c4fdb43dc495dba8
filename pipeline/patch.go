package pipeline

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/dom"
)

// apply writes one batch of translations into the tree and returns the
// number of text nodes changed. The caller holds the document.
func apply(body dom.Element, batch []pending, translated []string, lang string) int {
	changed := 0
	for i, item := range batch {
		if i >= len(translated) {
			break
		}
		tr := translated[i]
		if tr == "" || tr == item.Text {
			continue
		}
		if !dom.Contains(body, item.Node) || item.Node.Data() != item.raw {
			continue
		}
		owner := item.Node.Parent()
		if owner == nil {
			continue
		}

		recordOriginal(owner, ownIndex(owner, item.Node), item.raw)
		item.Node.SetData(preserveWhitespace(item.raw, tr))
		owner.SetAttr(autotrans.AttrTranslated, lang)
		changed++
	}
	return changed
}

// recordOriginal stores the text of the owner's own text node at index.
// The first translated node goes into data-original-text with its index
// beside it; later ones get an attribute per index. An original already
// recorded is never overwritten, so repeated passes keep the source text.
func recordOriginal(owner dom.Element, index int, raw string) {
	if _, ok := owner.Attr(autotrans.AttrOriginalText); !ok {
		owner.SetAttr(autotrans.AttrOriginalText, raw)
		owner.SetAttr(autotrans.AttrOriginalIndex, strconv.Itoa(index))
		return
	}
	if first, ok := originalIndex(owner); ok && first == index {
		return
	}
	name := autotrans.OriginalTextAttr(index)
	if _, ok := owner.Attr(name); !ok {
		owner.SetAttr(name, raw)
	}
}

// restoreMarked reverts the elements under root whose translated marker
// satisfies match. Every recorded original goes back into the own text
// node it was taken from, then all markers are removed.
func restoreMarked(root dom.Element, match func(lang string) bool) int {
	var marked []dom.Element
	dom.Walk(root, func(n dom.Node) dom.Visit {
		if el, ok := n.(dom.Element); ok {
			if lang, ok := el.Attr(autotrans.AttrTranslated); ok && match(lang) {
				marked = append(marked, el)
			}
		}
		return dom.Continue
	})

	for _, el := range marked {
		restoreElement(el)
	}
	return len(marked)
}

func restoreElement(el dom.Element) {
	own := dom.OwnText(el)

	for i, t := range own {
		name := autotrans.OriginalTextAttr(i)
		if original, ok := el.Attr(name); ok {
			t.SetData(original)
			el.RemoveAttr(name)
		}
	}
	if original, ok := el.Attr(autotrans.AttrOriginalText); ok {
		if i, ok := originalIndex(el); ok && i < len(own) {
			own[i].SetData(original)
		} else if t := firstNonBlank(own); t != nil {
			// Recorded without an index, or the text nodes changed since.
			t.SetData(original)
		}
	}

	el.RemoveAttr(autotrans.AttrTranslated)
	el.RemoveAttr(autotrans.AttrOriginalText)
	el.RemoveAttr(autotrans.AttrOriginalIndex)
}

func originalIndex(el dom.Element) (int, bool) {
	v, ok := el.Attr(autotrans.AttrOriginalIndex)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ownIndex returns the position of t among the direct text children of owner.
func ownIndex(owner dom.Element, t dom.Text) int {
	for i, own := range dom.OwnText(owner) {
		if own == t {
			return i
		}
	}
	return 0
}

func firstNonBlank(own []dom.Text) dom.Text {
	for _, t := range own {
		if strings.TrimSpace(t.Data()) != "" {
			return t
		}
	}
	return nil
}

// preserveWhitespace keeps the original's leading and trailing whitespace
// around the translation.
func preserveWhitespace(original, translated string) string {
	trimmedLeft := strings.TrimLeftFunc(original, unicode.IsSpace)
	leading := original[:len(original)-len(trimmedLeft)]
	trailing := trimmedLeft[len(strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)):]
	return leading + strings.TrimSpace(translated) + trailing
}
