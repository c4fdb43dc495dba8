package scanner

import (
	"testing"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/dom"
	"github.com/ZaguanLabs/autotrans/dom/domtest"
)

func texts(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text
	}
	return out
}

func assertTexts(t *testing.T, got []Candidate, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got candidates %q, want %q", texts(got), want)
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestScan_Exclusion(t *testing.T) {
	root := domtest.El("div", nil,
		domtest.El("script", nil, domtest.Txt("ignored")),
		domtest.El("p", nil, domtest.Txt("Translate me")),
		domtest.El("p", domtest.Attrs{"class": "no-translate"}, domtest.Txt("Skip me")),
	)
	domtest.NewDocument(root)

	got := New().Collect(root, "hi")
	assertTexts(t, got, "Translate me")

	if got[0].Owner.Tag() != "p" {
		t.Errorf("owner = %q, want p", got[0].Owner.Tag())
	}
}

func TestScan_ExclusionInHTML(t *testing.T) {
	doc, err := dom.ParseHTMLString(`<html><body><div><script>ignored</script><p>Translate me</p><p class="no-translate">Skip me</p></div></body></html>`)
	if err != nil {
		t.Fatal(err)
	}

	doc.Do(func(body dom.Element) {
		assertTexts(t, New().Collect(body, "hi"), "Translate me")
	})
}

func TestScan_NoTranslatePrunesSubtree(t *testing.T) {
	root := domtest.El("div", nil,
		domtest.El("section", domtest.Attrs{autotrans.AttrNoTranslate: ""},
			domtest.El("p", nil, domtest.Txt("Deep inside")),
		),
		domtest.El("ul", domtest.Attrs{"class": "menu no-translate"},
			domtest.El("li", nil, domtest.El("a", nil, domtest.Txt("Home"))),
		),
		domtest.El("p", nil, domtest.Txt("Outside")),
	)
	domtest.NewDocument(root)

	assertTexts(t, New().Collect(root, "hi"), "Outside")
}

func TestScan_Filters(t *testing.T) {
	root := domtest.El("div", nil,
		domtest.El("p", nil, domtest.Txt("   ")),
		domtest.El("p", nil, domtest.Txt("a")),
		domtest.El("p", nil, domtest.Txt("{ [1, 2] }")),
		domtest.El("p", nil, domtest.Txt("3.14")),
		domtest.El("p", nil, domtest.Txt("  Ok  ")),
		domtest.El("p", nil, domtest.Txt("नम")),
		domtest.El("style", nil, domtest.Txt("p { color: red }")),
		domtest.El("noscript", nil, domtest.Txt("Enable JavaScript")),
	)
	domtest.NewDocument(root)

	assertTexts(t, New().Collect(root, "hi"), "Ok", "नम")
}

func TestScan_TranslatedMarker(t *testing.T) {
	root := domtest.El("div", nil,
		domtest.El("p", domtest.Attrs{autotrans.AttrTranslated: "hi"},
			domtest.Txt("नमस्ते"),
			domtest.El("b", nil, domtest.Txt("Nested")),
		),
		domtest.El("p", domtest.Attrs{autotrans.AttrTranslated: "ta"}, domtest.Txt("வணக்கம்")),
	)
	domtest.NewDocument(root)

	// Only the owner's own text is hidden; the nested element is still scanned
	assertTexts(t, New().Collect(root, "hi"), "Nested", "வணக்கம்")
}

func TestScan_Options(t *testing.T) {
	root := domtest.El("div", nil,
		domtest.El("code", nil, domtest.Txt("fmt.Println")),
		domtest.El("p", domtest.Attrs{"translate": "no"}, domtest.Txt("Brand")),
		domtest.El("p", nil, domtest.Txt("Hi")),
		domtest.El("p", nil, domtest.Txt("Hello")),
	)
	domtest.NewDocument(root)

	s := New(
		WithExcludedTags("CODE"),
		WithExcludedSelectors("[translate=no]"),
		WithMinLength(3),
	)
	assertTexts(t, s.Collect(root, "hi"), "Hello")
}

func TestScan_LazyAndRestartable(t *testing.T) {
	root := domtest.El("div", nil, domtest.Texts("one", "two", "three")...)
	domtest.NewDocument(root)
	s := New()

	seq := s.Scan(root, "hi")
	var first []string
	for c := range seq {
		first = append(first, c.Text)
		if len(first) == 2 {
			break
		}
	}
	if len(first) != 2 {
		t.Fatalf("expected early stop after 2, got %v", first)
	}

	var again []string
	for c := range seq {
		again = append(again, c.Text)
	}
	if len(again) != 3 || again[0] != "one" {
		t.Errorf("second range should rescan from the start, got %v", again)
	}
}

func TestLooksLikeCode(t *testing.T) {
	for _, text := range []string{"()", "[1, 2, 3]", "a == b"} {
		want := text != "a == b"
		if got := LooksLikeCode(text); got != want {
			t.Errorf("LooksLikeCode(%q) = %v, want %v", text, got, want)
		}
	}
}
