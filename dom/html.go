package dom

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/ZaguanLabs/autotrans"
)

// HTMLDocument is a Document over a parsed HTML page.
type HTMLDocument struct {
	mu        sync.Mutex
	root      *html.Node
	body      *html.Node
	pending   []Mutation
	observers Observers
	selectors sync.Map // selector string -> cascadia.Selector, nil if invalid
}

// ParseHTML parses a complete HTML page. A body element is always present
// in the result, as the HTML parser synthesises one.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &autotrans.DocumentError{Message: "parsing html", Cause: err}
	}
	body := gq.Find("body").Nodes
	if len(body) == 0 {
		return nil, &autotrans.DocumentError{Message: "document has no body"}
	}
	return &HTMLDocument{root: gq.Nodes[0], body: body[0]}, nil
}

// ParseHTMLString is ParseHTML over a string.
func ParseHTMLString(s string) (*HTMLDocument, error) {
	return ParseHTML(strings.NewReader(s))
}

// Do runs fn with exclusive access to the body.
func (d *HTMLDocument) Do(fn func(body Element)) {
	d.notify(d.locked(func() {
		fn(htmlElement{doc: d, n: d.body})
	}))
}

// Observe registers fn for mutation records.
func (d *HTMLDocument) Observe(fn func([]Mutation)) (stop func()) {
	return d.observers.Add(fn)
}

// ReplaceBody swaps the body's content for the body of the page read from
// r, as a reload of the source would. Observers see one ChildList record.
func (d *HTMLDocument) ReplaceBody(r io.Reader) error {
	next, err := ParseHTML(r)
	if err != nil {
		return err
	}

	records := d.locked(func() {
		for c := d.body.FirstChild; c != nil; c = d.body.FirstChild {
			d.body.RemoveChild(c)
		}
		added := 0
		for c := next.body.FirstChild; c != nil; c = next.body.FirstChild {
			next.body.RemoveChild(c)
			d.body.AppendChild(c)
			added++
		}
		d.record(Mutation{Type: ChildList, Target: htmlElement{doc: d, n: d.body}, Added: added})
	})
	d.notify(records)
	return nil
}

// AppendHTML parses fragment and appends it to every element matching
// selector. It returns the number of nodes added.
func (d *HTMLDocument) AppendHTML(selector, fragment string) (int, error) {
	var (
		added   int
		missing bool
	)
	records := d.locked(func() {
		targets := goquery.NewDocumentFromNode(d.root).Find(selector)
		if targets.Length() == 0 {
			missing = true
			return
		}
		targets.Each(func(_ int, s *goquery.Selection) {
			before := countChildren(s.Get(0))
			s.AppendHtml(fragment)
			n := countChildren(s.Get(0)) - before
			added += n
			d.record(Mutation{Type: ChildList, Target: htmlElement{doc: d, n: s.Get(0)}, Added: n})
		})
	})
	d.notify(records)

	if missing {
		return 0, &autotrans.DocumentError{Message: "no element matches " + selector}
	}
	return added, nil
}

// Render writes the whole page as HTML.
func (d *HTMLDocument) Render(w io.Writer) error {
	var (
		buf bytes.Buffer
		err error
	)
	d.locked(func() {
		err = html.Render(&buf, d.root)
	})
	if err != nil {
		return &autotrans.DocumentError{Message: "rendering html", Cause: err}
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// String returns the page as HTML.
func (d *HTMLDocument) String() string {
	var out string
	d.locked(func() {
		out, _ = goquery.NewDocumentFromNode(d.root).Html()
	})
	return out
}

// BodyText returns the visible text of the body with runs of whitespace
// collapsed.
func (d *HTMLDocument) BodyText() string {
	var out string
	d.locked(func() {
		out = strings.Join(strings.Fields(goquery.NewDocumentFromNode(d.body).Text()), " ")
	})
	return out
}

func (d *HTMLDocument) locked(fn func()) []Mutation {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
	records := d.pending
	d.pending = nil
	return records
}

func (d *HTMLDocument) notify(records []Mutation) {
	d.observers.Notify(records)
}

// record must be called with d.mu held.
func (d *HTMLDocument) record(m Mutation) {
	d.pending = append(d.pending, m)
}

func (d *HTMLDocument) selector(sel string) cascadia.Selector {
	if cached, ok := d.selectors.Load(sel); ok {
		return cached.(cascadia.Selector)
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		compiled = nil
	}
	d.selectors.Store(sel, compiled)
	return compiled
}

func countChildren(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

func wrap(d *HTMLDocument, n *html.Node) Node {
	switch n.Type {
	case html.ElementNode:
		return htmlElement{doc: d, n: n}
	case html.TextNode:
		return htmlText{doc: d, n: n}
	default:
		return nil
	}
}

type htmlElement struct {
	doc *HTMLDocument
	n   *html.Node
}

func (e htmlElement) Parent() Element {
	return parentOf(e.doc, e.n)
}

func (e htmlElement) Tag() string {
	return e.n.Data
}

func (e htmlElement) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e htmlElement) SetAttr(name, value string) {
	e.doc.record(Mutation{Type: Attributes, Target: e, Name: name})
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

func (e htmlElement) RemoveAttr(name string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			e.doc.record(Mutation{Type: Attributes, Target: e, Name: name})
			return
		}
	}
}

func (e htmlElement) HasClass(class string) bool {
	classes, _ := e.Attr("class")
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}
	return false
}

func (e htmlElement) Matches(selector string) bool {
	sel := e.doc.selector(selector)
	return sel != nil && sel.Match(e.n)
}

func (e htmlElement) Children() []Node {
	var out []Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if w := wrap(e.doc, c); w != nil {
			out = append(out, w)
		}
	}
	return out
}

type htmlText struct {
	doc *HTMLDocument
	n   *html.Node
}

func (t htmlText) Parent() Element {
	return parentOf(t.doc, t.n)
}

func (t htmlText) Data() string {
	return t.n.Data
}

func (t htmlText) SetData(data string) {
	t.n.Data = data
	t.doc.record(Mutation{Type: CharacterData, Target: t})
}

func parentOf(d *HTMLDocument, n *html.Node) Element {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil
	}
	return htmlElement{doc: d, n: n.Parent}
}

var _ Document = (*HTMLDocument)(nil)
