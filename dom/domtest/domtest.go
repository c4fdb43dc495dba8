// Package domtest provides an in-memory dom.Document for tests.
//
//	doc := domtest.NewDocument(
//		domtest.El("div", nil,
//			domtest.El("p", nil, domtest.Txt("Hello")),
//			domtest.El("p", domtest.Attrs{"class": "no-translate"}, domtest.Txt("Skip")),
//		),
//	)
package domtest

import (
	"strings"
	"sync"

	"github.com/ZaguanLabs/autotrans/dom"
)

// Attrs lists element attributes.
type Attrs map[string]string

// Element is an in-memory element.
type Element struct {
	tag      string
	attrs    map[string]string
	children []dom.Node
	parent   *Element
	doc      *Document
}

// Text is an in-memory text node.
type Text struct {
	data   string
	parent *Element
	doc    *Document
}

// El builds an element. Children may be *Element or *Text.
func El(tag string, attrs Attrs, children ...dom.Node) *Element {
	e := &Element{tag: strings.ToLower(tag), attrs: make(map[string]string, len(attrs))}
	for k, v := range attrs {
		e.attrs[k] = v
	}
	for _, c := range children {
		e.adopt(c)
	}
	return e
}

// Txt builds a text node.
func Txt(data string) *Text {
	return &Text{data: data}
}

// Texts builds one <p> per string, a handy way to get many candidates.
func Texts(items ...string) []dom.Node {
	out := make([]dom.Node, len(items))
	for i, s := range items {
		out[i] = El("p", nil, Txt(s))
	}
	return out
}

func (e *Element) adopt(n dom.Node) {
	switch c := n.(type) {
	case *Element:
		c.parent = e
		c.setDoc(e.doc)
	case *Text:
		c.parent = e
		c.doc = e.doc
	}
	e.children = append(e.children, n)
}

func (e *Element) setDoc(d *Document) {
	e.doc = d
	for _, c := range e.children {
		switch c := c.(type) {
		case *Element:
			c.setDoc(d)
		case *Text:
			c.doc = d
		}
	}
}

func (e *Element) Parent() dom.Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *Element) Tag() string { return e.tag }

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *Element) SetAttr(name, value string) {
	e.attrs[name] = value
	e.doc.record(dom.Mutation{Type: dom.Attributes, Target: e, Name: name})
}

func (e *Element) RemoveAttr(name string) {
	if _, ok := e.attrs[name]; !ok {
		return
	}
	delete(e.attrs, name)
	e.doc.record(dom.Mutation{Type: dom.Attributes, Target: e, Name: name})
}

func (e *Element) HasClass(class string) bool {
	for _, c := range strings.Fields(e.attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

// Matches supports comma-separated lists of tag, .class, #id, [attr] and
// [attr=value] selectors.
func (e *Element) Matches(selector string) bool {
	for _, part := range strings.Split(selector, ",") {
		if e.matchSimple(strings.TrimSpace(part)) {
			return true
		}
	}
	return false
}

func (e *Element) matchSimple(sel string) bool {
	switch {
	case sel == "":
		return false
	case strings.HasPrefix(sel, "."):
		return e.HasClass(sel[1:])
	case strings.HasPrefix(sel, "#"):
		return e.attrs["id"] == sel[1:]
	case strings.HasPrefix(sel, "[") && strings.HasSuffix(sel, "]"):
		name, value, hasValue := strings.Cut(sel[1:len(sel)-1], "=")
		got, ok := e.attrs[name]
		if !hasValue {
			return ok
		}
		return ok && got == strings.Trim(value, `"'`)
	default:
		return e.tag == strings.ToLower(sel)
	}
}

func (e *Element) Children() []dom.Node {
	return append([]dom.Node(nil), e.children...)
}

func (t *Text) Parent() dom.Element {
	if t.parent == nil {
		return nil
	}
	return t.parent
}

func (t *Text) Data() string { return t.data }

func (t *Text) SetData(data string) {
	t.data = data
	t.doc.record(dom.Mutation{Type: dom.CharacterData, Target: t})
}

// Document is an in-memory dom.Document. Test code that touches nodes
// directly must do so through Do or the mutation helpers.
type Document struct {
	mu        sync.Mutex
	body      *Element
	pending   []dom.Mutation
	observers dom.Observers
}

// NewDocument wraps children in a body element.
func NewDocument(children ...dom.Node) *Document {
	d := &Document{}
	d.body = El("body", nil, children...)
	d.body.setDoc(d)
	return d
}

// Body returns the body element. Reading it outside Do is only safe while
// no pass is running.
func (d *Document) Body() *Element {
	return d.body
}

func (d *Document) Do(fn func(body dom.Element)) {
	d.observers.Notify(d.locked(func() { fn(d.body) }))
}

func (d *Document) Observe(fn func([]dom.Mutation)) (stop func()) {
	return d.observers.Add(fn)
}

// Append adds nodes to parent as a script inserting content would.
func (d *Document) Append(parent *Element, nodes ...dom.Node) {
	d.observers.Notify(d.locked(func() {
		for _, n := range nodes {
			parent.adopt(n)
		}
		parent.setDoc(d)
		d.record(dom.Mutation{Type: dom.ChildList, Target: parent, Added: len(nodes)})
	}))
}

// Detach removes n from its parent.
func (d *Document) Detach(n dom.Node) {
	d.observers.Notify(d.locked(func() {
		var parent *Element
		switch c := n.(type) {
		case *Element:
			parent, c.parent = c.parent, nil
		case *Text:
			parent, c.parent = c.parent, nil
		}
		if parent == nil {
			return
		}
		for i, child := range parent.children {
			if child == n {
				parent.children = append(parent.children[:i:i], parent.children[i+1:]...)
				break
			}
		}
		d.record(dom.Mutation{Type: dom.ChildList, Target: parent})
	}))
}

// SetText changes a text node as a user edit would.
func (d *Document) SetText(t *Text, data string) {
	d.observers.Notify(d.locked(func() { t.SetData(data) }))
}

// TextContent returns the trimmed data of every non-blank text node under
// the body, in document order.
func (d *Document) TextContent() []string {
	var out []string
	d.locked(func() {
		dom.Walk(d.body, func(n dom.Node) dom.Visit {
			if t, ok := n.(*Text); ok {
				if s := strings.TrimSpace(t.data); s != "" {
					out = append(out, s)
				}
			}
			return dom.Continue
		})
	})
	return out
}

func (d *Document) locked(fn func()) []dom.Mutation {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
	records := d.pending
	d.pending = nil
	return records
}

func (d *Document) record(m dom.Mutation) {
	if d == nil {
		return
	}
	d.pending = append(d.pending, m)
}

var (
	_ dom.Document = (*Document)(nil)
	_ dom.Element  = (*Element)(nil)
	_ dom.Text     = (*Text)(nil)
)
