// Package dom abstracts the document tree the translation pipeline reads
// and patches.
//
// A Document hands out its body only inside Do, which serialises all reads
// and writes. Mutations made inside Do are delivered to observers after the
// critical section ends, so an observer may call Do itself.
package dom

// Node is a node in a document tree.
type Node interface {
	// Parent returns the parent element, or nil for a detached node or the root.
	Parent() Element
}

// Text is a text-bearing leaf node.
type Text interface {
	Node
	Data() string
	SetData(data string)
}

// Element is an element node carrying attributes and children.
type Element interface {
	Node
	Tag() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	HasClass(class string) bool
	// Matches reports whether the element matches a CSS selector. Invalid
	// selectors match nothing.
	Matches(selector string) bool
	Children() []Node
}

// Document is a tree whose body can be read and patched.
type Document interface {
	// Do runs fn with exclusive access to the body element.
	Do(fn func(body Element))
	// Observe registers fn to receive the mutation records of each Do call
	// and of any other content change. The returned func unregisters it.
	Observe(fn func([]Mutation)) (stop func())
}

// MutationType classifies a mutation record.
type MutationType int

const (
	// ChildList records nodes added to or removed from an element.
	ChildList MutationType = iota
	// CharacterData records a change of a text node's data.
	CharacterData
	// Attributes records an attribute change.
	Attributes
)

func (t MutationType) String() string {
	switch t {
	case ChildList:
		return "childList"
	case CharacterData:
		return "characterData"
	case Attributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// Mutation describes one change to a document.
type Mutation struct {
	Type   MutationType
	Target Node
	Added  int    // nodes added, for ChildList
	Name   string // attribute name, for Attributes
}

// Visit tells Walk how to proceed after visiting a node.
type Visit int

const (
	// Continue descends into the node's children.
	Continue Visit = iota
	// SkipChildren moves on to the next sibling.
	SkipChildren
	// Stop ends the walk.
	Stop
)

// Walk visits n and its descendants in document order. It returns false if
// fn stopped the walk.
func Walk(n Node, fn func(Node) Visit) bool {
	switch fn(n) {
	case Stop:
		return false
	case SkipChildren:
		return true
	}
	el, ok := n.(Element)
	if !ok {
		return true
	}
	for _, child := range el.Children() {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// OwnText returns the direct text children of e.
func OwnText(e Element) []Text {
	var out []Text
	for _, child := range e.Children() {
		if t, ok := child.(Text); ok {
			out = append(out, t)
		}
	}
	return out
}

// Closest returns the nearest element, starting at n itself, for which
// match returns true.
func Closest(n Node, match func(Element) bool) Element {
	el, ok := n.(Element)
	if !ok {
		el = n.Parent()
	}
	for el != nil {
		if match(el) {
			return el
		}
		el = el.Parent()
	}
	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root Element, n Node) bool {
	if el, ok := n.(Element); ok && el == root {
		return true
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == root {
			return true
		}
	}
	return false
}
