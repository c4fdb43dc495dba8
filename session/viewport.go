package session

import "sync"

// Viewport is the reader's position in a document.
type Viewport interface {
	ScrollY() float64
	ScrollTo(y float64)
	// FocusedID returns the id of the focused element, or "".
	FocusedID() string
	// Focus focuses the element with id and reports whether it exists.
	Focus(id string) bool
}

// MemoryViewport is a Viewport for headless use.
type MemoryViewport struct {
	mu      sync.Mutex
	scrollY float64
	focused string
}

// ScrollY returns the last position passed to ScrollTo.
func (v *MemoryViewport) ScrollY() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollY
}

// ScrollTo records y as the scroll position.
func (v *MemoryViewport) ScrollTo(y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrollY = y
}

// FocusedID returns the id last passed to Focus.
func (v *MemoryViewport) FocusedID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.focused
}

// Focus records id as focused. Any non-empty id counts as existing.
func (v *MemoryViewport) Focus(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focused = id
	return id != ""
}

var _ Viewport = (*MemoryViewport)(nil)
