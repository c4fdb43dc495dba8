package dom

import "sync"

// Observers is a registry of mutation callbacks. The zero value is ready
// to use.
type Observers struct {
	mu   sync.Mutex
	next int
	fns  []observer
}

type observer struct {
	id int
	fn func([]Mutation)
}

// Add registers fn and returns a func that unregisters it.
func (o *Observers) Add(fn func([]Mutation)) (stop func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	o.fns = append(o.fns, observer{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, obs := range o.fns {
				if obs.id == id {
					o.fns = append(o.fns[:i:i], o.fns[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify delivers records to every observer in registration order. It must
// not be called while holding the document lock.
func (o *Observers) Notify(records []Mutation) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	fns := make([]func([]Mutation), len(o.fns))
	for i, obs := range o.fns {
		fns[i] = obs.fn
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(records)
	}
}
