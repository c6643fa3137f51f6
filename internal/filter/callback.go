package filter

import (
	"cmp"
	"slices"
	"sync"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
)

// Callback is a filter plus the function to run on matching messages.
type Callback struct {
	Filter Filter
	Fn     func(msg *message.Message)
}

// NewCallback creates a Callback. A nil filter matches everything.
func NewCallback(f Filter, fn func(msg *message.Message)) *Callback {
	if f == nil {
		f = Any()
	}
	return &Callback{Filter: f, Fn: fn}
}

// CallIfMatch runs the callback if msg passes the filter.
func (c *Callback) CallIfMatch(msg *message.Message) bool {
	if c == nil || c.Fn == nil || !c.Filter.Match(msg) {
		return false
	}
	c.Fn(msg)
	return true
}

type slot struct {
	id int
	cb *Callback
}

// Registry holds callbacks under stable ids. Freed slots are reused; ids
// are never reused.
type Registry struct {
	mu     sync.Mutex
	slots  []slot
	free   []int
	index  map[int]int
	nextID int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[int]int)}
}

// Add registers cb and returns its id.
func (r *Registry) Add(cb *Callback) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	s := slot{id: id, cb: cb}
	if n := len(r.free); n > 0 {
		i := r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[i] = s
		r.index[id] = i
	} else {
		r.slots = append(r.slots, s)
		r.index[id] = len(r.slots) - 1
	}
	return id
}

// Remove unregisters the callback with the given id.
func (r *Registry) Remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return false
	}
	delete(r.index, id)
	r.slots[i] = slot{}
	r.free = append(r.free, i)
	return true
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}

// Dispatch offers msg to every registered callback in registration order
// and returns how many matched. Callbacks run on the caller's goroutine
// without the lock held.
func (r *Registry) Dispatch(msg *message.Message) int {
	r.mu.Lock()
	snapshot := make([]slot, 0, len(r.index))
	for _, s := range r.slots {
		if s.cb != nil {
			snapshot = append(snapshot, s)
		}
	}
	r.mu.Unlock()

	// Slot order differs from id order once freed slots are reused.
	slices.SortFunc(snapshot, func(a, b slot) int { return cmp.Compare(a.id, b.id) })

	matched := 0
	for _, s := range snapshot {
		if s.cb.CallIfMatch(msg) {
			matched++
		}
	}
	return matched
}
