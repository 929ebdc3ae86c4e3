package tracker

// Window is a fixed-capacity FIFO buffer. Appending past capacity evicts
// exactly the oldest entry. It feeds the recency-weighted statistics and
// never affects the cumulative counters.
type Window[T any] struct {
	capacity int
	items    []T
}

// NewWindow creates a Window holding at most capacity entries.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{capacity: capacity}
}

// Append adds v, evicting the oldest entry when the window is full.
func (w *Window[T]) Append(v T) {
	if len(w.items) == w.capacity {
		copy(w.items, w.items[1:])
		w.items[len(w.items)-1] = v
		return
	}
	w.items = append(w.items, v)
}

// Len returns the number of buffered entries.
func (w *Window[T]) Len() int {
	return len(w.items)
}

// Values returns a copy of the buffered entries, oldest first.
func (w *Window[T]) Values() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}
