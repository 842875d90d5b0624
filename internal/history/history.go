// Package history keeps a linear undo/redo log of immutable snapshots.
//
// Mutators receive the current snapshot and must return a new value
// without modifying the one they were given.
package history

type History[S any] struct {
	entries []S
	cursor  int
	limit   int
}

type Option func(*config)

type config struct {
	limit int
}

// WithLimit caps the number of retained snapshots. Values <= 0 keep
// everything.
func WithLimit(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

func New[S any](initial S, opts ...Option) *History[S] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &History[S]{entries: []S{initial}, limit: cfg.limit}
}

// Reset discards all entries and starts over from initial. The new entry
// is not undoable.
func (h *History[S]) Reset(initial S) {
	h.entries = []S{initial}
	h.cursor = 0
}

// Apply drops the redo tail and appends mutate(Current()).
func (h *History[S]) Apply(mutate func(S) S) {
	h.entries = h.entries[:h.cursor+1]
	next := mutate(h.entries[h.cursor])
	h.entries = append(h.entries, next)
	h.cursor = len(h.entries) - 1
	h.trim()
}

// Replace drops the redo tail and overwrites the current entry.
func (h *History[S]) Replace(mutate func(S) S) {
	h.entries = h.entries[:h.cursor+1]
	h.entries[h.cursor] = mutate(h.entries[h.cursor])
}

func (h *History[S]) Undo() bool {
	if h.cursor == 0 {
		return false
	}
	h.cursor--
	return true
}

func (h *History[S]) Redo() bool {
	if h.cursor >= len(h.entries)-1 {
		return false
	}
	h.cursor++
	return true
}

func (h *History[S]) Current() S {
	return h.entries[h.cursor]
}

func (h *History[S]) CanUndo() bool {
	return h.cursor > 0
}

func (h *History[S]) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

func (h *History[S]) Len() int {
	return len(h.entries)
}

func (h *History[S]) Cursor() int {
	return h.cursor
}

func (h *History[S]) trim() {
	if h.limit <= 0 || len(h.entries) <= h.limit {
		return
	}
	drop := len(h.entries) - h.limit
	var zero S
	for i := 0; i < drop; i++ {
		h.entries[i] = zero
	}
	h.entries = append([]S(nil), h.entries[drop:]...)
	h.cursor -= drop
	if h.cursor < 0 {
		h.cursor = 0
	}
}
