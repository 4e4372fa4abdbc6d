package commitment

import "errors"

// ErrPendingOverflow is returned by Push when the buffer is full.
var ErrPendingOverflow = errors.New("commitment: pending buffer overflow")

type held[T any] struct {
	slot uint64
	v    T
}

// Pending holds gated values for one session in arrival order, each tagged
// with the slot that gates it. It is not safe for concurrent use; the
// dispatcher owns it.
type Pending[T any] struct {
	limit int
	items []held[T]
}

// NewPending returns a buffer holding at most limit values.
func NewPending[T any](limit int) *Pending[T] {
	return &Pending[T]{limit: limit}
}

// Push appends v gated on slot. The buffer is left unchanged on overflow.
func (p *Pending[T]) Push(slot uint64, v T) error {
	if len(p.items) >= p.limit {
		return ErrPendingOverflow
	}
	p.items = append(p.items, held[T]{slot: slot, v: v})
	return nil
}

// Release removes and returns the values at the head of the buffer whose
// gate is now open. The first value still gated holds back everything that
// arrived after it, so values leave in arrival order. Values of dead slots
// are discarded wherever they sit.
func (p *Pending[T]) Release(t *Tracker, level Level) []T {
	if len(p.items) == 0 {
		return nil
	}
	var out []T
	kept := p.items[:0]
	for _, h := range p.items {
		switch {
		case t.IsDead(h.slot):
		case len(kept) == 0 && t.Open(h.slot, level):
			out = append(out, h.v)
		default:
			kept = append(kept, h)
		}
	}
	clear(p.items[len(kept):])
	p.items = kept
	return out
}

// Reset drops every held value.
func (p *Pending[T]) Reset() {
	clear(p.items)
	p.items = p.items[:0]
}

// Len returns the number of held values.
func (p *Pending[T]) Len() int { return len(p.items) }
