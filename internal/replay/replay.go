package replay

import (
	"errors"

	"github.com/rzbill/geyserd/internal/message"
)

// ErrReplayUnavailable is returned when the window does not reach back to the
// requested slot, or replay is disabled.
var ErrReplayUnavailable = errors.New("replay unavailable")

// DefaultMaxMessages caps the window when no explicit bound is configured.
const DefaultMaxMessages = 1 << 18

// Store is a bounded, append-only message window.
type Store interface {
	// Append adds m at the tail and evicts what fell out of the window.
	Append(m *message.Message) error
	// Range calls fn for every retained message with slot >= fromSlot, in
	// arrival order, until fn returns false.
	Range(fromSlot uint64, fn func(*message.Message) bool) error
	// FirstSlot returns the oldest slot whose messages are all retained.
	FirstSlot() (uint64, bool)
	// Len returns the number of retained messages.
	Len() int
	Close() error
}

type entry struct {
	seq  uint64
	slot uint64
}

// window tracks which (seq, slot) pairs are retained and decides eviction.
// It is shared by both backends.
type window struct {
	storedSlots uint64
	maxMessages int

	entries []entry
	head    int

	highest    uint64
	lowest     uint64
	seen       bool
	evicted    bool
	evictedMax uint64
}

func newWindow(storedSlots uint64, maxMessages int) window {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return window{storedSlots: storedSlots, maxMessages: maxMessages}
}

func (w *window) enabled() bool { return w.storedSlots > 0 }

func (w *window) len() int { return len(w.entries) - w.head }

// push appends e and returns the entries evicted from the front.
func (w *window) push(e entry) []entry {
	w.entries = append(w.entries, e)
	if !w.seen || e.slot < w.lowest {
		w.lowest = e.slot
	}
	if e.slot > w.highest {
		w.highest = e.slot
	}
	w.seen = true

	start := w.head
	for w.len() > 0 {
		front := w.entries[w.head]
		overCount := w.len() > w.maxMessages
		tooOld := front.slot+w.storedSlots <= w.highest
		if !overCount && !tooOld {
			break
		}
		w.head++
		w.evicted = true
		if front.slot > w.evictedMax {
			w.evictedMax = front.slot
		}
	}
	dropped := append([]entry(nil), w.entries[start:w.head]...)
	if w.head > 1024 && w.head*2 > len(w.entries) {
		n := copy(w.entries, w.entries[w.head:])
		w.entries = w.entries[:n]
		w.head = 0
	}
	return dropped
}

func (w *window) firstSlot() (uint64, bool) {
	if !w.seen || w.len() == 0 {
		return 0, false
	}
	if w.evicted && w.evictedMax+1 > w.lowest {
		return w.evictedMax + 1, true
	}
	return w.lowest, true
}

// check returns ErrReplayUnavailable when fromSlot predates the window.
func (w *window) check(fromSlot uint64) error {
	if !w.enabled() {
		return ErrReplayUnavailable
	}
	first, ok := w.firstSlot()
	if !ok || fromSlot < first {
		return ErrReplayUnavailable
	}
	return nil
}
