package commitment

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rzbill/geyserd/internal/message"
)

// DefaultMaxTrackedSlots bounds the per-slot table when no limit is given.
const DefaultMaxTrackedSlots = 4096

type slotEntry struct {
	status message.SlotStatus
	dead   bool
}

// State is a point-in-time copy of the level counters.
type State struct {
	Processed uint64
	Confirmed uint64
	Finalized uint64
}

// Get returns the counter for level l.
func (s State) Get(l Level) uint64 {
	switch l {
	case Confirmed:
		return s.Confirmed
	case Finalized:
		return s.Finalized
	default:
		return s.Processed
	}
}

// Tracker holds per-slot status and per-level monotonic counters.
type Tracker struct {
	mu    sync.RWMutex
	slots map[uint64]slotEntry
	order []uint64 // ascending keys of slots
	max   int

	counters [3]atomic.Uint64
}

// NewTracker returns a tracker retaining at most maxTracked slot entries.
func NewTracker(maxTracked int) *Tracker {
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTrackedSlots
	}
	return &Tracker{slots: make(map[uint64]slotEntry), max: maxTracked}
}

// Observe records a status transition for slot. It reports whether anything
// changed. Statuses never move backwards; dead is terminal and cannot follow
// finalized.
func (t *Tracker) Observe(slot uint64, status message.SlotStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.slots[slot]
	if ok && e.dead {
		return false
	}
	if status == message.SlotDead {
		if ok && e.status == message.SlotFinalized {
			return false
		}
		e.dead = true
		t.put(slot, e, ok)
		return true
	}
	if ok && rank(status) <= rank(e.status) {
		return false
	}
	e.status = status
	t.put(slot, e, ok)

	if lvl, isLevel := LevelOf(status); isLevel {
		// a slot at level L has also reached every lower level
		for l := Processed; l <= lvl; l++ {
			bumpMax(&t.counters[l], slot)
		}
	}
	return true
}

func bumpMax(c *atomic.Uint64, v uint64) {
	for {
		cur := c.Load()
		if v <= cur || c.CompareAndSwap(cur, v) {
			return
		}
	}
}

func (t *Tracker) put(slot uint64, e slotEntry, existed bool) {
	t.slots[slot] = e
	if existed {
		return
	}
	i := sort.Search(len(t.order), func(i int) bool { return t.order[i] >= slot })
	t.order = append(t.order, 0)
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = slot
	t.prune()
}

// prune drops the oldest entries once over the bound. Live slots at or
// below the finalized counter go first, then other live slots. Dead markers
// go last: without one, Open falls back to the counters for that slot.
func (t *Tracker) prune() {
	over := len(t.order) - t.max
	if over <= 0 {
		return
	}
	fin := t.counters[Finalized].Load()
	passes := []func(uint64, slotEntry) bool{
		func(s uint64, e slotEntry) bool { return !e.dead && s <= fin },
		func(_ uint64, e slotEntry) bool { return !e.dead },
		func(uint64, slotEntry) bool { return true },
	}
	for _, drop := range passes {
		kept := t.order[:0]
		for _, s := range t.order {
			if over > 0 && drop(s, t.slots[s]) {
				delete(t.slots, s)
				over--
				continue
			}
			kept = append(kept, s)
		}
		t.order = kept
		if over == 0 {
			return
		}
	}
}

// Open reports whether a message for slot may be delivered at level.
//
// Processed is open on arrival: the source only emits processed state. For
// higher levels the gate opens once the slot itself reached the level, or
// the level counter moved to or past the slot and the slot is not dead.
func (t *Tracker) Open(slot uint64, level Level) bool {
	t.mu.RLock()
	e, ok := t.slots[slot]
	t.mu.RUnlock()
	if ok && e.dead {
		return false
	}
	if level == Processed {
		return true
	}
	if ok && rank(e.status) >= rank(level.Status()) {
		return true
	}
	return t.counters[level].Load() >= slot
}

// IsDead reports whether slot was abandoned.
func (t *Tracker) IsDead(slot uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots[slot].dead
}

// Status returns the highest status recorded for slot.
func (t *Tracker) Status(slot uint64) (message.SlotStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.slots[slot]
	if !ok {
		return 0, false
	}
	if e.dead {
		return message.SlotDead, true
	}
	return e.status, true
}

// Len returns the number of tracked slots.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Snapshot returns the current level counters.
func (t *Tracker) Snapshot() State {
	return State{
		Processed: t.counters[Processed].Load(),
		Confirmed: t.counters[Confirmed].Load(),
		Finalized: t.counters[Finalized].Load(),
	}
}
