package engine

import (
	"errors"
	"fmt"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

// applyUpdate installs a new subscription for s. It runs on the dispatcher
// goroutine, so no message is matched against both the old and new set.
//
// A changed commitment level or a replay request is a fresh subscription:
// the pending buffer restarts. Replayed items are enqueued before the
// dispatcher reads the next message, so live items always follow them. A
// replay that does not fit in the free part of the output queue is rejected.
func (e *Engine) applyUpdate(s *Session, req *filter.Request) error {
	if s.isClosed() {
		return s.Err()
	}
	set, err := e.filters.Compile(req)
	if err != nil {
		return err
	}
	level := set.Commitment()
	fresh := s.set == nil || level != levelOf(s.set)

	var batch []Item
	pending := s.pending
	if from, ok := set.FromSlot(); ok {
		fresh = true
		pending = commitment.NewPending[Item](e.opts.PendingLimit)
		batch, err = e.collectReplay(set, from, pending, cap(s.queue)-len(s.queue))
		if err != nil {
			return err
		}
	} else if fresh {
		pending = commitment.NewPending[Item](e.opts.PendingLimit)
	}

	e.filters.Replace(s.id, set)
	s.set = set
	s.pending = pending
	names := set.Names()
	s.names.Store(&names)
	s.level.Store(uint32(level))
	s.pendingLen.Store(int64(pending.Len()))
	updatesApplied.Inc()
	e.logger.Debug("subscription updated",
		logpkg.SessionID(s.id),
		logpkg.Strs("filters", names),
		logpkg.Str("commitment", level.String()),
		logpkg.Int("replayed", len(batch)),
		logpkg.Bool("fresh", fresh))

	// only the dispatcher produces into s.queue, so the free slots counted
	// by collectReplay are still free here
	replayedMessages.Add(float64(len(batch)))
	for _, it := range batch {
		if !e.enqueue(s, it) {
			return ErrSessionOverflow
		}
	}
	return nil
}

// collectReplay matches the retained window against set. Gated items go to
// pending, deliverable ones are returned in arrival order. More than limit
// deliverable items fails with ErrSessionOverflow.
func (e *Engine) collectReplay(set *filter.Set, from uint64, pending *commitment.Pending[Item], limit int) ([]Item, error) {
	level := set.Commitment()
	var (
		batch   []Item
		pushErr error
	)
	err := e.replay.Range(from, func(msg *message.Message) bool {
		if msg.Kind != message.KindSlot && e.tracker.IsDead(msg.Slot) {
			return true
		}
		gated := msg.Kind != message.KindSlot && (pending.Len() > 0 || !e.tracker.Open(msg.Slot, level))
		for _, m := range set.Match(msg) {
			it := Item{Message: m.Message, Filters: m.Filters, Status: m.Status, CreatedAt: msg.CreatedAt, set: set}
			if gated {
				if pushErr = pending.Push(msg.Slot, it); pushErr != nil {
					return false
				}
				continue
			}
			if len(batch) == limit {
				pushErr = fmt.Errorf("%w: replay exceeds %d free queue slots", ErrSessionOverflow, limit)
				return false
			}
			batch = append(batch, it)
		}
		return true
	})
	if err != nil {
		replayRejected.Inc()
		return nil, err
	}
	if errors.Is(pushErr, ErrSessionOverflow) {
		replayRejected.Inc()
		return nil, pushErr
	}
	if pushErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitmentOverflow, pushErr)
	}
	return batch, nil
}
