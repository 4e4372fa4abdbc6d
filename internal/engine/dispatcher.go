package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

type controlOp struct {
	session *Session
	req     *filter.Request
	done    chan error
}

// Run is the dispatcher loop. It returns nil after a graceful shutdown
// (ctx canceled or Shutdown called) and ErrIngestOverflow when the producer
// overran the ingest queue. Run must be called exactly once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine: Run called twice")
	}
	defer close(e.done)
	e.logger.Info("dispatcher started",
		logpkg.Int("ingest_capacity", e.opts.IngestCapacity),
		logpkg.Int("session_queue_size", e.opts.SessionQueueSize))

	for {
		select {
		case err := <-e.fault:
			e.logger.Error("dispatcher fault", logpkg.Err(err), logpkg.Int("queued", len(e.ingest)))
			e.Shutdown()
			return err
		case <-ctx.Done():
			e.Shutdown()
			e.logger.Info("dispatcher stopped", logpkg.Uint64("last_seq", e.seq))
			return nil
		case <-e.shutdown:
			e.logger.Info("dispatcher stopped", logpkg.Uint64("last_seq", e.seq))
			return nil
		case op := <-e.ctrl:
			op.done <- e.applyUpdate(op.session, op.req)
		case msg := <-e.ingest:
			e.dispatch(msg)
		}
	}
}

// dispatch handles one ingested message end to end.
func (e *Engine) dispatch(msg *message.Message) {
	start := time.Now()
	e.seq++
	msg.Seq = e.seq

	statusChanged := false
	switch msg.Kind {
	case message.KindSlot:
		statusChanged = e.tracker.Observe(msg.SlotInfo.Slot, msg.SlotInfo.Status)
		if statusChanged {
			e.chain.observeSlot(msg.SlotInfo.Slot, msg.SlotInfo.Status)
		}
	case message.KindBlockMeta:
		e.chain.observeBlockMeta(msg.BlockMeta, e.tracker)
	}

	if err := e.replay.Append(msg); err != nil {
		replayAppendErrors.Inc()
		e.logger.Warn("replay append failed", logpkg.Err(err), logpkg.Uint64("seq", msg.Seq))
	}

	e.sessions.Range(func(_ string, s *Session) bool {
		if !s.isClosed() && s.set != nil {
			e.offer(s, msg, statusChanged)
		}
		return true
	})

	e.dispatched.Add(1)
	ingestMessages.WithLabelValues(msg.Kind.String()).Inc()
	ingestQueueDepth.Set(float64(len(e.ingest)))
	dispatchDuration.Observe(time.Since(start).Seconds())
}

// offer matches, gates and enqueues msg for one session. Slot updates are
// never gated; every other kind waits for the session's commitment level
// and for anything the session already holds.
func (e *Engine) offer(s *Session, msg *message.Message, statusChanged bool) {
	level := s.set.Commitment()
	if statusChanged && s.pending.Len() > 0 {
		for _, it := range s.pending.Release(e.tracker, level) {
			if !e.enqueue(s, it) {
				return
			}
		}
		s.pendingLen.Store(int64(s.pending.Len()))
	}

	if msg.Kind != message.KindSlot && e.tracker.IsDead(msg.Slot) {
		return
	}
	matches := s.set.Match(msg)
	if len(matches) == 0 {
		return
	}
	gated := msg.Kind != message.KindSlot && (s.pending.Len() > 0 || !e.tracker.Open(msg.Slot, level))
	for _, m := range matches {
		it := Item{Message: m.Message, Filters: m.Filters, Status: m.Status, CreatedAt: msg.CreatedAt, set: s.set}
		if gated {
			if err := s.pending.Push(msg.Slot, it); err != nil {
				e.evict(s, fmt.Errorf("%w: %w", ErrCommitmentOverflow, err), "commitment")
				return
			}
			continue
		}
		if !e.enqueue(s, it) {
			return
		}
	}
	s.pendingLen.Store(int64(s.pending.Len()))
}

// enqueue never blocks; a full queue evicts the session.
func (e *Engine) enqueue(s *Session, it Item) bool {
	select {
	case s.queue <- it:
		return true
	default:
		e.evict(s, ErrSessionOverflow, "overflow")
		return false
	}
}

func levelOf(set *filter.Set) commitment.Level {
	if set == nil {
		return commitment.Processed
	}
	return set.Commitment()
}
