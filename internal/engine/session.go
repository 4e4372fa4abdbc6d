package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
)

// controlQueueSize bounds pong and error frames waiting for delivery.
const controlQueueSize = 16

// Session is one subscriber: a filter set, a bounded output queue and the
// state needed to gate and replay messages.
type Session struct {
	id        string
	remote    string
	engine    *Engine
	createdAt time.Time

	queue   chan Item
	control chan Item

	closed    chan struct{}
	closeOnce sync.Once
	err       atomic.Pointer[error]

	// owned by the dispatcher goroutine
	set     *filter.Set
	pending *commitment.Pending[Item]

	// debug view, written by the dispatcher and Serve
	names      atomic.Pointer[[]string]
	level      atomic.Uint32
	pendingLen atomic.Int64
	delivered  [len(kindSlots)]atomic.Uint64
}

var kindSlots = [...]message.Kind{
	message.KindSlot, message.KindAccount, message.KindTransaction,
	message.KindBlock, message.KindBlockMeta, message.KindEntry,
}

func newSession(e *Engine, id, remote string) *Session {
	return &Session{
		id:        id,
		remote:    remote,
		engine:    e,
		createdAt: time.Now(),
		queue:     make(chan Item, e.opts.SessionQueueSize),
		control:   make(chan Item, controlQueueSize),
		closed:    make(chan struct{}),
		pending:   commitment.NewPending[Item](e.opts.PendingLimit),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed once the session is terminated.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Err returns the termination cause, or nil while the session is live.
func (s *Session) Err() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Session) terminate(err error) {
	s.closeOnce.Do(func() {
		s.err.Store(&err)
		close(s.closed)
	})
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Pong queues a reply to a request-level ping. Replies are dropped when the
// control queue is full.
func (s *Session) Pong(id int32) {
	s.pushControl(Item{Pong: &id, CreatedAt: time.Now()})
}

// Reject queues an error frame for a request that could not be applied.
func (s *Session) Reject(err error) {
	s.pushControl(Item{Err: err, CreatedAt: time.Now()})
}

func (s *Session) pushControl(it Item) {
	select {
	case s.control <- it:
	default:
	}
}

// Serve delivers the session's frames to sink until the session is
// terminated, the sink's context ends, or shutdown completes.
func (s *Session) Serve(ctx context.Context, sink Sink) error {
	var tick <-chan time.Time
	if iv := s.engine.opts.PingInterval; iv > 0 {
		t := time.NewTicker(iv)
		defer t.Stop()
		tick = t.C
	}
	sinkDone := sink.Context().Done()
	for {
		select {
		case <-s.closed:
			return s.Err()
		case <-s.engine.shutdown:
			return s.drain(sink)
		case <-ctx.Done():
			return ctx.Err()
		case <-sinkDone:
			return sink.Context().Err()
		case it := <-s.control:
			if err := s.send(sink, it); err != nil {
				return err
			}
		case it := <-s.queue:
			if err := s.deliver(sink, it); err != nil {
				return err
			}
		case <-tick:
			if err := s.send(sink, Item{Ping: true, CreatedAt: time.Now()}); err != nil {
				return err
			}
		}
	}
}

// drain flushes what is already queued, bounded by the shutdown grace.
func (s *Session) drain(sink Sink) error {
	deadline := time.NewTimer(s.engine.opts.ShutdownGrace)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			_ = sink.Flush()
			return ErrShutdown
		case it := <-s.queue:
			if err := s.deliver(sink, it); err != nil {
				return err
			}
		default:
			_ = sink.Flush()
			return ErrShutdown
		}
	}
}

func (s *Session) deliver(sink Sink, it Item) error {
	if it.Message != nil && it.set != nil {
		it.Message = it.set.Project(it.Message)
	}
	return s.send(sink, it)
}

func (s *Session) send(sink Sink, it Item) error {
	if err := sink.Send(it); err != nil {
		return err
	}
	if m := it.Message; m != nil {
		s.markDelivered(m)
		messagesDelivered.WithLabelValues(m.Kind.String()).Inc()
	}
	return sink.Flush()
}

func (s *Session) markDelivered(m *message.Message) {
	for i, k := range kindSlots {
		if k == m.Kind {
			for {
				cur := s.delivered[i].Load()
				if m.Slot <= cur || s.delivered[i].CompareAndSwap(cur, m.Slot) {
					return
				}
			}
		}
	}
}

func (s *Session) info() SessionInfo {
	info := SessionInfo{
		ID:         s.id,
		Remote:     s.remote,
		Commitment: commitment.Level(s.level.Load()).String(),
		QueueDepth: len(s.queue),
		Pending:    int(s.pendingLen.Load()),
		Delivered:  make(map[string]uint64, len(kindSlots)),
		CreatedAt:  s.createdAt,
	}
	if n := s.names.Load(); n != nil {
		info.Filters = *n
	}
	for i, k := range kindSlots {
		if v := s.delivered[i].Load(); v > 0 {
			info.Delivered[k.String()] = v
		}
	}
	return info
}
