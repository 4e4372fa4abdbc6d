package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
	"github.com/rzbill/geyserd/internal/replay"
	"github.com/rzbill/geyserd/pkg/id"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

// Options sizes every bound the engine enforces.
type Options struct {
	IngestCapacity   int
	SessionQueueSize int
	PendingLimit     int
	MaxTrackedSlots  int
	// PingInterval is the keepalive period of Serve; zero disables pings.
	PingInterval  time.Duration
	ShutdownGrace time.Duration
	Limits        filter.Limits
	// Replay is the history window; nil disables replay.
	Replay replay.Store
	Logger logpkg.Logger
}

// DefaultOptions returns the bounds used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		IngestCapacity:   1 << 16,
		SessionQueueSize: 1 << 14,
		PendingLimit:     1 << 14,
		MaxTrackedSlots:  commitment.DefaultMaxTrackedSlots,
		PingInterval:     15 * time.Second,
		ShutdownGrace:    5 * time.Second,
		Limits:           filter.DefaultLimits(),
	}
}

func (o *Options) normalize() {
	d := DefaultOptions()
	if o.IngestCapacity <= 0 {
		o.IngestCapacity = d.IngestCapacity
	}
	if o.SessionQueueSize <= 0 {
		o.SessionQueueSize = d.SessionQueueSize
	}
	if o.PendingLimit <= 0 {
		o.PendingLimit = d.PendingLimit
	}
	if o.ShutdownGrace < 0 {
		o.ShutdownGrace = 0
	}
	if o.Replay == nil {
		o.Replay = replay.NewMemory(0, 0)
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewLogger()
	}
}

// Engine is the fan-out core. Create with New, start with Run.
type Engine struct {
	opts    Options
	logger  logpkg.Logger
	filters *filter.Registry
	tracker *commitment.Tracker
	chain   *ChainState
	replay  replay.Store
	ids     *id.Generator

	sessions *xsync.MapOf[string, *Session]

	ingest chan *message.Message
	ctrl   chan *controlOp

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	fault        chan error
	running      atomic.Bool
	dispatched   atomic.Uint64

	// dispatcher-owned
	seq uint64
}

// New builds an engine; it does not start the dispatcher.
func New(opts Options) *Engine {
	opts.normalize()
	return &Engine{
		opts:     opts,
		logger:   opts.Logger.With(logpkg.Component("engine")),
		filters:  filter.NewRegistry(opts.Limits),
		tracker:  commitment.NewTracker(opts.MaxTrackedSlots),
		chain:    newChainState(),
		replay:   opts.Replay,
		ids:      id.NewGenerator(),
		sessions: xsync.NewMapOf[string, *Session](),
		ingest:   make(chan *message.Message, opts.IngestCapacity),
		ctrl:     make(chan *controlOp),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		fault:    make(chan error, 1),
	}
}

// Tracker exposes commitment state for read-only use.
func (e *Engine) Tracker() *commitment.Tracker { return e.tracker }

// Chain exposes the latest block metadata per commitment level.
func (e *Engine) Chain() *ChainState { return e.chain }

// Filters exposes the per-session filter registry.
func (e *Engine) Filters() *filter.Registry { return e.filters }

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} { return e.done }

// ShuttingDown is closed once shutdown has been broadcast.
func (e *Engine) ShuttingDown() <-chan struct{} { return e.shutdown }

// Shutdown broadcasts the shutdown signal. It is safe to call repeatedly.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		close(e.shutdown)
		e.logger.Info("shutdown broadcast", logpkg.Int("sessions", e.sessions.Size()))
	})
}

// Ingest enqueues msg without blocking. A full queue is fatal: the error is
// returned here and Run exits with it.
func (e *Engine) Ingest(msg *message.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	select {
	case <-e.shutdown:
		return ErrShutdown
	default:
	}
	select {
	case e.ingest <- msg:
		ingestQueueDepth.Set(float64(len(e.ingest)))
		return nil
	default:
		ingestOverflows.Inc()
		select {
		case e.fault <- ErrIngestOverflow:
		default:
		}
		return ErrIngestOverflow
	}
}

type openConfig struct {
	remote string
}

// OpenOption customizes a session at Open.
type OpenOption func(*openConfig)

// WithRemote records the peer address shown by Sessions.
func WithRemote(addr string) OpenOption {
	return func(c *openConfig) { c.remote = addr }
}

// Open registers a detached session with an empty filter set. It receives
// nothing until the first successful Update.
func (e *Engine) Open(ctx context.Context, opts ...OpenOption) *Session {
	var cfg openConfig
	for _, o := range opts {
		o(&cfg)
	}
	s := newSession(e, e.ids.Next().String(), cfg.remote)
	e.sessions.Store(s.id, s)
	sessionsActive.Inc()
	e.logger.Debug("session opened", logpkg.SessionID(s.id), logpkg.Str("remote", cfg.remote))
	return s
}

// Update replaces the session's subscription. It runs inside the dispatcher
// so it takes effect between two ingested messages. On error the session's
// previous subscription is untouched.
func (e *Engine) Update(ctx context.Context, s *Session, req *filter.Request) error {
	op := &controlOp{session: s, req: req, done: make(chan error, 1)}
	select {
	case e.ctrl <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.shutdown:
		return ErrShutdown
	case <-e.done:
		return ErrShutdown
	case <-s.closed:
		return s.Err()
	}
	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrShutdown
	}
}

// Close disconnects s and drops its filter set.
func (e *Engine) Close(s *Session) {
	s.terminate(ErrSessionClosed)
	e.remove(s)
}

func (e *Engine) remove(s *Session) {
	if _, ok := e.sessions.LoadAndDelete(s.id); ok {
		sessionsActive.Dec()
		e.filters.Remove(s.id)
		e.logger.Debug("session removed", logpkg.SessionID(s.id))
	}
}

// evict terminates s from the dispatcher with err.
func (e *Engine) evict(s *Session, err error, reason string) {
	s.terminate(err)
	e.remove(s)
	sessionEvictions.WithLabelValues(reason).Inc()
	e.logger.Warn("session evicted", logpkg.SessionID(s.id), logpkg.Str("reason", reason), logpkg.Err(err))
}

// SessionInfo is a debug view of one session.
type SessionInfo struct {
	ID         string            `json:"id"`
	Remote     string            `json:"remote,omitempty"`
	Filters    []string          `json:"filters"`
	Commitment string            `json:"commitment"`
	QueueDepth int               `json:"queue_depth"`
	Pending    int               `json:"pending"`
	Delivered  map[string]uint64 `json:"delivered_slots"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Sessions lists the live sessions.
func (e *Engine) Sessions() []SessionInfo {
	out := make([]SessionInfo, 0, e.sessions.Size())
	e.sessions.Range(func(_ string, s *Session) bool {
		out = append(out, s.info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dispatched returns how many messages the dispatcher has fully processed.
func (e *Engine) Dispatched() uint64 { return e.dispatched.Load() }

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int { return e.sessions.Size() }
