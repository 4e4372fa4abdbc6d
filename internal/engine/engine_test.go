package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
	"github.com/rzbill/geyserd/internal/replay"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

const waitFor = 2 * time.Second

type recordSink struct {
	ctx   context.Context
	items chan Item
}

func newRecordSink(ctx context.Context) *recordSink {
	return &recordSink{ctx: ctx, items: make(chan Item, 1024)}
}

func (r *recordSink) Send(it Item) error       { r.items <- it; return nil }
func (r *recordSink) Context() context.Context { return r.ctx }
func (r *recordSink) Flush() error             { return nil }

// next returns the next data frame, skipping pings.
func (r *recordSink) next(t *testing.T) Item {
	t.Helper()
	for {
		select {
		case it := <-r.items:
			if it.Ping {
				continue
			}
			return it
		case <-time.After(waitFor):
			t.Fatalf("timed out waiting for item")
			return Item{}
		}
	}
}

func (r *recordSink) none(t *testing.T) {
	t.Helper()
	select {
	case it := <-r.items:
		t.Fatalf("unexpected item: %+v", it)
	case <-time.After(50 * time.Millisecond):
	}
}

func testOptions() Options {
	o := DefaultOptions()
	o.PingInterval = 0
	o.ShutdownGrace = 100 * time.Millisecond
	o.Logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	return o
}

func startEngine(t *testing.T, opts Options) (*Engine, context.CancelFunc) {
	t.Helper()
	e := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(waitFor):
			t.Errorf("engine did not stop")
		}
	})
	return e, cancel
}

// serve opens a session, applies req and starts delivery into a record sink.
func serve(t *testing.T, e *Engine, req *filter.Request) (*Session, *recordSink, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := e.Open(ctx)
	require.NoError(t, e.Update(ctx, s, req))
	sink := newRecordSink(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, sink) }()
	return s, sink, done
}

func ingest(t *testing.T, e *Engine, msgs ...*message.Message) {
	t.Helper()
	want := e.Dispatched() + uint64(len(msgs))
	for _, m := range msgs {
		require.NoError(t, e.Ingest(m))
	}
	require.Eventually(t, func() bool { return e.Dispatched() >= want }, waitFor, time.Millisecond)
}

func pk(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0], k[31] = b, b
	return k
}

func acct(slot uint64, key solana.PublicKey) *message.Message {
	return message.NewAccount(slot, &message.AccountInfo{Pubkey: key, Owner: solana.SystemProgramID})
}

func slotMsg(slot uint64, st message.SlotStatus) *message.Message {
	return message.NewSlot(&message.SlotInfo{Slot: slot, Status: st})
}

func accountsReq(level commitment.Level, keys ...solana.PublicKey) *filter.Request {
	var list []string
	for _, k := range keys {
		list = append(list, k.String())
	}
	return &filter.Request{
		Commitment: level,
		Accounts:   map[string]*filter.AccountsFilter{"acc": {Account: list}},
	}
}

func TestDeliversOnlyMatchingAccount(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	aaa, bbb := pk(1), pk(2)
	_, sink, _ := serve(t, e, accountsReq(commitment.Processed, aaa))

	ingest(t, e, acct(10, aaa), acct(11, bbb), slotMsg(10, message.SlotFinalized))

	got := sink.next(t)
	require.Equal(t, aaa, got.Message.Account.Pubkey)
	require.Equal(t, uint64(10), got.Message.Slot)
	require.Equal(t, []string{"acc"}, got.Filters)
	sink.none(t)
}

func TestFinalizedGate(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	key := pk(3)
	req := accountsReq(commitment.Finalized, key)
	req.Slots = map[string]*filter.SlotsFilter{"slots": {}}
	_, sink, _ := serve(t, e, req)

	ingest(t, e, acct(50, key))
	sink.none(t)

	ingest(t, e, slotMsg(50, message.SlotConfirmed))
	got := sink.next(t)
	require.Equal(t, message.KindSlot, got.Message.Kind, "slot updates are not gated")
	sink.none(t)

	ingest(t, e, slotMsg(50, message.SlotFinalized))
	got = sink.next(t)
	require.Equal(t, message.KindAccount, got.Message.Kind)
	got = sink.next(t)
	require.Equal(t, message.SlotFinalized, got.Message.SlotInfo.Status)
}

func TestDeadSlotDiscardsPending(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	key := pk(4)
	s, sink, _ := serve(t, e, accountsReq(commitment.Confirmed, key))

	ingest(t, e, acct(60, key), acct(61, key))
	require.Eventually(t, func() bool { return e.Sessions()[0].Pending == 2 }, waitFor, time.Millisecond)
	ingest(t, e, slotMsg(60, message.SlotDead), slotMsg(61, message.SlotConfirmed))

	got := sink.next(t)
	require.Equal(t, uint64(61), got.Message.Slot)
	sink.none(t)

	ingest(t, e, acct(60, key))
	sink.none(t)
	require.NoError(t, s.Err())
}

func TestOpenMessageWaitsBehindPending(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	key := pk(9)
	ingest(t, e, slotMsg(10, message.SlotConfirmed))
	_, sink, _ := serve(t, e, accountsReq(commitment.Confirmed, key))

	ingest(t, e, acct(11, key), acct(10, key))
	sink.none(t)
	require.Equal(t, 2, e.Sessions()[0].Pending)

	ingest(t, e, slotMsg(11, message.SlotConfirmed))
	require.Equal(t, uint64(11), sink.next(t).Message.Slot)
	require.Equal(t, uint64(10), sink.next(t).Message.Slot)
	sink.none(t)
}

func TestFailedUpdateKeepsPriorFilters(t *testing.T) {
	opts := testOptions()
	opts.Limits.NameSizeLimit = 8
	e, _ := startEngine(t, opts)
	key := pk(5)
	s, sink, _ := serve(t, e, accountsReq(commitment.Processed, key))

	err := e.Update(context.Background(), s, &filter.Request{
		Accounts: map[string]*filter.AccountsFilter{strings.Repeat("x", 9): {}},
	})
	require.ErrorIs(t, err, filter.ErrFilterValidation)

	ingest(t, e, acct(1, key), acct(1, pk(6)))
	got := sink.next(t)
	require.Equal(t, key, got.Message.Account.Pubkey)
	require.Equal(t, []string{"acc"}, got.Filters)
	sink.none(t)
}

func TestUpdateReplacesFilters(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	a, b := pk(7), pk(8)
	s, sink, _ := serve(t, e, accountsReq(commitment.Processed, a))

	ingest(t, e, acct(1, a))
	require.Equal(t, a, sink.next(t).Message.Account.Pubkey)

	require.NoError(t, e.Update(context.Background(), s, accountsReq(commitment.Processed, b)))
	ingest(t, e, acct(2, a), acct(2, b))
	require.Equal(t, b, sink.next(t).Message.Account.Pubkey)
	sink.none(t)
}

func TestSessionOverflow(t *testing.T) {
	opts := testOptions()
	opts.SessionQueueSize = 2
	e, _ := startEngine(t, opts)
	key := pk(9)

	slow := e.Open(context.Background())
	require.NoError(t, e.Update(context.Background(), slow, accountsReq(commitment.Processed, key)))
	_, fast, _ := serve(t, e, accountsReq(commitment.Processed, key))

	for i := uint64(1); i <= 2; i++ {
		ingest(t, e, acct(i, key))
		require.Equal(t, i, fast.next(t).Message.Slot)
	}
	require.NoError(t, slow.Err())

	ingest(t, e, acct(3, key))
	require.Equal(t, uint64(3), fast.next(t).Message.Slot)
	select {
	case <-slow.Done():
	case <-time.After(waitFor):
		t.Fatalf("slow session not evicted")
	}
	require.ErrorIs(t, slow.Err(), ErrSessionOverflow)
	err := slow.Serve(context.Background(), newRecordSink(context.Background()))
	require.ErrorIs(t, err, ErrSessionOverflow)

	for i := uint64(4); i <= 5; i++ {
		ingest(t, e, acct(i, key))
		require.Equal(t, i, fast.next(t).Message.Slot)
	}
	require.Equal(t, 1, e.SessionCount())
	require.Equal(t, 1, e.Filters().Len())
}

func TestCommitmentOverflow(t *testing.T) {
	opts := testOptions()
	opts.PendingLimit = 1
	e, _ := startEngine(t, opts)
	key := pk(10)
	s, _, done := serve(t, e, accountsReq(commitment.Finalized, key))

	ingest(t, e, acct(70, key), acct(70, key))
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrCommitmentOverflow)
		require.ErrorIs(t, err, commitment.ErrPendingOverflow)
	case <-time.After(waitFor):
		t.Fatalf("session not terminated")
	}
	require.ErrorIs(t, s.Err(), ErrCommitmentOverflow)
}

func replayOptions() Options {
	o := testOptions()
	o.Replay = replay.NewMemory(100, 1000)
	return o
}

func TestReplayThenLive(t *testing.T) {
	e, _ := startEngine(t, replayOptions())
	key := pk(11)
	for slot := uint64(1); slot <= 5; slot++ {
		ingest(t, e, acct(slot, key), acct(slot, pk(12)))
	}

	req := accountsReq(commitment.Processed, key)
	from := uint64(3)
	req.FromSlot = &from
	_, sink, _ := serve(t, e, req)

	var last *message.Message
	for want := uint64(3); want <= 5; want++ {
		got := sink.next(t)
		require.Equal(t, want, got.Message.Slot)
		if last != nil {
			require.Greater(t, got.Message.Seq, last.Seq)
		}
		last = got.Message
	}
	ingest(t, e, acct(6, key))
	live := sink.next(t)
	require.Equal(t, uint64(6), live.Message.Slot)
	require.Greater(t, live.Message.Slot, last.Slot)
	// slot 5's other account sits between the last replayed and first live seq
	require.Equal(t, last.Seq+2, live.Message.Seq)
	sink.none(t)
}

func TestReplayGatedByCommitment(t *testing.T) {
	e, _ := startEngine(t, replayOptions())
	key := pk(13)
	ingest(t, e, acct(20, key), acct(21, key), slotMsg(20, message.SlotFinalized))

	req := accountsReq(commitment.Finalized, key)
	from := uint64(20)
	req.FromSlot = &from
	_, sink, _ := serve(t, e, req)

	require.Equal(t, uint64(20), sink.next(t).Message.Slot)
	sink.none(t)
	ingest(t, e, slotMsg(21, message.SlotFinalized))
	require.Equal(t, uint64(21), sink.next(t).Message.Slot)
}

func TestReplayUnavailable(t *testing.T) {
	opts := testOptions()
	opts.Replay = replay.NewMemory(2, 1000)
	e, _ := startEngine(t, opts)
	key := pk(14)
	for slot := uint64(1); slot <= 5; slot++ {
		ingest(t, e, acct(slot, key))
	}

	s := e.Open(context.Background())
	req := accountsReq(commitment.Processed, key)
	from := uint64(1)
	req.FromSlot = &from
	err := e.Update(context.Background(), s, req)
	require.ErrorIs(t, err, replay.ErrReplayUnavailable)
	_, ok := e.Filters().Lookup(s.ID())
	require.False(t, ok, "rejected subscription must not be installed")

	ingest(t, e, acct(6, key))
	require.Zero(t, len(s.queue))
}

func TestReplayLargerThanQueueRejected(t *testing.T) {
	opts := replayOptions()
	opts.SessionQueueSize = 2
	e, _ := startEngine(t, opts)
	key := pk(15)
	for slot := uint64(1); slot <= 50; slot++ {
		ingest(t, e, acct(slot, key))
	}

	s := e.Open(context.Background())
	req := accountsReq(commitment.Processed, key)
	from := uint64(1)
	req.FromSlot = &from
	err := e.Update(context.Background(), s, req)
	require.ErrorIs(t, err, ErrSessionOverflow)
	require.Zero(t, len(s.queue))
	require.NoError(t, s.Err(), "a rejected replay leaves the session open")
	_, ok := e.Filters().Lookup(s.ID())
	require.False(t, ok)

	// a window that fits is still served
	from = 49
	require.NoError(t, e.Update(context.Background(), s, req))
	require.Equal(t, 2, len(s.queue))
}

func TestOrderingAcrossKinds(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	req := &filter.Request{
		Accounts:     map[string]*filter.AccountsFilter{"all": {}},
		Slots:        map[string]*filter.SlotsFilter{"all": {}},
		Transactions: map[string]*filter.TransactionsFilter{"all": {}},
		Entry:        map[string]*filter.EntryFilter{"all": {}},
	}
	_, sink, _ := serve(t, e, req)

	var msgs []*message.Message
	for slot := uint64(1); slot <= 20; slot++ {
		msgs = append(msgs,
			acct(slot, pk(byte(slot))),
			message.NewTransaction(slot, &message.TransactionInfo{Index: slot}),
			message.NewEntry(&message.EntryInfo{Slot: slot}),
			slotMsg(slot, message.SlotProcessed))
	}
	ingest(t, e, msgs...)
	var prev uint64
	for range msgs {
		got := sink.next(t)
		require.Greater(t, got.Message.Seq, prev)
		prev = got.Message.Seq
	}
}

func TestIngestOverflowIsFatal(t *testing.T) {
	opts := testOptions()
	opts.IngestCapacity = 1
	e := New(opts)
	require.NoError(t, e.Ingest(acct(1, pk(1))))
	require.ErrorIs(t, e.Ingest(acct(2, pk(1))), ErrIngestOverflow)

	err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrIngestOverflow)
	require.ErrorIs(t, e.Ingest(acct(3, pk(1))), ErrShutdown)
}

func TestIngestRejectsMalformed(t *testing.T) {
	e := New(testOptions())
	bad := acct(1, pk(1))
	bad.Kind = message.KindEntry
	require.Error(t, e.Ingest(bad))
}

func TestShutdownDrainsThenCloses(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	key := pk(15)
	ctx := context.Background()
	s := e.Open(ctx)
	require.NoError(t, e.Update(ctx, s, accountsReq(commitment.Processed, key)))
	ingest(t, e, acct(1, key), acct(2, key))

	e.Shutdown()
	sink := newRecordSink(ctx)
	err := s.Serve(ctx, sink)
	require.ErrorIs(t, err, ErrShutdown)
	require.Len(t, sink.items, 2)
	require.ErrorIs(t, e.Ingest(acct(3, key)), ErrShutdown)
	require.ErrorIs(t, e.Update(ctx, s, accountsReq(commitment.Processed, key)), ErrShutdown)
}

func TestPongAndReject(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	s, sink, _ := serve(t, e, &filter.Request{})
	s.Pong(7)
	got := sink.next(t)
	require.NotNil(t, got.Pong)
	require.Equal(t, int32(7), *got.Pong)

	s.Reject(errors.New("bad frame"))
	got = sink.next(t)
	require.EqualError(t, got.Err, "bad frame")
}

func TestPingInterval(t *testing.T) {
	opts := testOptions()
	opts.PingInterval = 10 * time.Millisecond
	e, _ := startEngine(t, opts)
	_, sink, _ := serve(t, e, &filter.Request{})
	select {
	case it := <-sink.items:
		require.True(t, it.Ping)
	case <-time.After(waitFor):
		t.Fatalf("no ping")
	}
}

func TestDataSliceAppliedAtDelivery(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	key := pk(16)
	req := accountsReq(commitment.Processed, key)
	req.AccountsDataSlice = []filter.DataSlice{{Offset: 1, Length: 2}}
	_, sink, _ := serve(t, e, req)

	m := message.NewAccount(1, &message.AccountInfo{Pubkey: key, Data: []byte{9, 8, 7, 6}})
	ingest(t, e, m)
	got := sink.next(t)
	require.Equal(t, []byte{8, 7}, got.Message.Account.Data)
	require.Equal(t, []byte{9, 8, 7, 6}, m.Account.Data)
}

func TestCloseAndSessions(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	key := pk(17)
	s, sink, done := serve(t, e, accountsReq(commitment.Confirmed, key))
	ingest(t, e, acct(5, key), slotMsg(5, message.SlotConfirmed))
	sink.next(t)

	infos := e.Sessions()
	require.Len(t, infos, 1)
	assert.Equal(t, s.ID(), infos[0].ID)
	assert.Equal(t, "confirmed", infos[0].Commitment)
	assert.Equal(t, []string{"acc"}, infos[0].Filters)
	assert.Equal(t, uint64(5), infos[0].Delivered["account"])

	e.Close(s)
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(waitFor):
		t.Fatalf("serve did not return")
	}
	require.Empty(t, e.Sessions())
	require.Zero(t, e.Filters().Len())
}

func TestChainState(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	h := uint64(1000)
	ingest(t, e,
		slotMsg(30, message.SlotProcessed),
		message.NewBlockMeta(&message.BlockMetaInfo{Slot: 30, Blockhash: "hash30", BlockHeight: &h}))

	ref, ok := e.Chain().Latest(commitment.Processed)
	require.True(t, ok)
	require.Equal(t, "hash30", ref.Blockhash)
	_, ok = e.Chain().Latest(commitment.Finalized)
	require.False(t, ok)

	ingest(t, e, slotMsg(30, message.SlotFinalized))
	ref, ok = e.Chain().Latest(commitment.Finalized)
	require.True(t, ok)
	require.Equal(t, h+maxProcessingAge, ref.LastValidBlockHeight)

	valid, slot := e.Chain().IsBlockhashValid("hash30", commitment.Finalized)
	require.True(t, valid)
	require.Equal(t, uint64(30), slot)
	valid, _ = e.Chain().IsBlockhashValid("nope", commitment.Finalized)
	require.False(t, valid)
}

func TestConcurrentSessions(t *testing.T) {
	e, _ := startEngine(t, testOptions())
	key := pk(18)
	const n = 8
	sinks := make([]*recordSink, n)
	for i := range sinks {
		_, sinks[i], _ = serve(t, e, accountsReq(commitment.Processed, key))
	}
	var wg sync.WaitGroup
	for _, sink := range sinks {
		wg.Add(1)
		go func(sink *recordSink) {
			defer wg.Done()
			for slot := uint64(1); slot <= 50; slot++ {
				it := <-sink.items
				assert.Equal(t, slot, it.Message.Slot)
			}
		}(sink)
	}
	for slot := uint64(1); slot <= 50; slot++ {
		require.NoError(t, e.Ingest(acct(slot, key)))
	}
	wg.Wait()
}
