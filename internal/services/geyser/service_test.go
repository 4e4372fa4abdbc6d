package geysersvc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/geyserd/internal/commitment"
	cfgpkg "github.com/rzbill/geyserd/internal/config"
	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
	"github.com/rzbill/geyserd/internal/replay"
	"github.com/rzbill/geyserd/internal/runtime"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

const waitFor = 2 * time.Second

func newServiceForTest(t *testing.T) (*Service, *runtime.Runtime) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Engine.PingInterval = 0
	cfg.Replay.StoredSlots = 2
	logger := logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = rt.Run(ctx); close(done) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = rt.Close()
	})
	return NewWithLogger(rt, logger), rt
}

type chanSource struct {
	frames chan Frame
	errs   chan error
}

func newChanSource() *chanSource {
	return &chanSource{frames: make(chan Frame, 8), errs: make(chan error, 1)}
}

func (c *chanSource) Recv() (Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return Frame{}, io.EOF
		}
		return f, nil
	case err := <-c.errs:
		return Frame{}, err
	}
}

type chanSink struct {
	ctx   context.Context
	items chan engine.Item
}

func (c *chanSink) Send(it engine.Item) error { c.items <- it; return nil }
func (c *chanSink) Context() context.Context  { return c.ctx }
func (c *chanSink) Flush() error              { return nil }

func (c *chanSink) next(t *testing.T) engine.Item {
	t.Helper()
	select {
	case it := <-c.items:
		return it
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for item")
		return engine.Item{}
	}
}

func subscribe(t *testing.T, svc *Service, src *chanSource) (*chanSink, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sink := &chanSink{ctx: ctx, items: make(chan engine.Item, 64)}
	done := make(chan error, 1)
	go func() { done <- svc.Subscribe(ctx, "test", src, sink) }()
	return sink, done
}

func waitSubscribed(t *testing.T, svc *Service) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := svc.Sessions()
		return len(s) == 1 && len(s[0].Filters) > 0
	}, waitFor, time.Millisecond)
}

func slotsRequest() *filter.Request {
	return &filter.Request{Slots: map[string]*filter.SlotsFilter{"slots": {}}}
}

func TestSubscribeStreamsAndPongs(t *testing.T) {
	svc, rt := newServiceForTest(t)
	src := newChanSource()
	sink, _ := subscribe(t, svc, src)

	src.frames <- Frame{Request: slotsRequest()}
	waitSubscribed(t, svc)

	require.NoError(t, rt.Engine().Ingest(message.NewSlot(&message.SlotInfo{Slot: 7})))
	it := sink.next(t)
	require.Equal(t, uint64(7), it.Message.Slot)
	require.Equal(t, []string{"slots"}, it.Filters)

	id := int32(4)
	src.frames <- Frame{Ping: &id}
	it = sink.next(t)
	require.NotNil(t, it.Pong)
	require.Equal(t, id, *it.Pong)
}

func TestSubscribeHalfCloseKeepsStreaming(t *testing.T) {
	svc, rt := newServiceForTest(t)
	src := newChanSource()
	sink, done := subscribe(t, svc, src)
	src.frames <- Frame{Request: slotsRequest()}
	waitSubscribed(t, svc)
	close(src.frames)

	require.NoError(t, rt.Engine().Ingest(message.NewSlot(&message.SlotInfo{Slot: 8})))
	require.Equal(t, uint64(8), sink.next(t).Message.Slot)
	select {
	case err := <-done:
		t.Fatalf("subscribe returned early: %v", err)
	default:
	}
}

func TestSubscribeInvalidFirstFrameCloses(t *testing.T) {
	svc, _ := newServiceForTest(t)
	src := newChanSource()
	_, done := subscribe(t, svc, src)
	src.frames <- Frame{Request: &filter.Request{
		Accounts: map[string]*filter.AccountsFilter{"a": {Account: []string{"not-base58!"}}},
	}}
	select {
	case err := <-done:
		require.ErrorIs(t, err, filter.ErrFilterValidation)
	case <-time.After(waitFor):
		t.Fatalf("subscribe did not return")
	}
	require.Empty(t, svc.Sessions())
}

func TestSubscribeInvalidUpdateKeepsSubscription(t *testing.T) {
	svc, rt := newServiceForTest(t)
	src := newChanSource()
	sink, _ := subscribe(t, svc, src)
	src.frames <- Frame{Request: slotsRequest()}
	waitSubscribed(t, svc)

	src.frames <- Frame{Request: &filter.Request{
		Slots: map[string]*filter.SlotsFilter{strings.Repeat("n", 1000): {}},
	}}
	it := sink.next(t)
	require.ErrorIs(t, it.Err, filter.ErrFilterValidation)

	require.NoError(t, rt.Engine().Ingest(message.NewSlot(&message.SlotInfo{Slot: 9})))
	it = sink.next(t)
	require.Equal(t, []string{"slots"}, it.Filters)
}

func TestSubscribeReplayUnavailableCloses(t *testing.T) {
	svc, rt := newServiceForTest(t)
	for slot := uint64(1); slot <= 5; slot++ {
		require.NoError(t, rt.Engine().Ingest(message.NewSlot(&message.SlotInfo{Slot: slot})))
	}
	require.Eventually(t, func() bool { return rt.Engine().Dispatched() == 5 }, waitFor, time.Millisecond)

	src := newChanSource()
	sink, done := subscribe(t, svc, src)
	req := slotsRequest()
	from := uint64(1)
	req.FromSlot = &from
	src.frames <- Frame{Request: req}
	select {
	case err := <-done:
		require.ErrorIs(t, err, replay.ErrReplayUnavailable)
	case <-time.After(waitFor):
		t.Fatalf("subscribe did not return")
	}
	require.Empty(t, sink.items)
}

func TestSubscribeTransportError(t *testing.T) {
	svc, _ := newServiceForTest(t)
	src := newChanSource()
	_, done := subscribe(t, svc, src)
	boom := errors.New("connection reset")
	src.errs <- boom
	select {
	case err := <-done:
		require.ErrorIs(t, err, boom)
	case <-time.After(waitFor):
		t.Fatalf("subscribe did not return")
	}
}

func TestUnaryQueries(t *testing.T) {
	svc, rt := newServiceForTest(t)
	_, err := svc.GetBlockHeight(commitment.Processed)
	require.ErrorIs(t, err, ErrNoBlock)
	_, err = svc.GetLatestBlockhash(commitment.Finalized)
	require.ErrorIs(t, err, ErrNoBlock)

	h := uint64(500)
	eng := rt.Engine()
	require.NoError(t, eng.Ingest(message.NewSlot(&message.SlotInfo{Slot: 11, Status: message.SlotConfirmed})))
	require.NoError(t, eng.Ingest(message.NewBlockMeta(&message.BlockMetaInfo{Slot: 11, Blockhash: "bh11", BlockHeight: &h})))
	require.Eventually(t, func() bool { return eng.Dispatched() == 2 }, waitFor, time.Millisecond)

	require.Equal(t, uint64(11), svc.GetSlot(commitment.Confirmed))
	require.Zero(t, svc.GetSlot(commitment.Finalized))

	height, err := svc.GetBlockHeight(commitment.Confirmed)
	require.NoError(t, err)
	require.Equal(t, h, height)

	ref, err := svc.GetLatestBlockhash(commitment.Processed)
	require.NoError(t, err)
	require.Equal(t, "bh11", ref.Blockhash)

	valid, slot := svc.IsBlockhashValid("bh11", commitment.Confirmed)
	require.True(t, valid)
	require.Equal(t, uint64(11), slot)

	require.Equal(t, int32(3), svc.Ping(3))
	require.NoError(t, svc.Health(context.Background()))

	var v VersionInfo
	require.NoError(t, json.Unmarshal([]byte(svc.Version()), &v))
	require.Equal(t, "geyserd", v.Package)
	require.Equal(t, runtime.Version, v.Version)
}
