package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/geyserd/internal/config"
	"github.com/rzbill/geyserd/internal/message"
	"github.com/rzbill/geyserd/internal/runtime"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

func startRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	logger := logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	rt, err := runtime.Open(runtime.Options{Config: cfgpkg.Default(), Logger: logger})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = rt.Run(ctx); close(done) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = rt.Close()
	})
	return rt
}

func newServer(t *testing.T, rt *runtime.Runtime) *Server {
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	return New(rt, logger)
}

func ingest(t *testing.T, rt *runtime.Runtime, msgs ...*message.Message) {
	t.Helper()
	want := rt.Engine().Dispatched() + uint64(len(msgs))
	for _, m := range msgs {
		if err := rt.Engine().Ingest(m); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for rt.Engine().Dispatched() < want {
		if time.Now().After(deadline) {
			t.Fatalf("dispatch timed out")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHealthHandler(t *testing.T) {
	rt := startRuntime(t)
	s := newServer(t, rt)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestHealthAfterShutdown(t *testing.T) {
	rt := startRuntime(t)
	s := newServer(t, rt)
	rt.Engine().Shutdown()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	rt := startRuntime(t)
	s := newServer(t, rt)
	ingest(t, rt, message.NewSlot(&message.SlotInfo{Slot: 1}))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "geyserd_") {
		t.Fatalf("expected geyserd metrics in output")
	}
}

func TestSlotAndBlockhash(t *testing.T) {
	rt := startRuntime(t)
	s := newServer(t, rt)
	ingest(t, rt,
		message.NewSlot(&message.SlotInfo{Slot: 7, Status: message.SlotProcessed}),
		message.NewSlot(&message.SlotInfo{Slot: 5, Status: message.SlotConfirmed}),
	)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/slot?commitment=confirmed", nil))
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	var out struct {
		Commitment string `json:"commitment"`
		Slot       uint64 `json:"slot"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Slot != 5 || out.Commitment != "confirmed" {
		t.Fatalf("unexpected slot response: %+v", out)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/slot?commitment=bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad level status: %d", w.Code)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/blockhash", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("blockhash without blocks: %d", w.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	rt := startRuntime(t)
	s := newServer(t, rt)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/version", nil))
	if w.Code != 200 || !strings.Contains(w.Body.String(), "geyserd") {
		t.Fatalf("version: %d %s", w.Code, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	rt := startRuntime(t)
	s := newServer(t, rt)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/v1/slot", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing cors header")
	}
}

func TestSlotStreamAndClients(t *testing.T) {
	rt := startRuntime(t)
	s := newServer(t, rt)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/slots/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %s", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if ss := rt.Engine().Sessions(); len(ss) == 1 && len(ss[0].Filters) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscription never applied")
		}
		time.Sleep(time.Millisecond)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/clients", nil))
	if !strings.Contains(w.Body.String(), `"count":1`) {
		t.Fatalf("clients: %s", w.Body.String())
	}

	ingest(t, rt, message.NewSlot(&message.SlotInfo{Slot: 42}))

	lines := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "data: ") {
				lines <- strings.TrimPrefix(sc.Text(), "data: ")
			}
		}
		close(lines)
	}()
	select {
	case line := <-lines:
		var ev struct {
			Slot    uint64   `json:"slot"`
			Status  string   `json:"status"`
			Filters []string `json:"filters"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		if ev.Slot != 42 || len(ev.Filters) != 1 || ev.Filters[0] != "sse" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}
}
