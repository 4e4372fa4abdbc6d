package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/filter"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
)

// StreamController tails slot updates over Server-Sent Events. It is a
// debugging aid; subscribers use gRPC.
type StreamController struct {
	svc *geysersvc.Service
}

func NewStreamController(svc *geysersvc.Service) *StreamController {
	return &StreamController{svc: svc}
}

func (c *StreamController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/slots/stream", c.handleSlots)
}

// sseSink formats engine items as SSE data events.
type sseSink struct {
	w http.ResponseWriter
	r *http.Request
}

type sseSlot struct {
	Slot    uint64   `json:"slot"`
	Parent  *uint64  `json:"parent,omitempty"`
	Status  string   `json:"status"`
	Filters []string `json:"filters"`
}

func (s sseSink) Send(it engine.Item) error {
	var v any
	switch {
	case it.Message != nil && it.Message.SlotInfo != nil:
		si := it.Message.SlotInfo
		v = sseSlot{Slot: si.Slot, Parent: si.Parent, Status: si.Status.String(), Filters: it.Filters}
	case it.Err != nil:
		v = map[string]string{"error": it.Err.Error()}
	default:
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	_, err = s.w.Write([]byte("\n\n"))
	return err
}

func (s sseSink) Context() context.Context { return s.r.Context() }

func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// onceSource yields one request then reports a half-closed client.
type onceSource struct {
	req  *filter.Request
	sent bool
}

func (o *onceSource) Recv() (geysersvc.Frame, error) {
	if o.sent {
		return geysersvc.Frame{}, io.EOF
	}
	o.sent = true
	return geysersvc.Frame{Request: o.req}, nil
}

// handleSlots streams slot updates at ?commitment=; with
// filter_by_commitment=true only the matching status is sent.
func (c *StreamController) handleSlots(w http.ResponseWriter, r *http.Request) {
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}
	byCommitment := parseBool(r.URL.Query().Get("filter_by_commitment"))
	req := &filter.Request{
		Commitment: level,
		Slots:      map[string]*filter.SlotsFilter{"sse": {FilterByCommitment: &byCommitment}},
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sink := sseSink{w: w, r: r}
	_ = sink.Flush()
	err := c.svc.Subscribe(r.Context(), r.RemoteAddr, &onceSource{req: req}, sink)
	if err != nil && !errors.Is(err, context.Canceled) {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		_, _ = w.Write([]byte("event: close\ndata: "))
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n\n"))
		_ = sink.Flush()
	}
}
