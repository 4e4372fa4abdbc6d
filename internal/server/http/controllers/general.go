package controllers

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/geyserd/internal/runtime"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
)

// GeneralController serves health, metrics and chain-state lookups.
type GeneralController struct {
	rt  *runtime.Runtime
	svc *geysersvc.Service
}

func NewGeneralController(rt *runtime.Runtime, svc *geysersvc.Service) *GeneralController {
	return &GeneralController{rt: rt, svc: svc}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", c.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/version", c.handleVersion)
	mux.HandleFunc("/v1/slot", c.handleSlot)
	mux.HandleFunc("/v1/blockhash", c.handleBlockhash)
}

// handleHealth returns 200 {"status":"ok"} while the dispatcher runs and
// 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (c *GeneralController) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(c.svc.Version()))
}

// handleSlot returns the highest slot at ?commitment= (default processed).
func (c *GeneralController) handleSlot(w http.ResponseWriter, r *http.Request) {
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"commitment": level.String(), "slot": c.svc.GetSlot(level)})
}

// handleBlockhash returns the latest block at ?commitment=.
func (c *GeneralController) handleBlockhash(w http.ResponseWriter, r *http.Request) {
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}
	ref, err := c.svc.GetLatestBlockhash(level)
	if errors.Is(err, geysersvc.ErrNoBlock) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"slot":                    ref.Slot,
		"blockhash":               ref.Blockhash,
		"block_height":            ref.BlockHeight,
		"last_valid_block_height": ref.LastValidBlockHeight,
	})
}
