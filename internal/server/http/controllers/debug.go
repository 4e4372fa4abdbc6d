package controllers

import (
	"net/http"

	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
)

// DebugController exposes connected-subscriber state.
type DebugController struct {
	svc *geysersvc.Service
}

func NewDebugController(svc *geysersvc.Service) *DebugController {
	return &DebugController{svc: svc}
}

func (c *DebugController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/clients", c.handleClients)
}

// handleClients lists sessions: id, remote, filters, commitment, queue
// depth and the last delivered slot per kind.
func (c *DebugController) handleClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessions := c.svc.Sessions()
	writeJSON(w, map[string]any{"count": len(sessions), "clients": sessions})
}
