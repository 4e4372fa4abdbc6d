package controllers

import (
	"net/http"

	"github.com/rzbill/geyserd/internal/runtime"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	debug   *DebugController
	stream  *StreamController
}

// NewControllerRegistry initializes all controllers around the shared
// geyser service.
func NewControllerRegistry(rt *runtime.Runtime, svc *geysersvc.Service) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt, svc),
		debug:   NewDebugController(svc),
		stream:  NewStreamController(svc),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.debug.RegisterRoutes(mux)
	r.stream.RegisterRoutes(mux)
}
