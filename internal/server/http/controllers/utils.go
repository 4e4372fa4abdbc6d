package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/rzbill/geyserd/internal/commitment"
)

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// parseLevel reads ?commitment=, answering 400 on an unknown level.
func parseLevel(w http.ResponseWriter, r *http.Request) (commitment.Level, bool) {
	level, err := commitment.ParseLevel(r.URL.Query().Get("commitment"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return level, true
}

// parseBool returns true for "true" or "1".
func parseBool(s string) bool {
	return s == "true" || s == "1"
}
