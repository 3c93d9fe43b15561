package admin

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds the storage ping behind /ready.
const readyTimeout = 5 * time.Second

// readiness is the /ready response body.
type readiness struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	RecordTypes int    `json:"record_types"`
}

// HandleHealth reports that the process is serving requests
// GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady reports whether tokens can be authenticated: the token store
// must answer a ping. The number of registered record types is included so
// probes can spot a registry that lost its extra refs.
// GET /ready
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	resp := readiness{Status: "ok", Database: "connected", RecordTypes: h.registry.Len()}

	if h.storage == nil {
		resp.Status, resp.Database = "error", "not configured"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		resp.Status, resp.Database = "error", "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
