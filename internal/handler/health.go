package handler

import (
	"net/http"

	"github.com/finmate-ai/voice-platform/internal/querylog"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *querylog.Client
	docsReady  func() bool
}

// NewHealthHandler creates a new health handler. docsReady reports
// whether the document cache opened; either dependency may be nil.
func NewHealthHandler(natsClient *querylog.Client, docsReady func() bool) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		docsReady:  docsReady,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.docsReady != nil && !h.docsReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "document cache unavailable",
		})
		return
	}

	// A missing NATS connection only degrades the query log, so it is
	// reported but not fatal for readiness.
	status := map[string]string{"status": "ready"}
	if h.natsClient == nil || !h.natsClient.IsConnected() {
		status["query_log"] = "disabled"
	}
	writeJSON(w, http.StatusOK, status)
}
