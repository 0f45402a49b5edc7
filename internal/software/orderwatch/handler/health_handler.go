package handler

import (
	"context"
	"net/http"
	"time"
)

// ----- Handler: GET /health -----

// handleHealth runs every dependency probe and reports 503 when any fails.
func (handler *PollerHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(handler.checks))
	for _, c := range handler.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	type resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}
	w.Header().Set("Cache-Control", "no-store")
	handler.jsonResponse(ctx, w, code, resp{Status: status, Checks: checks})
}
