package handler

import "net/http"

// ----- Handler: GET /health -----

func (handler *GatewayHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status           string `json:"status"`
		ConnectedDrivers int    `json:"connected_drivers"`
	}
	w.Header().Set("Cache-Control", "no-store")
	handler.jsonResponse(r.Context(), w, http.StatusOK, resp{Status: "ok", ConnectedDrivers: handler.conns.ConnectedDrivers()})
}
