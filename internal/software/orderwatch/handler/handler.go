package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"order-notifier/internal/domain/user"
	"order-notifier/internal/general/jwt"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"

	"github.com/google/uuid"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// PollerHTTPHandler exposes the poller's health and manual poll endpoints.
type PollerHTTPHandler struct {
	svc    ports.PollRequester
	logger *logger.Logger
	auth   *jwt.Manager
	checks []HealthCheck
}

// NewPollerHTTPHandler wires an HTTP handler around the poll scheduler.
func NewPollerHTTPHandler(svc ports.PollRequester, logger *logger.Logger, auth *jwt.Manager, checks ...HealthCheck) *PollerHTTPHandler {
	return &PollerHTTPHandler{svc: svc, logger: logger, auth: auth, checks: checks}
}

// RegisterRoutes mounts poller endpoints on the provided mux.
func (handler *PollerHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /polls",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleOperator)(handler.handleRequestPoll),
	)
	mux.HandleFunc("GET /health", handler.handleHealth)
}

// ----- general helpers -----

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *PollerHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf := []byte("{}")
	if data != nil {
		var err error
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *PollerHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *PollerHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
