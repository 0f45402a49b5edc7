package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"order-notifier/internal/domain/user"
	"order-notifier/internal/general/jwt"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
	"order-notifier/internal/software/gateway/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const serviceTimeout = 5 * time.Second

// ConnectedCounter reports live push connections.
type ConnectedCounter interface {
	ConnectedDrivers() int
}

// GatewayHTTPHandler adapts HTTP requests to the GatewayService.
type GatewayHTTPHandler struct {
	svc       ports.GatewayService
	logger    *logger.Logger
	auth      *jwt.Manager
	connectWS http.HandlerFunc
	conns     ConnectedCounter
	devTokens bool
}

// NewGatewayHTTPHandler wires an HTTP handler around the GatewayService.
func NewGatewayHTTPHandler(
	svc ports.GatewayService,
	logger *logger.Logger,
	auth *jwt.Manager,
	connectWS http.HandlerFunc,
	conns ConnectedCounter,
) *GatewayHTTPHandler {
	return &GatewayHTTPHandler{svc: svc, logger: logger, auth: auth, connectWS: connectWS, conns: conns}
}

// RegisterRoutes mounts gateway endpoints on the provided mux.
func (handler *GatewayHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	driverOnly := func(next http.HandlerFunc) http.HandlerFunc {
		return jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(jwt.SubjectMatches("driver_id")(next))
	}

	mux.HandleFunc("POST /drivers/{driver_id}/online", driverOnly(handler.handleGoOnline))
	mux.HandleFunc("POST /drivers/{driver_id}/offline", driverOnly(handler.handleGoOffline))
	mux.HandleFunc("PUT /drivers/{driver_id}/backend", driverOnly(handler.handleSetBackend))

	// WebSocket authenticates with its first frame
	mux.HandleFunc("GET /ws/drivers/{driver_id}", handler.connectWS)

	mux.HandleFunc("GET /health", handler.handleHealth)
	// unauthenticated minting, development only
	if handler.devTokens {
		mux.HandleFunc("POST /tokens", handler.handleCreateToken)
	}
}

// EnableDevTokens makes RegisterRoutes mount POST /tokens.
func (handler *GatewayHTTPHandler) EnableDevTokens() *GatewayHTTPHandler {
	handler.devTokens = true
	return handler
}

// ----- general helpers -----

// decodeJSON enforces a JSON content type and decodes the body into v.
func (handler *GatewayHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, v any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// serviceError maps service errors onto HTTP statuses.
func (handler *GatewayHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.As(err, &pgErr), errors.Is(err, context.DeadlineExceeded):
		handler.httpError(ctx, w, http.StatusServiceUnavailable, "session store unavailable", err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, msg, err)
	}
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *GatewayHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
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
func (handler *GatewayHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *GatewayHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
