package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"order-notifier/internal/domain/user"
)

type TokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

// ----- Handler: POST /tokens -----

// handleCreateToken mints development tokens. Role defaults to DRIVER.
func (handler *GatewayHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	role := user.RoleDriver
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := user.ParseRole(req.Role)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "role must be DRIVER or OPERATOR", err)
			return
		}
		role = parsed
	}

	tokenString, claims, err := handler.auth.IssueUserToken(strings.TrimSpace(req.UserID), role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    strings.TrimSpace(req.UserID),
		Role:      role,
	})
}
