package cli

import (
	"fmt"
	"time"

	"order-notifier/internal/domain/user"
	"order-notifier/internal/general/jwt"
)

// DefaultTokenTTL is used when GenerateUserToken receives a non-positive ttl.
const DefaultTokenTTL = 2 * time.Hour

// GenerateUserToken mints a JWT for a driver or operator.
//
// Typical use (dev-only):
//
//	token, _, err := cli.GenerateUserToken(secret, "driver-1", "DRIVER", 2*time.Hour)
//
// Keep this package dev/internal only. Do not call it from production code paths.
func GenerateUserToken(secret, userID, roleStr string, ttl time.Duration) (string, jwt.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	mgr := jwt.NewManager(secret, ttl)

	token, claims, err := mgr.IssueUserToken(userID, role)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
