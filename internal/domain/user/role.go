package user

import (
	"errors"
	"strings"
)

// Role is the caller role carried in access tokens.
type Role string

const (
	RoleDriver   Role = "DRIVER"   // a device owner; may only touch its own namespace
	RoleOperator Role = "OPERATOR" // may trigger manual polls on the poller
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes (uppercases+trims) and validates a role string.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if role.Valid() {
		return role, nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether role is one of the allowed role constants.
func (role Role) Valid() bool {
	switch role {
	case RoleDriver, RoleOperator:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}

func (role Role) IsDriver() bool   { return role == RoleDriver }
func (role Role) IsOperator() bool { return role == RoleOperator }
