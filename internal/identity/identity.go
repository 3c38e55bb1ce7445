// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package identity provides roles, authentication, and session handling.
package identity

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidPassword = errors.New("invalid password")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")
)

// Role values attached to every account.
const (
	RoleHost     = "host"
	RoleAttendee = "attendee"
)

// ValidRole reports whether role is a known role value.
func ValidRole(role string) bool {
	return role == RoleHost || role == RoleAttendee
}
