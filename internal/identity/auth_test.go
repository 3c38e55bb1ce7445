// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gatherhub/gatherhub-go/internal/identity"
	"github.com/gatherhub/gatherhub-go/internal/store"
	"github.com/gatherhub/gatherhub-go/internal/store/memory"
)

func TestHashAndVerifyPassword(t *testing.T) {
	auth := identity.NewUserAuthFast()

	hash, err := auth.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("expected PHC argon2id format, got %q", hash)
	}

	if err := auth.VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("VerifyPassword with correct password: %v", err)
	}
	if err := auth.VerifyPassword(hash, "wrong"); !errors.Is(err, identity.ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
	if err := auth.VerifyPassword("garbage", "anything"); !errors.Is(err, identity.ErrInvalidPassword) {
		t.Errorf("malformed hash: expected ErrInvalidPassword, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth := identity.NewUserAuthFast()
	users := memory.New()

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &store.User{
		ID:           "u-1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         identity.RoleAttendee,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := auth.Authenticate(ctx, users, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != "u-1" {
		t.Errorf("expected u-1, got %s", got.ID)
	}

	if _, err := auth.Authenticate(ctx, users, "alice@example.com", "nope"); !errors.Is(err, identity.ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := auth.Authenticate(ctx, users, "bob@example.com", "s3cret"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{identity.RoleHost, identity.RoleAttendee} {
		if !identity.ValidRole(role) {
			t.Errorf("ValidRole(%q) = false", role)
		}
	}
	if identity.ValidRole("admin") {
		t.Error("ValidRole(admin) should be false")
	}
}
