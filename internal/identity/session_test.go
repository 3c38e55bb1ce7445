// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatherhub/gatherhub-go/internal/identity"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := identity.NewMemorySessionRepo()

	session, err := repo.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := repo.Get(ctx, session.Token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", got.UserID)
	}

	if err := repo.Delete(ctx, session.Token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, session.Token); !errors.Is(err, identity.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	repo := identity.NewMemorySessionRepo()

	session, err := repo.Create(ctx, "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.Get(ctx, session.Token); !errors.Is(err, identity.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}

	removed, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
}

func TestDeleteByUser(t *testing.T) {
	ctx := context.Background()
	repo := identity.NewMemorySessionRepo()

	s1, _ := repo.Create(ctx, "user-1", time.Hour)
	s2, _ := repo.Create(ctx, "user-1", time.Hour)
	other, _ := repo.Create(ctx, "user-2", time.Hour)

	if err := repo.DeleteByUser(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}

	for _, token := range []string{s1.Token, s2.Token} {
		if _, err := repo.Get(ctx, token); !errors.Is(err, identity.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	}
	if _, err := repo.Get(ctx, other.Token); err != nil {
		t.Errorf("other user's session should survive: %v", err)
	}
}
