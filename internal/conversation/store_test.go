package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"insightchat-backend/internal/models"
)

func TestStore_OwnerCheck(t *testing.T) {
	s := NewStore(Deps{Limits: DefaultLimits()})
	owner := uuid.New()
	c := s.Open(context.Background(), owner, uuid.New(), nil)

	if _, err := s.Get(owner, c.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := s.Get(uuid.New(), c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
	if err := s.Close(uuid.New(), c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound closing another user's conversation, got %v", err)
	}
	if err := s.Close(owner, c.ID); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestStore_OpenWithInsightsIsReady(t *testing.T) {
	s := NewStore(Deps{Limits: DefaultLimits()})
	c := s.Open(context.Background(), uuid.New(), uuid.New(), &models.DatasetInsights{RowCount: 3})

	if c.State() != StateReady {
		t.Fatalf("expected Ready, got %s", c.State())
	}
}

func TestStore_BootstrapFile(t *testing.T) {
	s := NewStore(Deps{Limits: DefaultLimits()})
	ctx := context.Background()
	user, file := uuid.New(), uuid.New()

	a := s.Open(ctx, user, file, nil)
	b := s.Open(ctx, user, file, nil)
	other := s.Open(ctx, user, uuid.New(), nil)

	ins := &models.DatasetInsights{FileID: file, RowCount: 5}
	if n := s.BootstrapFile(ctx, user, file, ins); n != 2 {
		t.Fatalf("expected 2 bootstrapped, got %d", n)
	}
	if n := s.BootstrapFile(ctx, user, file, ins); n != 0 {
		t.Fatalf("expected repeat bootstrap to be a no-op, got %d", n)
	}

	if a.State() != StateReady || b.State() != StateReady {
		t.Fatal("expected both file conversations to be Ready")
	}
	if other.State() != StateIdle {
		t.Fatalf("unrelated conversation should stay Idle, got %s", other.State())
	}
}
