package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"heal-engine/internal/domain"
)

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}

	for i, id := range []string{"s1", "s2", "s3"} {
		sess := domain.Session{
			ID:        id,
			OwnerKey:  "u1",
			Channel:   domain.ChannelWeb,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Create(ctx, sess); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := repo.Create(ctx, domain.Session{ID: "other", OwnerKey: "u2", UpdatedAt: base}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Most recently updated first, foreign sessions excluded.
	sessions, err := repo.ListByOwner(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 3 || sessions[0].ID != "s3" || sessions[2].ID != "s1" {
		t.Fatalf("unexpected order: %+v", sessions)
	}

	// Touch moves a session to the front.
	if err := repo.Touch(ctx, "s1", base.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sessions, _ = repo.ListByOwner(ctx, "u1", 10, 0)
	if sessions[0].ID != "s1" {
		t.Fatalf("expected touched session first, got %+v", sessions)
	}
	if err := repo.Touch(ctx, "missing", base); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}

	// Pagination.
	sessions, _ = repo.ListByOwner(ctx, "u1", 1, 1)
	if len(sessions) != 1 || sessions[0].ID != "s3" {
		t.Fatalf("unexpected page: %+v", sessions)
	}

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.GetByID(ctx, "s1"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows after delete, got %v", err)
	}
}

func TestMemoryMessageRepository(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	// Inserted out of order on purpose.
	offsets := map[string]time.Duration{"m1": 0, "m2": time.Second, "m3": 2 * time.Second}
	for _, id := range []string{"m2", "m1", "m3"} {
		msg := domain.Message{
			ID:        id,
			SessionID: "s1",
			Sender:    domain.SenderUser,
			Content:   "msg",
			CreatedAt: base.Add(offsets[id]),
		}
		if err := repo.Create(ctx, msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	messages, err := repo.ListBySessionID(ctx, "s1", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 3 || messages[0].ID != "m1" || messages[2].ID != "m3" {
		t.Fatalf("expected chronological order, got %+v", messages)
	}

	messages, _ = repo.ListBySessionID(ctx, "s1", 2, 1)
	if len(messages) != 2 || messages[0].ID != "m2" {
		t.Fatalf("unexpected page: %+v", messages)
	}

	messages, _ = repo.ListBySessionID(ctx, "s1", 10, 5)
	if len(messages) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", messages)
	}

	messages, _ = repo.ListBySessionID(ctx, "unknown", 0, 0)
	if len(messages) != 0 {
		t.Fatalf("expected no messages for unknown session, got %+v", messages)
	}
}
