package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

func TestCreateGetUpdateDelete(t *testing.T) {
	store := NewStore(time.Hour)
	ctx := context.Background()

	created, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.State != domain.StateIdle || created.ID == "" {
		t.Fatalf("unexpected session %+v", created)
	}

	created.Notes = "not committed"
	got, _ := store.Get(ctx, created.ID)
	if got.Notes != "" {
		t.Fatalf("mutating a returned copy must not change the store")
	}

	updated, err := store.Update(ctx, created.ID, func(s *domain.Session) error {
		s.Notes = "committed"
		return nil
	})
	if err != nil || updated.Notes != "committed" {
		t.Fatalf("update: %+v err=%v", updated, err)
	}
	if got, _ := store.Get(ctx, created.ID); got.Notes != "committed" {
		t.Fatalf("update not committed")
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateCommitsEvenWhenCallbackFails(t *testing.T) {
	store := NewStore(time.Hour)
	ctx := context.Background()
	s, _ := store.Create(ctx)

	errRejected := errors.New("rejected")
	_, err := store.Update(ctx, s.ID, func(s *domain.Session) error {
		s.Notes = "kept"
		return errRejected
	})
	if !errors.Is(err, errRejected) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if got, _ := store.Get(ctx, s.ID); got.Notes != "kept" {
		t.Fatalf("state changes made before the error must be kept")
	}
}

func TestUpdatesOfOneSessionAreSerialized(t *testing.T) {
	store := NewStore(time.Hour)
	ctx := context.Background()
	s, _ := store.Create(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, s.ID, func(s *domain.Session) error {
				s.Notes += "x"
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := store.Get(ctx, s.ID)
	if len(got.Notes) != 20 {
		t.Fatalf("expected 20 serialized updates, got %d", len(got.Notes))
	}
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	store := NewStore(time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	old, _ := store.Create(ctx)
	now = now.Add(2 * time.Minute)
	fresh, _ := store.Create(ctx)

	if _, err := store.Get(ctx, old.ID); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expired session should not be readable, got %v", err)
	}
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := store.Get(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session lost: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("len = %d", store.Len())
	}
}

func TestSaveAdoptsExternalSession(t *testing.T) {
	store := NewStore(time.Minute)
	session := domain.NewSession("one-shot", time.Now().UTC())
	session.State = domain.StateReported

	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	session.State = domain.StateIdle

	got, err := store.Get(context.Background(), "one-shot")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != domain.StateReported {
		t.Fatalf("stored session must not alias the caller's value, got %s", got.State)
	}

	if err := store.Save(context.Background(), &domain.Session{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for session without id, got %v", err)
	}
}
