// Package memory keeps sessions in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

type entry struct {
	// mu serializes updates of one session; Store.mu guards the map and the
	// committed value.
	mu      sync.Mutex
	session *domain.Session
}

type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[string]*entry),
	}
}

func (s *Store) Create(context.Context) (*domain.Session, error) {
	session := domain.NewSession(uuid.NewString(), s.now())

	s.mu.Lock()
	s.entries[session.ID] = &entry{session: session}
	s.mu.Unlock()

	return session.Clone(), nil
}

// Save adopts a session built outside the store, such as a one-shot analysis.
func (s *Store) Save(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.WrapError(domain.ErrValidation, "save session", fmt.Errorf("session id is required"))
	}
	stored := session.Clone()
	stored.UpdatedAt = s.now()

	s.mu.Lock()
	s.entries[stored.ID] = &entry{session: stored}
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e.session) {
		return nil, notFound(id)
	}
	return e.session.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.RLock()
	current, alive := s.entries[id]
	working := e.session.Clone()
	s.mu.RUnlock()
	if !alive || current != e || s.expired(working) {
		return nil, notFound(id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fnErr := fn(working)

	s.mu.Lock()
	if current, alive := s.entries[id]; alive && current == e {
		e.session = working
	}
	s.mu.Unlock()

	return working.Clone(), fnErr
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return notFound(id)
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if s.expired(e.session) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				slog.Info("sessions_expired", "removed", removed, "remaining", s.Len())
			}
		}
	}
}

func (s *Store) expired(session *domain.Session) bool {
	return s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl
}

func notFound(id string) error {
	return domain.WrapError(domain.ErrSessionNotFound, "load session", fmt.Errorf("session %q", id))
}
