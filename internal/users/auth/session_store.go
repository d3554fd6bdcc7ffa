// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
)

// SessionStore keeps authenticated sessions by id.
type SessionStore interface {
	// Save inserts or replaces s. Only a fresh login creates a session.
	Save(ctx context.Context, s *Session) error

	// Update replaces s only while it is still stored, and returns NOT_FOUND
	// once it was deleted or expired. A deleted session is never recreated.
	Update(ctx context.Context, s *Session) error

	// Get returns the session with id, or NOT_FOUND when it is absent or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes the session. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// ListByUser returns every live session of userID.
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
}

type storedSession struct {
	session   Session
	expiresAt time.Time
}

// MemorySessionStore is the process-local [SessionStore]. Sessions are lost on restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]storedSession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore returns an empty store whose entries expire after ttl.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]storedSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Save stores a copy of s, so later mutations by the caller need another Save.
func (store *MemorySessionStore) Save(_ context.Context, s *Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.sessions[s.ID] = storedSession{session: cloneSession(s), expiresAt: store.now().Add(store.ttl)}
	return nil
}

func (store *MemorySessionStore) Update(_ context.Context, s *Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	stored, ok := store.sessions[s.ID]
	if !ok || !now.Before(stored.expiresAt) {
		delete(store.sessions, s.ID)
		return apperr.NotFound("Session")
	}

	store.sessions[s.ID] = storedSession{session: cloneSession(s), expiresAt: now.Add(store.ttl)}
	return nil
}

func (store *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	store.mu.RLock()
	stored, ok := store.sessions[id]
	store.mu.RUnlock()

	if !ok || !store.now().Before(stored.expiresAt) {
		return nil, apperr.NotFound("Session")
	}

	session := cloneSession(&stored.session)
	return &session, nil
}

func (store *MemorySessionStore) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.sessions, id)
	return nil
}

func (store *MemorySessionStore) ListByUser(_ context.Context, userID string) ([]*Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	var sessions []*Session
	for id, stored := range store.sessions {
		if !now.Before(stored.expiresAt) {
			delete(store.sessions, id)
			continue
		}
		if stored.session.User.UserID == userID {
			session := cloneSession(&stored.session)
			sessions = append(sessions, &session)
		}
	}
	return sessions, nil
}

func cloneSession(s *Session) Session {
	clone := *s
	if s.Profile != nil {
		profile := *s.Profile
		clone.Profile = &profile
	}
	clone.Modules = append([]module.Module(nil), s.Modules...)
	return clone
}
