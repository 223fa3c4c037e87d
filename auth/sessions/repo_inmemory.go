package sessions

import (
	"sync"
	"time"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Sessions older than maxAge are invisible to lookups before they are swept.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxAge   time.Duration
	now      func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

type Option func(*InMemoryRepo)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *InMemoryRepo) {
		r.now = now
	}
}

// NewInMemoryRepo creates a repository. A maxAge of zero disables expiry.
func NewInMemoryRepo(maxAge time.Duration, opts ...Option) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]*Session),
		maxAge:   maxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) Upsert(sessionID string, session *Session) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if session == nil {
		return ErrNilSession
	}
	cp := session.clone()
	cp.ID = sessionID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = cp
	return nil
}

func (r *InMemoryRepo) Get(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok || r.expired(s) {
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

func (r *InMemoryRepo) Consume(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	if r.expired(s) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *InMemoryRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *InMemoryRepo) expired(s *Session) bool {
	return r.maxAge > 0 && r.now().Sub(s.CreatedAt) > r.maxAge
}
