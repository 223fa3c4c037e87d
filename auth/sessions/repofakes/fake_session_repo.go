package fakesessionrepo

import (
	"sync"
	"time"

	"github.com/jrsteele09/sse-forum/auth/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is a map backed sessions.Repo whose writes and reads can be
// made to fail.
type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex

	UpsertErr  error
	ConsumeErr error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
	}
}

func (sr *FakeSessionRepo) Upsert(sessionID string, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.UpsertErr != nil {
		return sr.UpsertErr
	}
	if session == nil {
		return sessions.ErrNilSession
	}
	cp := *session
	cp.ID = sessionID
	sr.sessions[sessionID] = &cp
	return nil
}

func (sr *FakeSessionRepo) Get(sessionID string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (sr *FakeSessionRepo) Consume(sessionID string) (*sessions.Session, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.ConsumeErr != nil {
		return nil, sr.ConsumeErr
	}
	session, ok := sr.sessions[sessionID]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	delete(sr.sessions, sessionID)
	return session, nil
}

func (sr *FakeSessionRepo) Delete(sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	delete(sr.sessions, sessionID)
	return nil
}

func (sr *FakeSessionRepo) DeleteExpired(cutoff time.Time) int {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	removed := 0
	for id, session := range sr.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(sr.sessions, id)
			removed++
		}
	}
	return removed
}

func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
