package sessions

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptySessionID  = errors.New("session id cannot be empty")
	ErrNilSession      = errors.New("session cannot be nil")
)

// Session is the pending authorization flow state for one browser, keyed by
// the id that is echoed back by the provider as the state parameter.
type Session struct {
	ID           string
	Provider     string
	CodeVerifier string // PKCE flows only
	AuthURL      string
	CreatedAt    time.Time
}

func (s *Session) clone() *Session {
	cp := *s
	return &cp
}
