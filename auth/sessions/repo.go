package sessions

import "time"

// Repo stores pending sessions for the lifetime of the process.
type Repo interface {
	// Upsert creates or replaces the session stored under sessionID
	Upsert(sessionID string, session *Session) error

	// Get retrieves a live session by ID
	Get(sessionID string) (*Session, error)

	// Consume retrieves and removes a live session in one step
	Consume(sessionID string) (*Session, error)

	// Delete removes a session by ID
	Delete(sessionID string) error

	// DeleteExpired removes sessions created before the cutoff and reports how many went
	DeleteExpired(cutoff time.Time) int

	Len() int
}
