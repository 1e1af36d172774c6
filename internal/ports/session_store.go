package ports

import "snippetbot/internal/domain/session"

// SessionStore maps message keys to sessions.
type SessionStore interface {
	// Put overwrites any existing entry for key.
	Put(key session.Key, s session.Session)
	Get(key session.Key) (session.Session, bool)
}
