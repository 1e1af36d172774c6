// Package sessionstore keeps session chain entries in memory for the lifetime
// of the process.
package sessionstore

import (
	"sync"

	"snippetbot/internal/domain/session"
	"snippetbot/internal/ports"
)

var _ ports.SessionStore = (*Store)(nil)

// Store is a map guarded by a reader/writer lock. Entries never expire.
type Store struct {
	mu      sync.RWMutex
	entries map[session.Key]session.Session
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[session.Key]session.Session),
	}
}

// Put overwrites the entry at key. Nil sessions are ignored.
func (s *Store) Put(key session.Key, value session.Session) {
	if value == nil {
		return
	}
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}

// Get looks up the entry at key.
func (s *Store) Get(key session.Key) (session.Session, bool) {
	s.mu.RLock()
	value, ok := s.entries[key]
	s.mu.RUnlock()
	return value, ok
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
