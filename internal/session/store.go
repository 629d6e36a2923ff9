package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	dErrors "kyogisho/pkg/domain-errors"
)

// ErrNotFound keeps session lookups consistent for the transport layer.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "session not found")

// Store keeps live sessions in memory. Entries expire after the configured TTL
// of inactivity; access slides the expiry so an active editing session stays
// alive.
type Store struct {
	sessions *gocache.Cache
}

// NewStore creates a store whose sessions expire after ttl; expired entries are
// swept every cleanupInterval.
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	return &Store{sessions: gocache.New(ttl, cleanupInterval)}
}

// Put registers a session under its id.
func (s *Store) Put(sess *Session) {
	s.sessions.SetDefault(sess.ID, sess)
}

// Get returns the session with the given id and slides its expiry.
func (s *Store) Get(id string) (*Session, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	s.sessions.SetDefault(id, sess)
	return sess, nil
}

// Delete discards the session; the record is gone with it.
func (s *Store) Delete(id string) {
	s.sessions.Delete(id)
}

// Len reports the number of live sessions (expired entries included until the
// next sweep, matching the underlying cache).
func (s *Store) Len() int {
	return s.sessions.ItemCount()
}
