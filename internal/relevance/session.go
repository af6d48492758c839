package relevance

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ferrows/mnemo/internal/models"
)

// Session is the scope of selection de-duplication: once a record has been
// selected in a session it is suppressed for every later trigger until the
// session is reset. State is an explicit object rather than a global, so
// several logical sessions can coexist in one process.
type Session struct {
	mu   sync.Mutex
	id   string
	seen map[string]struct{}
}

// NewSession starts a fresh session with an empty de-dup set.
func NewSession() *Session {
	return &Session{
		id:   uuid.NewString(),
		seen: map[string]struct{}{},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Seen reports whether the (id, type) pair was already selected.
func (s *Session) Seen(id string, t models.RecordType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[dedupKey(id, t)]
	return ok
}

// Mark records a selection in the de-dup set.
func (s *Session) Mark(id string, t models.RecordType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[dedupKey(id, t)] = struct{}{}
}

// Reset clears the de-dup set and issues a new session id.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = map[string]struct{}{}
	s.id = uuid.NewString()
}

// Len returns the number of suppressed pairs.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func dedupKey(id string, t models.RecordType) string {
	return id + "\x00" + string(t)
}
