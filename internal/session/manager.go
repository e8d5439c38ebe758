package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/model"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session is one UI session's query builder state. It is single-writer in
// spirit (one user editing one page); the mutex only protects against the
// server handling that user's requests concurrently.
//
// Runs carry a monotonically increasing sequence number. A response is kept
// only if its sequence is still the latest issued, so a slow first run can
// never overwrite the result of a later one.
type Session struct {
	ID      string
	Project string

	mu         sync.Mutex
	spec       model.QuerySpec
	lastSeq    int64
	lastResult *model.ResultSet
	resultSeq  int64
	lastUsed   time.Time
}

// Spec returns the current query spec.
func (s *Session) Spec() model.QuerySpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Apply runs an action through the reducer and installs the new spec.
// On error the current spec is left untouched.
func (s *Session) Apply(cat *catalog.Catalog, a Action) (model.QuerySpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Apply(s.spec, cat, a)
	if err != nil {
		return s.spec, err
	}
	s.spec = next
	s.lastUsed = time.Now()
	return next, nil
}

// BeginRun issues the sequence number for a new execution attempt.
func (s *Session) BeginRun() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	s.lastUsed = time.Now()
	return s.lastSeq
}

// CompleteRun records a result if its sequence is still the latest issued.
// It reports whether the result was kept; a superseded result is discarded
// and the previously kept result stays on screen.
func (s *Session) CompleteRun(seq int64, rs model.ResultSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.lastSeq {
		return false
	}
	s.lastResult = &rs
	s.resultSeq = seq
	return true
}

// LastResult returns the most recently kept result, or nil if no run has
// completed. Failed or superseded runs never clear it.
func (s *Session) LastResult() *model.ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Manager tracks live sessions by id and evicts the ones idle past the TTL.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
}

// NewManager creates a session manager. A zero TTL disables eviction.
func NewManager(idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
	}
}

// Create opens a new session bound to a project, with an empty spec.
func (m *Manager) Create(project string) *Session {
	s := &Session{
		ID:       uuid.Must(uuid.NewV7()).String(),
		Project:  project,
		spec:     model.NewQuerySpec(),
		lastUsed: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// PurgeIdle evicts sessions untouched for longer than the TTL and returns
// how many were removed.
func (m *Manager) PurgeIdle(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastUsed) > m.idleTTL
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
