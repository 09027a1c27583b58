package session

import (
	"errors"
	"sync"
	"time"
)

// TTL is how long an unattached session survives before the sweep deletes it.
const TTL = time.Hour

// Sentinel errors returned by the store.
var (
	// ErrNotFound indicates the session does not exist or has expired.
	ErrNotFound = errors.New("session not found")

	// ErrExists indicates a create collision. IDs must be caller-generated
	// unique tokens, so this is caller-visible rather than retried here.
	ErrExists = errors.New("session already exists")

	// ErrAlreadyRunning indicates an orchestrator run is already attached.
	ErrAlreadyRunning = errors.New("session already running")
)

// Store is a process-wide keyed registry of in-flight planning sessions.
// All mutations are atomic with respect to concurrent access from multiple
// connections sharing the process. It is deliberately single-process;
// horizontal scaling requires substituting a shared store with atomic
// compare-and-set semantics.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new pending session. Expired sessions are swept
// opportunistically first so a stale id cannot block a fresh create.
func (s *Store) Create(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())

	if _, ok := s.sessions[sess.ID]; ok {
		return ErrExists
	}

	sess.Status = StatusPending
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Get returns a snapshot of the session, or ErrNotFound.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *sess, nil
}

// Acquire atomically transitions a session to running and returns a snapshot
// of it. This is the single-flight check: of two racing attach attempts for
// the same id, exactly one succeeds. Returns ErrNotFound if the session is
// absent, ErrAlreadyRunning if another run is attached.
func (s *Store) Acquire(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if sess.Status == StatusRunning {
		return Session{}, ErrAlreadyRunning
	}

	sess.Status = StatusRunning
	return *sess, nil
}

// SetStatus updates a session's status. No-op if the session no longer
// exists (already deleted).
func (s *Store) SetStatus(id string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.Status = status
	}
}

// Delete removes a session. Idempotent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// SweepExpired deletes every unattached session older than the TTL. Running
// sessions are left alone; their streaming connection deletes them at the
// terminal event. Intended to run on a fixed interval; Create also sweeps
// opportunistically.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.sessions {
		if sess.Status == StatusRunning {
			continue
		}
		if now.Sub(sess.CreatedAt) > TTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
