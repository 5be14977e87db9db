package session

import (
	"context"
	"fmt"
	"sync"

	deskerrors "github.com/sweetpotato0/deskflow/errors"
)

// Store persists session snapshots so a restarted process can resume
// conversations. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}

// Manager owns the live session set. It enforces the single-flight rule:
// within one session at most one turn may be in flight, while different
// sessions run fully concurrently.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	store   Store
}

type entry struct {
	sess *Session
	busy sync.Mutex

	// snap is the state as of the last release. Readers are served from it
	// so an in-flight turn never shares the live struct with them.
	snapMu sync.Mutex
	snap   *Session
}

// NewManager creates a manager backed by the given store. A nil store keeps
// sessions in memory only.
func NewManager(store Store) *Manager {
	return &Manager{
		entries: make(map[string]*entry),
		store:   store,
	}
}

// Acquire returns the session for id, creating it when absent, and locks it
// for the duration of one turn. It fails with ErrSessionBusy when another
// turn is still in flight. The caller must invoke release exactly once;
// release persists the session snapshot, publishes it to readers, and
// evicts the session from the live set once it has reached a terminal
// state (the store can restore it).
func (m *Manager) Acquire(ctx context.Context, id string) (*Session, func(), error) {
	e, err := m.entryFor(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !e.busy.TryLock() {
		return nil, nil, fmt.Errorf("session %s: %w", id, deskerrors.ErrSessionBusy)
	}

	release := func() {
		snap := e.sess.Clone()
		if m.store != nil {
			// Persist the post-turn snapshot; a failed save must not wedge
			// the session, so it is logged by the store and the lock is
			// released regardless.
			_ = m.store.Save(context.WithoutCancel(ctx), snap)
		}
		e.snapMu.Lock()
		e.snap = snap
		e.snapMu.Unlock()

		if e.sess.State.Terminal() {
			m.mu.Lock()
			if m.entries[e.sess.ID] == e {
				delete(m.entries, e.sess.ID)
			}
			m.mu.Unlock()
		}
		e.busy.Unlock()
	}
	return e.sess, release, nil
}

// Lookup returns a point-in-time copy of the session. Live sessions are
// served from the snapshot taken at the last release, so a turn that is
// still in flight is never observed mid-mutation. Sessions evicted after
// reaching a terminal state are read back from the store.
func (m *Manager) Lookup(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if ok {
		e.snapMu.Lock()
		defer e.snapMu.Unlock()
		return e.snap.Clone(), nil
	}
	if sess := m.restore(ctx, id); sess != nil {
		return sess, nil
	}
	return nil, fmt.Errorf("session %s: %w", id, deskerrors.ErrSessionNotFound)
}

// Remove drops a session from the manager and its store.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	if m.store != nil {
		return m.store.Delete(ctx, id)
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Manager) entryFor(ctx context.Context, id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.entries[id]; ok {
		return e, nil
	}

	sess := m.restore(ctx, id)
	if sess == nil {
		sess = New(id)
	}
	e = &entry{sess: sess, snap: sess.Clone()}
	m.entries[sess.ID] = e
	return e, nil
}

func (m *Manager) restore(ctx context.Context, id string) *Session {
	if m.store == nil || id == "" {
		return nil
	}
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil
	}
	return sess
}

// InMemoryStore keeps session snapshots in a map. It is the default store
// and the one used by tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Load returns the stored snapshot for id.
func (s *InMemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, deskerrors.ErrNotFound)
	}
	return sess.Clone(), nil
}

// Save stores a snapshot.
func (s *InMemoryStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("session snapshot: %w", deskerrors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Delete removes a snapshot.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
