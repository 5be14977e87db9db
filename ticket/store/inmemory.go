package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	errorskg "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/ticket"
)

// InMemoryStore implements ticket.Store using in-memory storage
type InMemoryStore struct {
	tickets map[string]*ticket.Ticket
	seq     int
	mu      sync.RWMutex
}

// NewInMemoryStore creates a new in-memory ticket store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tickets: make(map[string]*ticket.Ticket),
	}
}

// Create assigns the next sequence ID and stores the ticket
func (s *InMemoryStore) Create(ctx context.Context, t *ticket.Ticket) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t.ID = ticket.FormatID(s.seq)
	t.Status = ticket.StatusOpen
	t.CreatedAt = time.Now()

	clone := *t
	s.tickets[t.ID] = &clone
	return nil
}

// Get retrieves a ticket by ID
func (s *InMemoryStore) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, errorskg.ErrNotFound)
	}
	clone := *t
	return &clone, nil
}

// List returns all tickets ordered by creation time
func (s *InMemoryStore) List(ctx context.Context) ([]*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ticket.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns the number of stored tickets
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
