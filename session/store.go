package session

import (
	"fmt"
	"sort"
	"sync"
)

// Store keeps live sessions for the lifetime of the process
type Store interface {
	// Add a new session
	Add(s *Session) error

	// Get a session by ID
	Get(id string) (*Session, error)

	// List all session IDs
	List() ([]string, error)

	// Delete a session
	Delete(id string) error
}

// InMemoryStore implements Store using an in-memory map
// Thread-safe with RWMutex
type InMemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Add adds a new session to the store
func (s *InMemoryStore) Add(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session with ID %s already exists", sess.ID)
	}

	s.sessions[sess.ID] = sess
	return nil
}

// Get retrieves a session by ID
func (s *InMemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// List returns all session IDs ordered by creation time
func (s *InMemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	ids := make([]string, len(all))
	for i, sess := range all {
		ids[i] = sess.ID
	}
	return ids, nil
}

// Delete removes a session from the store
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	delete(s.sessions, id)
	return nil
}
