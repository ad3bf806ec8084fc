package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/scoreform/internal/logger"
)

// ErrTooManySessions is returned by Create when the live-session cap is reached
var ErrTooManySessions = errors.New("too many live sessions")

// Manager creates, looks up and tears down form sessions
type Manager struct {
	store       Store
	feedConfig  FeedConfig
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time

	// serializes the cap check with the store insert
	createMu sync.Mutex
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithIdleTTL makes Sweep close sessions that saw no event for ttl.
// Zero disables idle expiry.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleTTL = ttl
	}
}

// WithMaxSessions caps the number of live sessions. Zero means unbounded.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// NewManager creates a new manager instance backed by store
func NewManager(store Store, feedConfig FeedConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		feedConfig: feedConfig,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session holding a single default rule.
// When the cap is reached, idle sessions are swept first; if none can be
// freed ErrTooManySessions is returned.
func (m *Manager) Create() (*Session, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	if m.maxSessions > 0 {
		full, err := m.full()
		if err != nil {
			return nil, err
		}
		if full {
			m.Sweep()
			if full, err = m.full(); err != nil {
				return nil, err
			}
			if full {
				return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, m.maxSessions)
			}
		}
	}

	sess := newSession(uuid.NewString(), m.now(), m.feedConfig)
	sess.now = m.now

	if err := m.store.Add(sess); err != nil {
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	logger.Debug("session created", "session_id", sess.ID)
	return sess, nil
}

func (m *Manager) full() (bool, error) {
	ids, err := m.store.List()
	if err != nil {
		return false, fmt.Errorf("failed to count sessions: %w", err)
	}
	return len(ids) >= m.maxSessions, nil
}

// Get retrieves a live session
func (m *Manager) Get(id string) (*Session, error) {
	return m.store.Get(id)
}

// List returns the IDs of all live sessions
func (m *Manager) List() ([]string, error) {
	return m.store.List()
}

// Close ends a session and discards its rules; nothing is persisted
func (m *Manager) Close(id string) error {
	sess, err := m.store.Get(id)
	if err != nil {
		return err
	}

	if err := m.store.Delete(id); err != nil {
		return err
	}
	sess.close()

	logger.Debug("session closed", "session_id", id)
	return nil
}

// Sweep closes every session idle for at least the configured TTL and
// returns how many were closed
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}

	ids, err := m.store.List()
	if err != nil {
		logger.Warn("session sweep failed", "error", err)
		return 0
	}

	now := m.now()
	closed := 0
	for _, id := range ids {
		sess, err := m.store.Get(id)
		if err != nil {
			continue
		}
		if sess.idleFor(now) < m.idleTTL {
			continue
		}
		if err := m.Close(id); err == nil {
			closed++
		}
	}

	if closed > 0 {
		logger.Info("expired idle sessions", "closed", closed, "idle_ttl", m.idleTTL)
	}
	return closed
}

// RunJanitor sweeps idle sessions every interval until ctx is done
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
