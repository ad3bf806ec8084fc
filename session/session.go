package session

import (
	"errors"
	"sync"
	"time"

	"github.com/liamcoop/scoreform/rules"
)

// ErrSessionNotFound is returned for unknown or already closed sessions
var ErrSessionNotFound = errors.New("session not found")

// Session is one form session: a rule-set model plus its notification feed.
// Events are applied one at a time through Do.
type Session struct {
	ID        string
	CreatedAt time.Time

	model      *rules.RuleSetModel
	feed       *Feed
	closed     bool
	lastActive time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// Snapshot is a consistent, read-only view of a session for rendering
type Snapshot struct {
	ID            string                     `json:"id"`
	CreatedAt     time.Time                  `json:"createdAt"`
	Rules         []rules.Rule               `json:"rules"`
	Combinator    rules.Combinator           `json:"combinator"`
	Output        *rules.SubmittedExpression `json:"output,omitempty"`
	OutputVisible bool                       `json:"outputVisible"`
	Notifications []rules.Notification       `json:"notifications"`
}

func newSession(id string, createdAt time.Time, feedConfig FeedConfig) *Session {
	feed := NewFeed(feedConfig)
	return &Session{
		ID:         id,
		CreatedAt:  createdAt,
		model:      rules.NewRuleSetModel(rules.WithNotifier(feed)),
		feed:       feed,
		lastActive: createdAt,
		now:        time.Now,
	}
}

// Do runs fn against the session's model to completion before any other event
func (s *Session) Do(fn func(m *rules.RuleSetModel) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}
	s.lastActive = s.now()
	return fn(s.model)
}

// idleFor reports how long the session has gone without an event
func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Sub(s.lastActive)
}

// Snapshot captures the current state of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	output, visible := s.model.Submitted()
	return Snapshot{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		Rules:         s.model.Rules(),
		Combinator:    s.model.Combinator(),
		Output:        output,
		OutputVisible: visible,
		Notifications: s.feed.Active(),
	}
}

// Notifications returns the notifications that have not auto-dismissed yet
func (s *Session) Notifications() []rules.Notification {
	return s.feed.Active()
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.feed.Clear()
}
