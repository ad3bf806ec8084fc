package session

import (
	"sync"
	"time"

	"github.com/liamcoop/scoreform/rules"
)

// FeedConfig holds configuration for notification retention
type FeedConfig struct {
	// TTL is how long a notification stays visible before it is dismissed
	TTL time.Duration

	// MaxEntries caps the number of undismissed notifications kept
	// Oldest entries are dropped first
	MaxEntries int
}

// DefaultFeedConfig returns the auto-dismiss interval used by the form
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		TTL:        2 * time.Second,
		MaxEntries: 32,
	}
}

type feedEntry struct {
	notification rules.Notification
	postedAt     time.Time
}

// Feed is a rules.Notifier that keeps notifications until they auto-dismiss
// Thread-safe for concurrent access
type Feed struct {
	entries []feedEntry
	config  FeedConfig
	now     func() time.Time
	mu      sync.Mutex
}

// NewFeed creates a new notification feed
func NewFeed(config FeedConfig) *Feed {
	if config.TTL <= 0 {
		config.TTL = DefaultFeedConfig().TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultFeedConfig().MaxEntries
	}

	return &Feed{
		config: config,
		now:    time.Now,
	}
}

// Notify records n; it never blocks and never fails
func (f *Feed) Notify(n rules.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneLocked()
	f.entries = append(f.entries, feedEntry{notification: n, postedAt: f.now()})
	if over := len(f.entries) - f.config.MaxEntries; over > 0 {
		f.entries = append([]feedEntry(nil), f.entries[over:]...)
	}
}

// Active returns the notifications that have not been dismissed yet, oldest first
func (f *Feed) Active() []rules.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneLocked()

	// Return copy to prevent external modifications
	out := make([]rules.Notification, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.notification
	}
	return out
}

// Clear dismisses every notification
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = nil
}

func (f *Feed) pruneLocked() {
	now := f.now()
	keep := f.entries[:0]
	for _, e := range f.entries {
		if now.Sub(e.postedAt) < f.config.TTL {
			keep = append(keep, e)
		}
	}
	f.entries = keep
}
