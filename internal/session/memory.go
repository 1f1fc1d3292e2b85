package session

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops/spendbot/core/logger"
	"log/slog"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	welcomed map[string]struct{}
	locks    map[string]*sync.Mutex

	now func() time.Time
}

// NewMemoryManager constructs an in-memory Manager for a single-process
// deployment. A multi-instance deployment would swap this for an external
// store behind the same interface.
func NewMemoryManager() Manager {
	return newMemoryManager()
}

func newMemoryManager() *memoryManager {
	return &memoryManager{
		sessions: make(map[string]*Session),
		welcomed: make(map[string]struct{}),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

func (m *memoryManager) touch(sender string) *Session {
	sess, ok := m.sessions[sender]
	if !ok {
		sess = &Session{State: StateMainMenu}
		m.sessions[sender] = sess
	}
	sess.LastActivity = m.now()
	return sess
}

// GetState returns the current state of a sender, or the initial state if none exists.
func (m *memoryManager) GetState(sender string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[sender]; ok {
		return sess.State
	}
	return StateMainMenu
}

// SetState updates the state for a sender, creating a session if necessary.
func (m *memoryManager) SetState(sender string, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(sender).State = st
}

// Draft returns the in-progress draft for a sender if one exists.
func (m *memoryManager) Draft(sender string) (*Draft, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sender]
	if !ok || sess.Draft == nil {
		return nil, false
	}
	return sess.Draft, true
}

// SetDraft stores the draft for a sender.
func (m *memoryManager) SetDraft(sender string, d *Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(sender).Draft = d
}

// ClearDraft discards the draft for a sender, keeping the session.
func (m *memoryManager) ClearDraft(sender string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[sender]; ok {
		sess.Draft = nil
	}
}

// Reset returns the sender to the initial state and discards any draft.
func (m *memoryManager) Reset(sender string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.touch(sender)
	sess.State = StateMainMenu
	sess.Draft = nil
}

// MarkWelcomed records the sender as greeted; the welcome set only grows
// and is never swept, so the banner is shown at most once per sender.
func (m *memoryManager) MarkWelcomed(sender string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.welcomed[sender]; seen {
		return false
	}
	m.welcomed[sender] = struct{}{}
	return true
}

// Lock acquires the per-sender mutex and returns its unlock func.
func (m *memoryManager) Lock(sender string) func() {
	m.mu.Lock()
	lk, ok := m.locks[sender]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[sender] = lk
	}
	m.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}

// StartSweeper evicts sessions idle beyond ttl every interval until ctx is
// done. Resetting an idle conversation is always safe: a session carries no
// unrecoverable information. A ttl of zero disables eviction.
func StartSweeper(ctx context.Context, mgr Manager, interval, ttl time.Duration) {
	m, ok := mgr.(*memoryManager)
	if !ok || ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.sweep(ttl); n > 0 {
					logger.Debug(ctx, "session", "sweep",
						slog.Int("count", n),
					)
				}
			}
		}
	}()
}

func (m *memoryManager) sweep(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sender, sess := range m.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(m.sessions, sender)
			delete(m.locks, sender)
			n++
		}
	}
	return n
}
