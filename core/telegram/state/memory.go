package state

import (
	"sync"
	"time"

	"clanbase/core/logger"
	tghelpers "clanbase/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// DefaultTTL bounds session validity when no explicit TTL is configured.
const DefaultTTL = time.Hour

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryManager constructs an in-memory Manager with the given
// sliding session TTL. A non-positive ttl falls back to DefaultTTL.
func NewMemoryManager(ttl time.Duration) Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryManager{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewMemoryManagerWithClock is NewMemoryManager with an injected clock for tests.
func NewMemoryManagerWithClock(ttl time.Duration, now func() time.Time) Manager {
	m := NewMemoryManager(ttl).(*memoryManager)
	if now != nil {
		m.now = now
	}
	return m
}

// live returns the session if it has not expired, evicting it otherwise.
// Callers must hold the write lock.
func (m *memoryManager) live(userID int64) *Session {
	sess, ok := m.sessions[userID]
	if !ok {
		return nil
	}
	if m.now().Sub(sess.touchedAt) >= m.ttl {
		delete(m.sessions, userID)
		logger.Debug(logger.Background(), "session", "session.expire",
			slog.Int64("user_id", userID),
			slog.String("state", string(sess.State)),
		)
		return nil
	}
	return sess
}

// Get returns the live session for a user and slides its expiration window.
func (m *memoryManager) Get(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.live(userID)
	if sess == nil {
		return nil
	}
	sess.touchedAt = m.now()
	return sess
}

// Set transitions the user to the given state with a new draft payload.
func (m *memoryManager) Set(userID int64, st State, draft any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.live(userID)
	if sess == nil {
		sess = &Session{}
		m.sessions[userID] = sess
	}
	sess.State = st
	sess.Draft = draft
	sess.touchedAt = m.now()
}

// SetState transitions the state while keeping the current draft.
func (m *memoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.live(userID)
	if sess == nil {
		sess = &Session{}
		m.sessions[userID] = sess
	}
	sess.State = st
	sess.touchedAt = m.now()
}

// GetState returns the current state of a user, or StateIdle if no live session exists.
func (m *memoryManager) GetState(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess := m.live(userID); sess != nil {
		sess.touchedAt = m.now()
		return sess.State
	}
	return StateIdle
}

// Draft returns the current draft payload without sliding the window.
func (m *memoryManager) Draft(userID int64) any {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess := m.live(userID); sess != nil {
		return sess.Draft
	}
	return nil
}

// Clear removes the entire session for a user.
func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

// InProgress reports whether the user currently has a live non-idle state.
func (m *memoryManager) InProgress(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.live(userID)
	return sess != nil && sess.State != StateIdle
}

// Len reports the number of tracked sessions, including not-yet-evicted expired ones.
func (m *memoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// HandleUpdate executes the handler registered for the user's current state, if any.
func (m *memoryManager) HandleUpdate(c tele.Context) error {
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "session", "session.dispatch",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	if handler, ok := stateHandlers[current]; ok {
		return handler(c)
	}
	return nil
}
