package state

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a conversation step: which user input is expected next.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores the conversation state and draft payload for a user.
// Exactly one State is active at a time; Draft carries the
// partially-built entity for states that need one.
type Session struct {
	State State
	Draft any

	// touchedAt is refreshed on every successful access (sliding TTL).
	touchedAt time.Time
}

// Manager orchestrates user sessions and conversation state transitions.
//
// All mutation goes through the Manager; callers never share Session
// pointers across goroutines. Two near-simultaneous updates from the
// same user resolve as last-write-wins under the manager's lock.
type Manager interface {
	// Get returns the live session for a user, or nil if none exists
	// or the session has expired (expired entries are evicted).
	// A successful Get refreshes the expiration window.
	Get(userID int64) *Session

	// Set transitions the user to the given state, creating a session
	// if needed, and attaches the draft payload (may be nil).
	Set(userID int64, st State, draft any)

	// SetState transitions the state while keeping the current draft.
	SetState(userID int64, st State)

	// GetState returns the user's current state, or StateIdle when no
	// live session exists.
	GetState(userID int64) State

	// Draft returns the current draft payload, or nil.
	Draft(userID int64) any

	// Clear removes the user's session entirely.
	Clear(userID int64)

	// InProgress reports whether the user has a live non-idle state.
	InProgress(userID int64) bool

	// Len reports the number of tracked sessions, expired or not.
	Len() int

	// HandleUpdate executes the handler registered for the user's
	// current state, if any.
	HandleUpdate(c tele.Context) error
}

// DraftOf fetches the user's draft and asserts it to T.
func DraftOf[T any](m Manager, userID int64) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	v, ok := m.Draft(userID).(T)
	if !ok {
		return zero, false
	}
	return v, true
}
