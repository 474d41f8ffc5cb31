// Package tracker keeps the in-process registry of open conversations.
// It is the sole admission gate for turn submission: a session id that
// is not in the registry is treated as not found, even if a closed
// record still exists in storage. Entries are not persisted; sessions
// open at process restart become unreachable for further turns.
package tracker

import (
	"sync"
	"time"
)

// Entry is the ephemeral per-session state.
type Entry struct {
	ParticipantID string
	StartedAt     time.Time
	LastActivity  time.Time

	// mu serializes turns on this session id. Concurrent submissions
	// to one session are otherwise a lost-update race on the persisted
	// aggregate.
	mu sync.Mutex
}

// Lock acquires the per-session turn lock.
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock releases the per-session turn lock.
func (e *Entry) Unlock() { e.mu.Unlock() }

// Tracker is the open-session registry. Safe for concurrent use. The
// zero value is not usable; construct with New.
type Tracker struct {
	mu          sync.Mutex
	sessions    map[string]*Entry
	maxDuration time.Duration
	now         func() time.Time
}

// New creates a tracker enforcing the given maximum session duration.
func New(maxDuration time.Duration) *Tracker {
	return &Tracker{
		sessions:    make(map[string]*Entry),
		maxDuration: maxDuration,
		now:         time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Open registers a session as open.
func (t *Tracker) Open(sessionID, participantID string, startedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sessionID] = &Entry{
		ParticipantID: participantID,
		StartedAt:     startedAt,
		LastActivity:  startedAt,
	}
}

// Get returns the entry for an open session, or nil.
func (t *Tracker) Get(sessionID string) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[sessionID]
}

// IsOpen reports whether the session id is registered.
func (t *Tracker) IsOpen(sessionID string) bool {
	return t.Get(sessionID) != nil
}

// Touch updates the last-activity timestamp of an open session.
func (t *Tracker) Touch(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.sessions[sessionID]; ok {
		entry.LastActivity = t.now()
	}
}

// Expired reports whether the session's elapsed time has reached the
// configured maximum. Unknown sessions are not expired; they are
// simply not found.
func (t *Tracker) Expired(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.sessions[sessionID]
	if !ok {
		return false
	}
	return t.now().Sub(entry.StartedAt) >= t.maxDuration
}

// Close evicts a session from the registry. Idempotent.
func (t *Tracker) Close(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

// Reset evicts every open session. Used by the administrative bulk
// clear.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = make(map[string]*Entry)
}

// Len returns the number of open sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
