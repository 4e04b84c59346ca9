// Package lockout tracks per-identifier authentication failures and applies a
// time-bounded lock once a threshold is reached. State lives server-side,
// keyed by the identifier under attack; nothing here trusts the client.
package lockout

import (
	"sync"
	"time"
)

const (
	defaultThreshold  = 5
	defaultLockFor    = 5 * time.Minute
	defaultResetAfter = 15 * time.Minute
)

// State is a snapshot of an identifier's failure record.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

type entry struct {
	failedAttempts int
	lockedUntil    *time.Time
	lastFailure    time.Time
}

// Tracker counts authentication failures per identifier. All methods are safe
// for concurrent use; the mutex makes increment-and-compare atomic so a burst
// of concurrent failures cannot overshoot the threshold unlocked.
type Tracker struct {
	mu         sync.Mutex
	entries    map[string]*entry
	threshold  int
	lockFor    time.Duration
	resetAfter time.Duration
	now        func() time.Time
}

// New constructs a Tracker with the default threshold (5 attempts), lock
// duration (5 minutes), and stale-entry TTL.
func New() *Tracker {
	return NewWithClock(time.Now)
}

// NewWithClock constructs a Tracker using the given clock. Tests inject a
// fake clock to step through lock expiry.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		entries:    make(map[string]*entry),
		threshold:  defaultThreshold,
		lockFor:    defaultLockFor,
		resetAfter: defaultResetAfter,
		now:        now,
	}
}

// RecordFailure increments the failure count for identifier and returns the
// resulting state. Reaching the threshold sets the lock; further failures
// while locked neither grow the counter nor extend the lock.
func (t *Tracker) RecordFailure(identifier string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e := t.entries[identifier]
	if e == nil || t.stale(e, now) {
		e = &entry{}
		t.entries[identifier] = e
	}

	if !locked(e, now) {
		e.failedAttempts++
		if e.failedAttempts >= t.threshold {
			until := now.Add(t.lockFor)
			e.lockedUntil = &until
		}
	}
	e.lastFailure = now

	return snapshot(e)
}

// RecordSuccess clears the identifier's state.
func (t *Tracker) RecordSuccess(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, identifier)
}

// IsLocked reports whether the identifier is currently locked out.
func (t *Tracker) IsLocked(identifier string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[identifier]
	if e == nil {
		return false
	}
	now := t.now()
	if t.stale(e, now) {
		delete(t.entries, identifier)
		return false
	}
	return locked(e, now)
}

// stale reports whether an entry's lock has expired or its failures are old
// enough that the identifier should start from a clean slate.
func (t *Tracker) stale(e *entry, now time.Time) bool {
	if e.lockedUntil != nil {
		return !now.Before(*e.lockedUntil)
	}
	return now.Sub(e.lastFailure) > t.resetAfter
}

func locked(e *entry, now time.Time) bool {
	return e.lockedUntil != nil && now.Before(*e.lockedUntil)
}

func snapshot(e *entry) State {
	s := State{FailedAttempts: e.failedAttempts}
	if e.lockedUntil != nil {
		until := *e.lockedUntil
		s.LockedUntil = &until
	}
	return s
}
