package lockout

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLockAfterThreshold(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := NewWithClock(clock.Now)

	for i := 1; i <= 4; i++ {
		state := tracker.RecordFailure("root")
		if state.FailedAttempts != i {
			t.Fatalf("attempt %d: got count %d", i, state.FailedAttempts)
		}
		if state.LockedUntil != nil {
			t.Fatalf("attempt %d: locked too early", i)
		}
		if tracker.IsLocked("root") {
			t.Fatalf("attempt %d: IsLocked = true", i)
		}
	}

	state := tracker.RecordFailure("root")
	if state.LockedUntil == nil {
		t.Fatal("5th failure did not set lock")
	}
	if !tracker.IsLocked("root") {
		t.Fatal("IsLocked = false after threshold")
	}
}

func TestLockDoesNotExtendWhileLocked(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := NewWithClock(clock.Now)

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("root")
	}
	first := tracker.RecordFailure("root")

	clock.Advance(2 * time.Minute)
	second := tracker.RecordFailure("root")

	if !first.LockedUntil.Equal(*second.LockedUntil) {
		t.Fatalf("lock extended by knocking: %v then %v", first.LockedUntil, second.LockedUntil)
	}
	if second.FailedAttempts != 5 {
		t.Fatalf("counter grew while locked: %d", second.FailedAttempts)
	}
}

func TestLockExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := NewWithClock(clock.Now)

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("root")
	}
	if !tracker.IsLocked("root") {
		t.Fatal("expected lock")
	}

	clock.Advance(5*time.Minute + time.Second)
	if tracker.IsLocked("root") {
		t.Fatal("lock did not expire")
	}

	// Expired lock means a clean slate, not attempt 6.
	state := tracker.RecordFailure("root")
	if state.FailedAttempts != 1 {
		t.Fatalf("count after expiry: got %d want 1", state.FailedAttempts)
	}
}

func TestSuccessResetsState(t *testing.T) {
	t.Parallel()

	tracker := New()

	for i := 0; i < 4; i++ {
		tracker.RecordFailure("root")
	}
	tracker.RecordSuccess("root")

	state := tracker.RecordFailure("root")
	if state.FailedAttempts != 1 {
		t.Fatalf("count after success: got %d want 1", state.FailedAttempts)
	}
}

func TestStaleFailuresReset(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tracker := NewWithClock(clock.Now)

	tracker.RecordFailure("root")
	tracker.RecordFailure("root")

	clock.Advance(16 * time.Minute)
	state := tracker.RecordFailure("root")
	if state.FailedAttempts != 1 {
		t.Fatalf("count after TTL: got %d want 1", state.FailedAttempts)
	}
}

func TestConcurrentFailuresDoNotOvershoot(t *testing.T) {
	t.Parallel()

	tracker := New()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.RecordFailure("root")
		}()
	}
	wg.Wait()

	if !tracker.IsLocked("root") {
		t.Fatal("5 concurrent failures did not lock")
	}

	state := tracker.RecordFailure("root")
	if state.FailedAttempts != 5 {
		t.Fatalf("counter after concurrent burst: got %d want 5", state.FailedAttempts)
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	t.Parallel()

	tracker := New()

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("root")
	}
	if tracker.IsLocked("other") {
		t.Fatal("lock leaked to another identifier")
	}
}
