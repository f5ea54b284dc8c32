package lockmgr

import (
	"testing"
	"time"
)

func testNow() time.Time {
	return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
}

func TestStateTransitions(t *testing.T) {
	now := testNow()
	st := newLockState("res")

	if st.mode != ModeUnlocked {
		t.Fatalf("New state should be unlocked, got %s", st.mode)
	}

	// Exclusive acquisition only from unlocked
	if !st.grantableLocked(ModeExclusive) {
		t.Error("Exclusive should be grantable on unlocked state")
	}
	st.addHolderLocked("h1", ModeExclusive, 0, now)
	if st.mode != ModeExclusive || len(st.holders) != 1 {
		t.Errorf("Expected exclusive with one holder, got %s/%d", st.mode, len(st.holders))
	}
	if st.grantableLocked(ModeExclusive) || st.grantableLocked(ModeShared) {
		t.Error("Nothing should be grantable on an exclusive state")
	}

	// Release returns to unlocked
	if !st.releaseLocked("h1") {
		t.Error("Release of held handle should succeed")
	}
	if st.mode != ModeUnlocked {
		t.Errorf("Expected unlocked after release, got %s", st.mode)
	}

	// Releasing an unknown id is a no-op
	if st.releaseLocked("unknown") {
		t.Error("Release of unknown handle should report not held")
	}

	// Shared acquisitions stack
	st.addHolderLocked("r1", ModeShared, 0, now)
	st.addHolderLocked("r2", ModeShared, 0, now)
	if st.mode != ModeShared || len(st.holders) != 2 {
		t.Errorf("Expected shared with two holders, got %s/%d", st.mode, len(st.holders))
	}
	if st.grantableLocked(ModeExclusive) {
		t.Error("Exclusive should not be grantable on a shared state")
	}

	// Removing the last shared holder unlocks
	st.releaseLocked("r1")
	if st.mode != ModeShared {
		t.Errorf("Expected shared with one holder left, got %s", st.mode)
	}
	st.releaseLocked("r2")
	if st.mode != ModeUnlocked {
		t.Errorf("Expected unlocked after last shared release, got %s", st.mode)
	}
}

func TestStateExpiry(t *testing.T) {
	now := testNow()
	st := newLockState("res")

	st.addHolderLocked("short", ModeShared, time.Second, now)
	st.addHolderLocked("long", ModeShared, time.Minute, now)
	st.addHolderLocked("never", ModeShared, 0, now)

	// Nothing expired yet
	if n := st.expireLocked(now); n != 0 {
		t.Errorf("Expected no expired holders, got %d", n)
	}

	// Only the short-lived holder expires
	if n := st.expireLocked(now.Add(2 * time.Second)); n != 1 {
		t.Errorf("Expected one expired holder, got %d", n)
	}
	if len(st.holders) != 2 || st.mode != ModeShared {
		t.Errorf("Expected two holders left, got %d/%s", len(st.holders), st.mode)
	}

	// The infinite holder survives any amount of time
	if n := st.expireLocked(now.Add(24 * time.Hour)); n != 1 {
		t.Errorf("Expected one expired holder, got %d", n)
	}
	if st.mode != ModeShared || len(st.holders) != 1 {
		t.Errorf("Expected the ttl=0 holder to survive, got %d/%s", len(st.holders), st.mode)
	}

	// UpdateTTL puts a deadline on the infinite holder
	if !st.updateTTLLocked("never", time.Second, now) {
		t.Error("UpdateTTL of held handle should succeed")
	}
	if st.updateTTLLocked("gone", time.Second, now) {
		t.Error("UpdateTTL of unknown handle should report not held")
	}
	if n := st.expireLocked(now.Add(2 * time.Second)); n != 1 {
		t.Errorf("Expected retimed holder to expire, got %d", n)
	}
	if st.mode != ModeUnlocked {
		t.Errorf("Expected unlocked after all holders expired, got %s", st.mode)
	}
}

func TestDrainCoalescesSharedRun(t *testing.T) {
	now := testNow()
	deadline := now.Add(time.Minute)
	st := newLockState("res")

	st.addHolderLocked("owner", ModeExclusive, 0, now)

	// FIFO queue: two shared, one exclusive, one shared
	s1 := newWaiter(ModeShared, "s1", 0, deadline)
	s2 := newWaiter(ModeShared, "s2", 0, deadline)
	x1 := newWaiter(ModeExclusive, "x1", 0, deadline)
	s3 := newWaiter(ModeShared, "s3", 0, deadline)
	for _, w := range []*waiter{s1, s2, x1, s3} {
		st.enqueueLocked(w)
	}

	st.releaseLocked("owner")
	st.drainLocked(now)

	// The shared run at the head is granted together, the exclusive waiter
	// blocks everything behind it
	if !s1.resolved || !s2.resolved {
		t.Error("Head shared waiters should have been granted together")
	}
	if x1.resolved || s3.resolved {
		t.Error("Waiters behind the pending exclusive request must stay queued")
	}
	if st.mode != ModeShared || len(st.holders) != 2 {
		t.Errorf("Expected two shared holders, got %d/%s", len(st.holders), st.mode)
	}

	// Once the readers release, the exclusive waiter is granted alone
	st.releaseLocked("s1")
	st.releaseLocked("s2")
	st.drainLocked(now)

	if !x1.resolved {
		t.Error("Exclusive waiter should have been granted")
	}
	if s3.resolved {
		t.Error("Shared waiter behind the exclusive grant must stay queued")
	}
	if st.mode != ModeExclusive || len(st.holders) != 1 {
		t.Errorf("Expected one exclusive holder, got %d/%s", len(st.holders), st.mode)
	}
}

func TestDrainRejectsDuplicateID(t *testing.T) {
	now := testNow()
	deadline := now.Add(time.Minute)
	st := newLockState("res")

	st.addHolderLocked("owner", ModeExclusive, 0, now)

	// Two shared waiters queued with the same caller-supplied id
	w1 := newWaiter(ModeShared, "same-id", 0, deadline)
	w2 := newWaiter(ModeShared, "same-id", 0, deadline)
	st.enqueueLocked(w1)
	st.enqueueLocked(w2)

	st.releaseLocked("owner")
	st.drainLocked(now)

	// Exactly one waiter may be granted, the other must fail instead of
	// silently overwriting the first holder entry
	o1, o2 := <-w1.done, <-w2.done
	if o1.err != nil {
		t.Fatalf("First waiter should have been granted, got %v", o1.err)
	}
	if !IsInvalidArgument(o2.err) {
		t.Fatalf("Second waiter should have failed with InvalidArgument, got id=%q err=%v", o2.handleID, o2.err)
	}
	if len(st.holders) != 1 {
		t.Errorf("Expected exactly one holder, got %d", len(st.holders))
	}

	// A single release frees exactly one acquisition
	if !st.releaseLocked("same-id") {
		t.Error("Release of the granted handle should succeed")
	}
	if st.releaseLocked("same-id") {
		t.Error("Second release must report not held")
	}
}

func TestDrainSkipsExpiredWaiters(t *testing.T) {
	now := testNow()
	st := newLockState("res")

	st.addHolderLocked("owner", ModeExclusive, 0, now)

	expired := newWaiter(ModeExclusive, "late", 0, now.Add(-time.Second))
	live := newWaiter(ModeExclusive, "fresh", 0, now.Add(time.Minute))
	st.enqueueLocked(expired)
	st.enqueueLocked(live)

	st.releaseLocked("owner")
	st.drainLocked(now)

	// The expired waiter is resolved as timed out, never granted
	if !expired.resolved {
		t.Error("Expired waiter should have been resolved")
	}
	out := <-expired.done
	if !IsTimeout(out.err) {
		t.Errorf("Expected Timeout outcome for expired waiter, got %v", out.err)
	}

	// The live waiter behind it is granted
	if !live.resolved {
		t.Error("Live waiter should have been granted")
	}
	out = <-live.done
	if out.err != nil || out.handleID != "fresh" {
		t.Errorf("Expected grant of %q, got %+v", "fresh", out)
	}
}

func TestForceReleaseClearsAllHolders(t *testing.T) {
	now := testNow()
	st := newLockState("res")

	st.addHolderLocked("r1", ModeShared, 0, now)
	st.addHolderLocked("r2", ModeShared, time.Minute, now)

	if n := st.forceReleaseLocked(); n != 2 {
		t.Errorf("Expected two evicted holders, got %d", n)
	}
	if st.mode != ModeUnlocked || len(st.holders) != 0 {
		t.Errorf("Expected empty unlocked state, got %d/%s", len(st.holders), st.mode)
	}

	// Idempotent on an unlocked state
	if n := st.forceReleaseLocked(); n != 0 {
		t.Errorf("Expected no evicted holders, got %d", n)
	}
}

func TestEarliestExpiry(t *testing.T) {
	now := testNow()
	st := newLockState("res")

	if _, ok := st.earliestExpiryLocked(); ok {
		t.Error("Empty state should have no expiry")
	}

	st.addHolderLocked("never", ModeShared, 0, now)
	if _, ok := st.earliestExpiryLocked(); ok {
		t.Error("State with only infinite holders should have no expiry")
	}

	st.addHolderLocked("late", ModeShared, time.Minute, now)
	st.addHolderLocked("soon", ModeShared, time.Second, now)

	at, ok := st.earliestExpiryLocked()
	if !ok || !at.Equal(now.Add(time.Second)) {
		t.Errorf("Expected earliest expiry %v, got %v (ok=%v)", now.Add(time.Second), at, ok)
	}
}
