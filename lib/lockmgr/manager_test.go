package lockmgr_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
	lmtesting "github.com/ValentinKolb/dLock/lib/lockmgr/testing"
)

// manualClock is an IClock whose current time only moves when the test
// advances it. Wake-ups degrade to real timers, which is fine for tests
// that never block on a wait budget.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func Test(t *testing.T) {
	lmtesting.RunLockManagerTests(t, "LockManager", func() lockmgr.ILockManager {
		return lockmgr.NewLockManager(
			lockmgr.WithSweepInterval(10 * time.Millisecond),
		)
	})
}

// TestSweeperWakesWaiters checks that a waiter blocked behind a finite-TTL
// holder is granted by the sweeper once the holder expires, without any
// intervening caller operation on the resource.
func TestSweeperWakesWaiters(t *testing.T) {
	mgr := lockmgr.NewLockManager(lockmgr.WithSweepInterval(10 * time.Millisecond))
	defer mgr.Close()

	if _, err := mgr.Lock("abandoned", 100*time.Millisecond, 0, ""); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// The waiter outlives the holder's TTL, the sweeper must hand over
	start := time.Now()
	id, err := mgr.Lock("abandoned", 0, 2*time.Second, "")
	if err != nil {
		t.Fatalf("Waiting Lock failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Sweeper handover took %v", elapsed)
	}

	if ok, err := mgr.Release("abandoned", id); !ok || err != nil {
		t.Errorf("Release failed: ok=%v err=%v", ok, err)
	}
}

// TestSharedCoalescing checks that a run of shared waiters at the head of
// the queue is granted together once the exclusive holder releases.
func TestSharedCoalescing(t *testing.T) {
	mgr := lockmgr.NewLockManager(lockmgr.WithSweepInterval(10 * time.Millisecond))
	defer mgr.Close()

	holdID, err := mgr.Lock("coalesce", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	const readers = 4
	granted := make(chan string, readers)
	for i := 0; i < readers; i++ {
		go func() {
			id, err := mgr.LockRead("coalesce", 0, 2*time.Second, "")
			if err != nil {
				t.Errorf("LockRead failed: %v", err)
				return
			}
			granted <- id
		}()
	}

	time.Sleep(100 * time.Millisecond)
	if ok, err := mgr.Release("coalesce", holdID); !ok || err != nil {
		t.Fatalf("Release failed: ok=%v err=%v", ok, err)
	}

	// All readers must be granted together
	ids := make([]string, 0, readers)
	timeout := time.After(2 * time.Second)
	for i := 0; i < readers; i++ {
		select {
		case id := <-granted:
			ids = append(ids, id)
		case <-timeout:
			t.Fatalf("Only %d of %d shared waiters granted", len(ids), readers)
		}
	}

	info, _ := mgr.Exists("coalesce")
	if info.Mode != lockmgr.ModeShared || len(info.HolderIDs) != readers {
		t.Errorf("Expected %d coalesced shared holders, got %+v", readers, info)
	}

	for _, id := range ids {
		mgr.Release("coalesce", id)
	}
}

// TestClockDrivenExpiry checks hour-scale TTL expiry without sleeping: the
// injected clock is advanced past the deadline and the next operation on the
// resource reconciles it.
func TestClockDrivenExpiry(t *testing.T) {
	clk := newManualClock()
	mgr := lockmgr.NewLockManager(
		lockmgr.WithClock(clk),
		lockmgr.WithSweepInterval(10*time.Millisecond),
	)
	defer mgr.Close()

	if _, err := mgr.Lock("cold", time.Hour, 0, "owner"); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Just before the deadline the lock is still held
	clk.advance(59 * time.Minute)
	info, err := mgr.Exists("cold")
	if err != nil || !info.Locked {
		t.Fatalf("Lock should still be held before its deadline, got %+v err=%v", info, err)
	}

	// Past the deadline the holder is evicted
	clk.advance(2 * time.Minute)
	info, err = mgr.Exists("cold")
	if err != nil || info.Locked {
		t.Fatalf("Lock should have expired, got %+v err=%v", info, err)
	}

	// And the key is immediately lockable again
	if _, err := mgr.Lock("cold", 0, 0, ""); err != nil {
		t.Fatalf("Re-lock after expiry failed: %v", err)
	}
	if ok, err := mgr.Release("cold", "owner"); ok || !lockmgr.IsNotHeld(err) {
		t.Errorf("Expired handle must report not held, got ok=%v err=%v", ok, err)
	}
}

// TestDuplicateIDWaiters checks that two waiters queued with the same
// caller-supplied id never both hold the lock: exactly one is granted and
// the other fails with InvalidArgument.
func TestDuplicateIDWaiters(t *testing.T) {
	mgr := lockmgr.NewLockManager(lockmgr.WithSweepInterval(10 * time.Millisecond))
	defer mgr.Close()

	holdID, err := mgr.Lock("dup", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := mgr.LockRead("dup", 0, 2*time.Second, "same-id")
			results <- err
		}()
	}

	time.Sleep(100 * time.Millisecond)
	if ok, err := mgr.Release("dup", holdID); !ok || err != nil {
		t.Fatalf("Release failed: ok=%v err=%v", ok, err)
	}

	var granted, rejected int
	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			switch {
			case err == nil:
				granted++
			case lockmgr.IsInvalidArgument(err):
				rejected++
			default:
				t.Fatalf("Unexpected waiter outcome: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Waiter did not resolve")
		}
	}
	if granted != 1 || rejected != 1 {
		t.Fatalf("Expected one grant and one rejection, got granted=%d rejected=%d", granted, rejected)
	}

	info, err := mgr.Exists("dup")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !info.Locked || len(info.HolderIDs) != 1 {
		t.Errorf("Expected exactly one holder, got %+v", info)
	}

	// A single release frees exactly one acquisition
	if ok, err := mgr.Release("dup", "same-id"); !ok || err != nil {
		t.Errorf("Release failed: ok=%v err=%v", ok, err)
	}
	if ok, err := mgr.Release("dup", "same-id"); ok || !lockmgr.IsNotHeld(err) {
		t.Errorf("Second release must report not held, got ok=%v err=%v", ok, err)
	}
}

// TestManyExpiringLocks stresses the sweeper with many resources expiring
// around the same time.
func TestManyExpiringLocks(t *testing.T) {
	mgr := lockmgr.NewLockManager(lockmgr.WithSweepInterval(10 * time.Millisecond))
	defer mgr.Close()

	const locks = 200
	for i := 0; i < locks; i++ {
		key := "bulk-" + string(rune('a'+i%26)) + "-" + time.Duration(i).String()
		if _, err := mgr.Lock(key, 50*time.Millisecond, 0, ""); err != nil {
			t.Fatalf("Lock %d failed: %v", i, err)
		}
	}

	time.Sleep(300 * time.Millisecond)

	for i := 0; i < locks; i++ {
		key := "bulk-" + string(rune('a'+i%26)) + "-" + time.Duration(i).String()
		info, err := mgr.Exists(key)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if info.Locked {
			t.Errorf("Lock %q not expired", key)
		}
	}
}
