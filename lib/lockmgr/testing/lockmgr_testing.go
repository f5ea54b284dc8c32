package testing

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
)

// ManagerFactory is a function that creates a new instance of an
// ILockManager implementation.
type ManagerFactory func() lockmgr.ILockManager

// RunLockManagerTests runs a comprehensive test suite for an ILockManager
// implementation.
func RunLockManagerTests(t *testing.T, name string, factory ManagerFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("RoundTrip", func(t *testing.T) {
			testRoundTrip(t, factory())
		})

		t.Run("InvalidArguments", func(t *testing.T) {
			testInvalidArguments(t, factory())
		})

		t.Run("CallerSuppliedID", func(t *testing.T) {
			testCallerSuppliedID(t, factory())
		})

		t.Run("MutualExclusion", func(t *testing.T) {
			testMutualExclusion(t, factory())
		})

		t.Run("SharedConcurrency", func(t *testing.T) {
			testSharedConcurrency(t, factory())
		})

		t.Run("SharedBlocksExclusive", func(t *testing.T) {
			testSharedBlocksExclusive(t, factory())
		})

		t.Run("FIFOFairness", func(t *testing.T) {
			testFIFOFairness(t, factory())
		})

		t.Run("TTLExpiry", func(t *testing.T) {
			testTTLExpiry(t, factory())
		})

		t.Run("UpdateTTLExtendsLife", func(t *testing.T) {
			testUpdateTTLExtendsLife(t, factory())
		})

		t.Run("ForceRelease", func(t *testing.T) {
			testForceRelease(t, factory())
		})

		t.Run("TimeoutNoSideEffect", func(t *testing.T) {
			testTimeoutNoSideEffect(t, factory())
		})

		t.Run("WaiterGrantedOnRelease", func(t *testing.T) {
			testWaiterGrantedOnRelease(t, factory())
		})

		t.Run("IndependentResources", func(t *testing.T) {
			testIndependentResources(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testRoundTrip(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	id, err := mgr.Lock("round-trip", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if id == "" {
		t.Fatal("Lock returned an empty handle id")
	}

	info, err := mgr.Exists("round-trip")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !info.Locked || info.Mode != lockmgr.ModeExclusive {
		t.Errorf("Expected exclusive lock, got %+v", info)
	}
	if len(info.HolderIDs) != 1 || info.HolderIDs[0] != id {
		t.Errorf("Expected holder %q, got %v", id, info.HolderIDs)
	}

	ok, err := mgr.Release("round-trip", id)
	if err != nil || !ok {
		t.Fatalf("Release failed: ok=%v err=%v", ok, err)
	}

	// The resource must return to its original unlocked state
	info, err = mgr.Exists("round-trip")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if info.Locked {
		t.Errorf("Expected resource to be unlocked after release, got %+v", info)
	}

	// Releasing again reports NotHeld
	ok, err = mgr.Release("round-trip", id)
	if ok || !lockmgr.IsNotHeld(err) {
		t.Errorf("Expected NotHeld on double release, got ok=%v err=%v", ok, err)
	}
}

func testInvalidArguments(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	if _, err := mgr.Lock("", 0, 0, ""); !lockmgr.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for empty key, got %v", err)
	}
	if _, err := mgr.Lock("k", -time.Second, 0, ""); !lockmgr.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for negative ttl, got %v", err)
	}
	if _, err := mgr.LockRead("k", 0, -time.Second, ""); !lockmgr.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for negative waitTTL, got %v", err)
	}
	if _, err := mgr.UpdateTTL("k", "id", -time.Second); !lockmgr.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for negative UpdateTTL ttl, got %v", err)
	}
	if _, err := mgr.Exists(""); !lockmgr.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for empty Exists key, got %v", err)
	}
	if _, err := mgr.LockRead("dup", 0, 0, "same-id"); err != nil {
		t.Fatalf("LockRead failed: %v", err)
	}
	if _, err := mgr.LockRead("dup", 0, 0, "same-id"); !lockmgr.IsInvalidArgument(err) {
		t.Errorf("Expected InvalidArgument for duplicate holder id, got %v", err)
	}
	if ok, err := mgr.Release("dup", "same-id"); !ok || err != nil {
		t.Errorf("Release failed: ok=%v err=%v", ok, err)
	}

	// A rejected request must not have created any state
	info, err := mgr.Exists("k")
	if err != nil || info.Locked {
		t.Errorf("Expected no state for key after rejected requests, got %+v err=%v", info, err)
	}
}

func testCallerSuppliedID(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	id, err := mgr.Lock("custom-id", 0, 0, "my-handle")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if id != "my-handle" {
		t.Errorf("Expected caller-supplied id to be used, got %q", id)
	}

	if ok, err := mgr.Release("custom-id", "my-handle"); !ok || err != nil {
		t.Errorf("Release with caller-supplied id failed: ok=%v err=%v", ok, err)
	}
}

func testMutualExclusion(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	const goroutines = 16
	const iterations = 25

	var inCritical atomic.Int32
	var violations atomic.Int32
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				id, err := mgr.Lock("critical", 0, 5*time.Second, "")
				if err != nil {
					t.Errorf("Lock failed: %v", err)
					return
				}

				// At no point may two exclusive grants coexist
				if inCritical.Add(1) != 1 {
					violations.Add(1)
				}
				inCritical.Add(-1)

				if ok, err := mgr.Release("critical", id); !ok || err != nil {
					t.Errorf("Release failed: ok=%v err=%v", ok, err)
					return
				}
			}
		}()
	}

	wg.Wait()

	if violations.Load() > 0 {
		t.Errorf("Mutual exclusion violated %d times", violations.Load())
	}
}

func testSharedConcurrency(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	const readers = 10

	ids := make([]string, readers)
	var wg sync.WaitGroup
	wg.Add(readers)

	for r := 0; r < readers; r++ {
		go func(i int) {
			defer wg.Done()
			id, err := mgr.LockRead("shared", 0, 2*time.Second, fmt.Sprintf("reader-%d", i))
			if err != nil {
				t.Errorf("LockRead %d failed: %v", i, err)
				return
			}
			ids[i] = id
		}(r)
	}
	wg.Wait()

	info, err := mgr.Exists("shared")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !info.Locked || info.Mode != lockmgr.ModeShared {
		t.Fatalf("Expected shared lock, got %+v", info)
	}
	if len(info.HolderIDs) != readers {
		t.Errorf("Expected %d holders, got %d", readers, len(info.HolderIDs))
	}

	for _, id := range ids {
		if ok, err := mgr.Release("shared", id); !ok || err != nil {
			t.Errorf("Release of %q failed: ok=%v err=%v", id, ok, err)
		}
	}
}

func testSharedBlocksExclusive(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	readID, err := mgr.LockRead("mixed", 0, 0, "")
	if err != nil {
		t.Fatalf("LockRead failed: %v", err)
	}

	// An exclusive grant never coexists with a shared grant
	if _, err := mgr.Lock("mixed", 0, 50*time.Millisecond, ""); !lockmgr.IsTimeout(err) {
		t.Errorf("Expected Timeout for exclusive lock on shared resource, got %v", err)
	}

	// A second reader is fine
	readID2, err := mgr.LockRead("mixed", 0, 0, "")
	if err != nil {
		t.Fatalf("Second LockRead failed: %v", err)
	}

	mgr.Release("mixed", readID)
	mgr.Release("mixed", readID2)
}

func testFIFOFairness(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	holdID, err := mgr.Lock("fifo", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	const waiters = 5
	var order []int
	var orderMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(waiters)

	for i := 0; i < waiters; i++ {
		go func(n int) {
			defer wg.Done()
			id, err := mgr.Lock("fifo", 0, 5*time.Second, "")
			if err != nil {
				t.Errorf("Waiter %d failed: %v", n, err)
				return
			}
			orderMu.Lock()
			order = append(order, n)
			orderMu.Unlock()
			mgr.Release("fifo", id)
		}(i)
		// Give each waiter time to enqueue before starting the next one,
		// so arrival order is deterministic
		time.Sleep(50 * time.Millisecond)
	}

	if ok, err := mgr.Release("fifo", holdID); !ok || err != nil {
		t.Fatalf("Release failed: ok=%v err=%v", ok, err)
	}
	wg.Wait()

	for i, n := range order {
		if n != i {
			t.Errorf("Waiters granted out of arrival order: %v", order)
			break
		}
	}
}

func testTTLExpiry(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	if _, err := mgr.Lock("expiring", 100*time.Millisecond, 0, ""); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Still held before the TTL elapses
	info, _ := mgr.Exists("expiring")
	if !info.Locked {
		t.Fatal("Expected lock to be held before TTL elapsed")
	}

	time.Sleep(300 * time.Millisecond)

	// Expired without any intervening release
	info, err := mgr.Exists("expiring")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if info.Locked {
		t.Errorf("Expected lock to have expired, got %+v", info)
	}

	// A subsequent acquisition succeeds immediately
	id, err := mgr.Lock("expiring", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock after expiry failed: %v", err)
	}
	mgr.Release("expiring", id)
}

func testUpdateTTLExtendsLife(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	id, err := mgr.Lock("renewable", 200*time.Millisecond, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Renew before the original TTL elapses
	time.Sleep(100 * time.Millisecond)
	if ok, err := mgr.UpdateTTL("renewable", id, 400*time.Millisecond); !ok || err != nil {
		t.Fatalf("UpdateTTL failed: ok=%v err=%v", ok, err)
	}

	// Past the original TTL the lock must still be held
	time.Sleep(200 * time.Millisecond)
	info, _ := mgr.Exists("renewable")
	if !info.Locked {
		t.Error("Expected renewed lock to still be held past its original TTL")
	}

	// After the renewed TTL it expires
	time.Sleep(400 * time.Millisecond)
	info, _ = mgr.Exists("renewable")
	if info.Locked {
		t.Error("Expected renewed lock to expire eventually")
	}

	// Renewing an expired handle reports NotHeld
	if ok, err := mgr.UpdateTTL("renewable", id, time.Second); ok || !lockmgr.IsNotHeld(err) {
		t.Errorf("Expected NotHeld for expired handle, got ok=%v err=%v", ok, err)
	}
}

func testForceRelease(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	id, err := mgr.Lock("forced", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ok, err := mgr.ForceRelease("forced")
	if !ok || err != nil {
		t.Fatalf("ForceRelease failed: ok=%v err=%v", ok, err)
	}

	info, _ := mgr.Exists("forced")
	if info.Locked {
		t.Errorf("Expected resource to be unlocked after ForceRelease, got %+v", info)
	}

	// The old handle is gone
	if ok, err := mgr.Release("forced", id); ok || !lockmgr.IsNotHeld(err) {
		t.Errorf("Expected NotHeld after ForceRelease, got ok=%v err=%v", ok, err)
	}

	// Idempotent on an already-unlocked resource
	if ok, err := mgr.ForceRelease("forced"); !ok || err != nil {
		t.Errorf("Expected second ForceRelease to succeed trivially, got ok=%v err=%v", ok, err)
	}
}

func testTimeoutNoSideEffect(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	holdID, err := mgr.Lock("contended", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Second caller times out
	start := time.Now()
	_, err = mgr.Lock("contended", 0, 100*time.Millisecond, "")
	if !lockmgr.IsTimeout(err) {
		t.Fatalf("Expected Timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Timeout returned too early after %v", elapsed)
	}

	// The original holder is unaffected, no residual waiters
	info, _ := mgr.Exists("contended")
	if !info.Locked || len(info.HolderIDs) != 1 || info.HolderIDs[0] != holdID {
		t.Errorf("Expected original holder only, got %+v", info)
	}

	mgr.Release("contended", holdID)
}

func testWaiterGrantedOnRelease(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	holdID, err := mgr.Lock("handover", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	granted := make(chan string, 1)
	go func() {
		id, err := mgr.Lock("handover", 0, 2*time.Second, "")
		if err != nil {
			t.Errorf("Waiting Lock failed: %v", err)
			close(granted)
			return
		}
		granted <- id
	}()

	// Let the waiter enqueue, then hand over
	time.Sleep(100 * time.Millisecond)
	if ok, err := mgr.Release("handover", holdID); !ok || err != nil {
		t.Fatalf("Release failed: ok=%v err=%v", ok, err)
	}

	select {
	case id := <-granted:
		if id == "" {
			t.Fatal("Waiter was not granted")
		}
		mgr.Release("handover", id)
	case <-time.After(2 * time.Second):
		t.Fatal("Waiter was not woken by the release")
	}
}

func testIndependentResources(t *testing.T, mgr lockmgr.ILockManager) {
	defer mgr.Close()

	// A held lock on one key must not affect another key
	if _, err := mgr.Lock("resource-a", 0, 0, ""); err != nil {
		t.Fatalf("Lock a failed: %v", err)
	}

	start := time.Now()
	id, err := mgr.Lock("resource-b", 0, 0, "")
	if err != nil {
		t.Fatalf("Lock b failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Independent resource contended for %v", elapsed)
	}
	mgr.Release("resource-b", id)
}
