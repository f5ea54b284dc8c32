// Package testing provides a reusable conformance test suite for
// implementations of the lockmgr.ILockManager interface.
//
// The suite covers the full operation contract: mutual exclusion of
// exclusive grants, shared concurrency, FIFO fairness of waiters, TTL expiry
// through the sweeper, TTL renewal, unconditional and idempotent forced
// release, and timeout behavior without side effects.
//
// The suite uses real time with short TTLs, implementations under test
// should run their expiry sweeper with an interval of 50ms or less.
//
// Usage Example:
//
//	func Test(t *testing.T) {
//	    lmtesting.RunLockManagerTests(t, "LockManager", func() lockmgr.ILockManager {
//	        return lockmgr.NewLockManager(lockmgr.WithSweepInterval(10 * time.Millisecond))
//	    })
//	}
package testing
