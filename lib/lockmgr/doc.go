// Package lockmgr implements an in-process lock manager that coordinates
// access to named resources through exclusive and shared locks, with
// time-bounded acquisition, automatic expiry and forced revocation.
//
// The manager only ever keeps state in its own lock table and has no other
// external dependencies except a clock. Any number of independent manager
// instances can coexist in one process; each instance owns an independent,
// non-persisted lock table.
//
// Core Functionality:
//   - Exclusive (Lock) and shared (LockRead) acquisition with optional
//     caller-supplied handle ids
//   - Blocking acquisition with a per-call wait budget and strict FIFO
//     fairness per resource (runs of compatible shared requests at the head
//     of the queue are coalesced)
//   - Automatic lock expiration through per-handle TTLs, reconciled by a
//     background sweeper, plus TTL renewal via UpdateTTL
//   - Forced revocation (ForceRelease) that clears all holders regardless of
//     ownership
//
// Implementation Approach:
//
//	Each resource key maps to a lock state, the per-resource state machine
//	with modes Unlocked, Exclusive and Shared. The state is the unit of
//	mutual exclusion: every transition runs under the state's own mutex, so
//	operations on distinct keys never contend with each other. States are
//	created lazily on first acquisition and reclaimed once they have neither
//	holders nor waiters, which bounds the memory of the table under key
//	churn. The create/reclaim race is resolved with a per-state dead flag
//	and a conditional delete against the concurrent table.
//
//	Blocked acquisitions suspend as waiters: a waiter carries a
//	single-assignment resolution slot (a flag guarded by the resource mutex
//	plus a buffered channel) that is written exactly once, by whichever
//	actor observes the terminal condition first. A grant is only
//	materialized after winning the slot, so the grant/timeout race can never
//	leak a handle no caller receives.
//
//	The expiry sweeper runs on a fixed interval independent of callers. It
//	tracks the earliest finite expiry per resource in a keyed min-heap and
//	reconciles due resources under the same per-resource exclusion as
//	caller operations, briefly.
//
// Usage Example:
//
//	// Create a manager
//	mgr := lockmgr.NewLockManager()
//	defer mgr.Close()
//
//	// Acquire an exclusive lock with a 30s TTL, waiting up to 5s
//	id, err := mgr.Lock("pdf:create", 30*time.Second, 5*time.Second, "")
//	if err != nil {
//	    // lockmgr.IsTimeout(err) => wait budget exhausted, safe to retry
//	}
//
//	// Use the resource safely
//	// ...
//
//	// Release the lock when done
//	ok, err := mgr.Release("pdf:create", id)
//
// Thread Safety:
//
//	All operations are safe for concurrent use. Lock and LockRead may block
//	up to their wait budget; Release, ForceRelease, Exists and UpdateTTL
//	only block for the brief per-resource exclusion window.
package lockmgr
