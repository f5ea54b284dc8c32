package lockmgr

import "time"

// --------------------------------------------------------------------------
// Waiter Type
// --------------------------------------------------------------------------

// waitOutcome is the single-assignment resolution of a waiter: either a
// granted handle id or a timeout error.
type waitOutcome struct {
	handleID string
	err      error
}

// waiter is a suspended acquisition request queued on a lockState.
//
// The resolution protocol: the resolved flag is guarded by the owning
// lockState mutex and is flipped exactly once, by whichever actor (the
// draining logic or the blocked caller upon its deadline) observes the
// terminal condition first. A grant only materializes (holder added, outcome
// sent) after winning the flag, so the race between "granted" and "timed out"
// can never produce a handle that no caller receives.
type waiter struct {
	mode     Mode          // requested locking mode
	id       string        // candidate handle id
	ttl      time.Duration // ttl of the handle once granted (0 = never expires)
	deadline time.Time     // absolute time after which the wait aborts

	// resolved is guarded by the owning lockState mutex.
	resolved bool
	// done receives the outcome exactly once; buffered so the resolver never
	// blocks on a caller that is concurrently timing out.
	done chan waitOutcome
}

func newWaiter(mode Mode, id string, ttl time.Duration, deadline time.Time) *waiter {
	return &waiter{
		mode:     mode,
		id:       id,
		ttl:      ttl,
		deadline: deadline,
		done:     make(chan waitOutcome, 1),
	}
}

// grant resolves the waiter with a handle id.
// Must be called with the owning lockState mutex held and resolved == false.
func (w *waiter) grant(handleID string) {
	w.resolved = true
	w.done <- waitOutcome{handleID: handleID}
}

// timeout resolves the waiter with a timeout error.
// Must be called with the owning lockState mutex held and resolved == false.
func (w *waiter) timeout() {
	w.fail(NewError(RetCTimeout, "lock not acquired within wait budget"))
}

// fail resolves the waiter with the given error.
// Must be called with the owning lockState mutex held and resolved == false.
func (w *waiter) fail(err error) {
	w.resolved = true
	w.done <- waitOutcome{err: err}
}
