package lockmgr

import (
	"fmt"
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Handle Type
// --------------------------------------------------------------------------

// handle represents one successful acquisition of a resource.
type handle struct {
	id        string
	mode      Mode
	expiresAt time.Time // zero value = never expires
}

// expired reports whether the handle is past its expiry at the given time.
func (h *handle) expired(now time.Time) bool {
	return !h.expiresAt.IsZero() && !h.expiresAt.After(now)
}

// --------------------------------------------------------------------------
// Lock State (per-resource state machine)
// --------------------------------------------------------------------------

// lockState is the state machine for a single named resource. It is the unit
// of mutual exclusion: every transition (acquire, release, expire, drain)
// runs with mu held, so only one logical transition executes against a
// resource at a time. The table's structural mutations are a separate
// exclusion domain (see lockTable).
//
// Invariants (checked by checkLocked, violations are programming errors):
//   - mode == ModeExclusive => exactly one holder
//   - mode == ModeShared    => at least one holder
//   - mode == ModeUnlocked  => no holders
type lockState struct {
	key string

	mu sync.Mutex

	// dead marks a state that has been removed from the table. A resolve
	// that acquires mu and observes dead must retry against the table.
	dead bool

	mode    Mode
	holders map[string]*handle
	waiters []*waiter // strict FIFO
}

func newLockState(key string) *lockState {
	return &lockState{
		key:     key,
		mode:    ModeUnlocked,
		holders: make(map[string]*handle),
	}
}

// --------------------------------------------------------------------------
// Transitions (callers must hold mu)
// --------------------------------------------------------------------------

// grantableLocked reports whether a request for the given mode could be
// granted against the current holder set (FIFO ordering is the caller's
// concern, this only checks mode compatibility).
func (s *lockState) grantableLocked(mode Mode) bool {
	switch mode {
	case ModeExclusive:
		return s.mode == ModeUnlocked
	case ModeShared:
		return s.mode == ModeUnlocked || s.mode == ModeShared
	default:
		return false
	}
}

// addHolderLocked adds a new handle for the given id and moves the state to
// the requested mode. The transition must be legal (grantableLocked).
func (s *lockState) addHolderLocked(id string, mode Mode, ttl time.Duration, now time.Time) *handle {
	if !s.grantableLocked(mode) {
		panic(fmt.Sprintf("lockmgr: illegal %s acquisition on %s resource %q", mode, s.mode, s.key))
	}
	if _, exists := s.holders[id]; exists {
		panic(fmt.Sprintf("lockmgr: duplicate handle id %q on resource %q", id, s.key))
	}

	h := &handle{id: id, mode: mode}
	if ttl > 0 {
		h.expiresAt = now.Add(ttl)
	}

	s.holders[id] = h
	s.mode = mode
	s.checkLocked()
	return h
}

// releaseLocked removes the handle matching id from the holder set.
// Returns false if no holder matches (the state is left untouched).
func (s *lockState) releaseLocked(id string) bool {
	if _, ok := s.holders[id]; !ok {
		return false
	}
	delete(s.holders, id)
	if len(s.holders) == 0 {
		s.mode = ModeUnlocked
	}
	s.checkLocked()
	return true
}

// forceReleaseLocked unconditionally clears all holders.
// Returns the number of holders that were evicted.
func (s *lockState) forceReleaseLocked() int {
	n := len(s.holders)
	if n > 0 {
		s.holders = make(map[string]*handle)
	}
	s.mode = ModeUnlocked
	return n
}

// expireLocked removes every holder whose expiry is <= now.
// Returns the number of expired holders.
func (s *lockState) expireLocked(now time.Time) int {
	n := 0
	for id, h := range s.holders {
		if h.expired(now) {
			delete(s.holders, id)
			n++
		}
	}
	if len(s.holders) == 0 {
		s.mode = ModeUnlocked
	}
	s.checkLocked()
	return n
}

// updateTTLLocked replaces the expiry of the holder with the given id by
// now+ttl (ttl=0 clears the expiry). Returns false if the id is not held.
func (s *lockState) updateTTLLocked(id string, ttl time.Duration, now time.Time) bool {
	h, ok := s.holders[id]
	if !ok {
		return false
	}
	if ttl > 0 {
		h.expiresAt = now.Add(ttl)
	} else {
		h.expiresAt = time.Time{}
	}
	return true
}

// --------------------------------------------------------------------------
// Waiter Queue Operations (callers must hold mu)
// --------------------------------------------------------------------------

// enqueueLocked appends a waiter in FIFO order.
func (s *lockState) enqueueLocked(w *waiter) {
	s.waiters = append(s.waiters, w)
}

// removeWaiterLocked removes a waiter that resolved itself (caller timeout).
func (s *lockState) removeWaiterLocked(w *waiter) {
	for i, queued := range s.waiters {
		if queued == w {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// drainLocked re-evaluates the head of the waiter queue against the current
// state, granting as long as waiters remain eligible: a run of consecutive
// shared requests at the head is granted together, an exclusive request is
// granted alone and stops the drain. Waiters past their deadline are resolved
// as timed out and skipped rather than granted.
func (s *lockState) drainLocked(now time.Time) {
	for len(s.waiters) > 0 {
		w := s.waiters[0]

		// Caller already resolved itself (timeout race), just drop it
		if w.resolved {
			s.waiters = s.waiters[1:]
			continue
		}

		// Deadline passed, resolve as timed out instead of granting
		if !now.Before(w.deadline) {
			s.waiters = s.waiters[1:]
			w.timeout()
			continue
		}

		// Head of queue blocks all younger waiters (strict FIFO)
		if !s.grantableLocked(w.mode) {
			return
		}

		s.waiters = s.waiters[1:]

		// A grant must not reuse the id of a current holder, the handle
		// would be ambiguous on Release. Happens when two waiters were
		// queued with the same caller-supplied id.
		if _, held := s.holders[w.id]; held {
			w.fail(NewError(RetCInvalidArgument, fmt.Sprintf("id %q already holds a lock on key %q", w.id, s.key)))
			continue
		}

		h := s.addHolderLocked(w.id, w.mode, w.ttl, now)
		w.grant(h.id)

		// An exclusive grant stops the drain, shared grants coalesce
		if w.mode == ModeExclusive {
			return
		}
	}
}

// --------------------------------------------------------------------------
// Queries (callers must hold mu)
// --------------------------------------------------------------------------

// emptyLocked reports whether the state is eligible for reclamation.
func (s *lockState) emptyLocked() bool {
	return len(s.holders) == 0 && len(s.waiters) == 0
}

// earliestExpiryLocked returns the earliest finite expiry among the current
// holders, used by the sweeper to schedule the next reconciliation.
func (s *lockState) earliestExpiryLocked() (time.Time, bool) {
	var earliest time.Time
	for _, h := range s.holders {
		if h.expiresAt.IsZero() {
			continue
		}
		if earliest.IsZero() || h.expiresAt.Before(earliest) {
			earliest = h.expiresAt
		}
	}
	return earliest, !earliest.IsZero()
}

// infoLocked returns a snapshot of the current holders.
func (s *lockState) infoLocked() LockInfo {
	info := LockInfo{
		Locked: len(s.holders) > 0,
		Mode:   s.mode,
	}
	for id := range s.holders {
		info.HolderIDs = append(info.HolderIDs, id)
	}
	return info
}

// checkLocked validates the mode/holder invariants. A violation is a bug in
// the state machine itself, never a user error.
func (s *lockState) checkLocked() {
	switch s.mode {
	case ModeUnlocked:
		if len(s.holders) != 0 {
			panic(fmt.Sprintf("lockmgr: unlocked resource %q has %d holders", s.key, len(s.holders)))
		}
	case ModeExclusive:
		if len(s.holders) != 1 {
			panic(fmt.Sprintf("lockmgr: exclusive resource %q has %d holders", s.key, len(s.holders)))
		}
	case ModeShared:
		if len(s.holders) == 0 {
			panic(fmt.Sprintf("lockmgr: shared resource %q has no holders", s.key))
		}
	}
}
