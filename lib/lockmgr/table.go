package lockmgr

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Lock Table
// --------------------------------------------------------------------------

// lockTable is the concurrent registry mapping resource key to lockState.
// Structural mutations (insert/remove of a key) are handled by the xsync map
// and are a separate exclusion domain from per-resource state mutation, so
// operations on distinct keys never contend with each other.
//
// The create/reclaim race is resolved with a dead flag: reclaim marks the
// state dead while holding its mutex and removes exactly that pointer from
// the map, a racing resolve that still loaded the stale pointer observes the
// dead flag after acquiring the mutex and retries, creating a fresh state.
type lockTable struct {
	entries *xsync.MapOf[string, *lockState]
}

func newLockTable() *lockTable {
	return &lockTable{
		entries: xsync.NewMapOf[string, *lockState](),
	}
}

// resolve returns the lockState for the given key, lazily creating an
// unlocked one. The state is returned with its mutex HELD and is guaranteed
// to be live (not reclaimed); the caller must unlock it.
func (t *lockTable) resolve(key string) *lockState {
	for {
		st, _ := t.entries.LoadOrCompute(key, func() *lockState {
			return newLockState(key)
		})
		st.mu.Lock()
		if !st.dead {
			return st
		}
		// Lost the race against reclaim, the pointer is stale. The reclaimer
		// removed it from the map before releasing the mutex, so the next
		// LoadOrCompute creates a fresh state.
		st.mu.Unlock()
	}
}

// lookup returns the existing lockState for the given key with its mutex
// HELD, or nil if no state exists. Never creates a state.
func (t *lockTable) lookup(key string) *lockState {
	for {
		st, ok := t.entries.Load(key)
		if !ok {
			return nil
		}
		st.mu.Lock()
		if !st.dead {
			return st
		}
		st.mu.Unlock()
	}
}

// reclaim removes a holder-free and waiter-free state from the table.
// Must be called with st.mu held; the entry is only deleted if the map still
// holds this exact pointer, so a newer state for the same key is never lost.
func (t *lockTable) reclaim(st *lockState) {
	st.dead = true
	t.entries.Compute(st.key, func(curr *lockState, loaded bool) (*lockState, bool) {
		if loaded && curr == st {
			return nil, true // delete
		}
		return curr, !loaded
	})
}

// size returns the number of registered resources.
func (t *lockTable) size() int {
	return t.entries.Size()
}
