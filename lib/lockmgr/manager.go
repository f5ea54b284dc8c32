package lockmgr

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	log = logger.GetLogger("lockmgr")

	locksGrantedExclusive = metrics.GetOrCreateCounter(`dlock_locks_granted_total{mode="exclusive"}`)
	locksGrantedShared    = metrics.GetOrCreateCounter(`dlock_locks_granted_total{mode="shared"}`)
	locksTimedOut         = metrics.GetOrCreateCounter(`dlock_locks_timeout_total`)
	locksForceReleased    = metrics.GetOrCreateCounter(`dlock_locks_force_released_total`)
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Config holds the tunable parameters of a lock manager instance.
type Config struct {
	Clock         IClock
	SweepInterval time.Duration
}

// WithClock replaces the time source of the manager (used in tests).
func WithClock(clock IClock) func(*Config) {
	return func(config *Config) {
		config.Clock = clock
	}
}

// WithSweepInterval sets the interval of the background expiry sweeper.
// It should be small relative to the typical lock TTLs.
func WithSweepInterval(interval time.Duration) func(*Config) {
	return func(config *Config) {
		config.SweepInterval = interval
	}
}

// --------------------------------------------------------------------------
// Lock Manager
// --------------------------------------------------------------------------

type lockMgrImpl struct {
	clock   IClock
	table   *lockTable
	sweeper *sweeper
}

// NewLockManager creates a new in-process lock manager with its own lock
// table and expiry sweeper. Instances are fully independent, any number of
// them can coexist in one process.
func NewLockManager(options ...func(*Config)) ILockManager {
	config := &Config{
		Clock:         NewSystemClock(),
		SweepInterval: defaultSweepInterval,
	}
	for _, option := range options {
		option(config)
	}

	table := newLockTable()
	mgr := &lockMgrImpl{
		clock:   config.Clock,
		table:   table,
		sweeper: newSweeper(table, config.Clock, config.SweepInterval),
	}
	mgr.sweeper.start()
	log.Infof("created lock manager (sweep interval %v)", mgr.sweeper.interval)
	return mgr
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (m *lockMgrImpl) Lock(key string, ttl, waitTTL time.Duration, id string) (string, error) {
	return m.acquire(key, ModeExclusive, ttl, waitTTL, id)
}

func (m *lockMgrImpl) LockRead(key string, ttl, waitTTL time.Duration, id string) (string, error) {
	return m.acquire(key, ModeShared, ttl, waitTTL, id)
}

func (m *lockMgrImpl) Release(key, id string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	st := m.table.lookup(key)
	if st == nil {
		return false, NewError(RetCNotHeld, fmt.Sprintf("no lock held for key %q", key))
	}

	now := m.clock.Now()
	st.expireLocked(now)
	ok := st.releaseLocked(id)
	st.drainLocked(now)
	m.settleLocked(st)
	st.mu.Unlock()

	if !ok {
		return false, NewError(RetCNotHeld, fmt.Sprintf("handle %q not held for key %q", id, key))
	}
	return true, nil
}

func (m *lockMgrImpl) ForceRelease(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	st := m.table.lookup(key)
	if st == nil {
		// Nothing held, trivially successful
		return true, nil
	}

	now := m.clock.Now()
	if n := st.forceReleaseLocked(); n > 0 {
		locksForceReleased.Add(n)
	}
	// Pending waiters stay queued and contend for the unlocked resource
	st.drainLocked(now)
	m.settleLocked(st)
	st.mu.Unlock()

	return true, nil
}

func (m *lockMgrImpl) Exists(key string) (LockInfo, error) {
	if err := validateKey(key); err != nil {
		return LockInfo{}, err
	}

	st := m.table.lookup(key)
	if st == nil {
		return LockInfo{}, nil
	}

	now := m.clock.Now()
	if st.expireLocked(now) > 0 {
		st.drainLocked(now)
	}
	info := st.infoLocked()
	m.settleLocked(st)
	st.mu.Unlock()

	return info, nil
}

func (m *lockMgrImpl) UpdateTTL(key, id string, ttl time.Duration) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if ttl < 0 {
		return false, NewError(RetCInvalidArgument, "ttl must not be negative")
	}

	st := m.table.lookup(key)
	if st == nil {
		return false, NewError(RetCNotHeld, fmt.Sprintf("no lock held for key %q", key))
	}

	now := m.clock.Now()
	if st.expireLocked(now) > 0 {
		st.drainLocked(now)
	}
	ok := st.updateTTLLocked(id, ttl, now)
	m.settleLocked(st)
	st.mu.Unlock()

	if !ok {
		return false, NewError(RetCNotHeld, fmt.Sprintf("handle %q not held for key %q", id, key))
	}
	return true, nil
}

func (m *lockMgrImpl) Close() error {
	m.sweeper.stop()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// acquire implements the shared logic of Lock and LockRead.
func (m *lockMgrImpl) acquire(key string, mode Mode, ttl, waitTTL time.Duration, id string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if ttl < 0 || waitTTL < 0 {
		return "", NewError(RetCInvalidArgument, "ttl and waitTTL must not be negative")
	}
	if id == "" {
		generated, err := generateHandleID()
		if err != nil {
			return "", NewError(RetCInternalError, fmt.Sprintf("failed to generate handle id: %v", err))
		}
		id = generated
	}

	st := m.table.resolve(key)
	now := m.clock.Now()

	// Evict stale holders before evaluating the transition so an expired
	// lock never blocks a new acquisition.
	if st.expireLocked(now) > 0 {
		st.drainLocked(now)
	}

	// A handle id must be unique among the holders of one resource,
	// otherwise a later Release(key, id) would be ambiguous.
	if _, held := st.holders[id]; held {
		m.settleLocked(st)
		st.mu.Unlock()
		return "", NewError(RetCInvalidArgument, fmt.Sprintf("id %q already holds a lock on key %q", id, key))
	}

	// Immediate grant only when no waiter is queued ahead of us, otherwise a
	// new arrival would jump the FIFO queue.
	if len(st.waiters) == 0 && st.grantableLocked(mode) {
		h := st.addHolderLocked(id, mode, ttl, now)
		m.settleLocked(st)
		st.mu.Unlock()
		m.countGrant(mode)
		return h.id, nil
	}

	// No wait budget, fail right away without touching the state
	if waitTTL == 0 {
		m.settleLocked(st)
		st.mu.Unlock()
		locksTimedOut.Inc()
		return "", NewError(RetCTimeout, fmt.Sprintf("lock for key %q not acquired within wait budget", key))
	}

	// Suspend as a waiter until granted, timed out or force-drained
	w := newWaiter(mode, id, ttl, now.Add(waitTTL))
	st.enqueueLocked(w)
	st.mu.Unlock()

	select {
	case outcome := <-w.done:
		if outcome.err != nil {
			if IsTimeout(outcome.err) {
				locksTimedOut.Inc()
			}
			return "", outcome.err
		}
		m.countGrant(mode)
		return outcome.handleID, nil

	case <-m.clock.After(waitTTL):
		// The deadline fired, but a grant may be racing us. Settle the
		// single-assignment resolution under the state mutex.
		st.mu.Lock()
		if w.resolved {
			st.mu.Unlock()
			// Lost the race, the outcome is already buffered
			outcome := <-w.done
			if outcome.err != nil {
				if IsTimeout(outcome.err) {
					locksTimedOut.Inc()
				}
				return "", outcome.err
			}
			m.countGrant(mode)
			return outcome.handleID, nil
		}
		w.resolved = true
		st.removeWaiterLocked(w)
		m.settleLocked(st)
		st.mu.Unlock()
		locksTimedOut.Inc()
		return "", NewError(RetCTimeout, fmt.Sprintf("lock for key %q not acquired within wait budget", key))
	}
}

// settleLocked finishes a transition: it reschedules the sweeper for the
// earliest finite expiry and reclaims the state if nothing holds or awaits
// it. Must be called with st.mu held, before unlocking.
func (m *lockMgrImpl) settleLocked(st *lockState) {
	if at, ok := st.earliestExpiryLocked(); ok {
		m.sweeper.schedule(st.key, at)
	}
	if st.emptyLocked() {
		m.table.reclaim(st)
	}
}

func (m *lockMgrImpl) countGrant(mode Mode) {
	if mode == ModeExclusive {
		locksGrantedExclusive.Inc()
	} else {
		locksGrantedShared.Inc()
	}
}

func validateKey(key string) error {
	if key == "" {
		return NewError(RetCInvalidArgument, "resource key must not be empty")
	}
	return nil
}
