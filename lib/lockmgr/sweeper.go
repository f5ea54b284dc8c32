package lockmgr

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dLock/lib/lockmgr/internal"
	"github.com/VictoriaMetrics/metrics"
)

const (
	defaultSweepInterval = 100 * time.Millisecond
)

var (
	expiredHolders = metrics.GetOrCreateCounter(`dlock_holders_expired_total`)
)

// --------------------------------------------------------------------------
// Expiry Sweeper
// --------------------------------------------------------------------------

// sweeper is the background process that evicts expired holders and wakes
// eligible waiters, guaranteeing bounded-time reclamation of abandoned locks
// even when no caller interacts with the resource again.
//
// It keeps a keyed min-heap of the earliest finite expiry per resource, fed
// by the manager whenever a finite-TTL holder is created or retimed. Each
// tick pops the due keys and reconciles their states under the same
// per-resource exclusion as caller operations, briefly.
type sweeper struct {
	table    *lockTable
	clock    IClock
	interval time.Duration

	mu        sync.Mutex
	deadlines *internal.DeadlineHeap

	// running/stop implement the start/stop lifecycle; the sweeper can not
	// be restarted after it has been stopped.
	running atomic.Bool
	stopCh  chan struct{}
}

func newSweeper(table *lockTable, clock IClock, interval time.Duration) *sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &sweeper{
		table:     table,
		clock:     clock,
		interval:  interval,
		deadlines: internal.NewDeadlineHeap(),
		stopCh:    make(chan struct{}),
	}
}

// schedule tracks the given deadline for a resource, replacing any previous
// one. The manager always passes the earliest finite expiry of the resource.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *sweeper) schedule(key string, at time.Time) {
	s.mu.Lock()
	s.deadlines.Schedule(key, at)
	s.mu.Unlock()
}

// start launches the background sweep loop.
// If the sweeper is already running, this function does nothing.
func (s *sweeper) start() {
	if s.running.CompareAndSwap(false, true) {
		go s.loop()
	}
}

// stop terminates the background sweep loop.
// If the sweeper is not running, this function does nothing.
func (s *sweeper) stop() {
	if s.running.CompareAndSwap(true, false) {
		close(s.stopCh)
	}
}

// loop is the main sweep loop.
// WARNING: this method should never be called directly, use start() and stop().
func (s *sweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep(s.clock.Now())
		}
	}
}

// sweep reconciles every resource whose tracked deadline has passed:
// expired holders are evicted, waiters are drained on state change, the next
// finite expiry (if any) is rescheduled and empty states are reclaimed.
func (s *sweeper) sweep(now time.Time) {
	// Collect due keys first so no state mutex is acquired while holding the
	// heap mutex.
	var due []string
	s.mu.Lock()
	for {
		key, ok := s.deadlines.Next(now)
		if !ok {
			break
		}
		due = append(due, key)
	}
	s.mu.Unlock()

	for _, key := range due {
		st := s.table.lookup(key)
		if st == nil {
			// Already released and reclaimed by a caller
			continue
		}

		if n := st.expireLocked(now); n > 0 {
			expiredHolders.Add(n)
			st.drainLocked(now)
		}

		// Holders granted by the drain may carry finite TTLs again
		if at, ok := st.earliestExpiryLocked(); ok {
			s.schedule(key, at)
		}
		if st.emptyLocked() {
			s.table.reclaim(st)
		}
		st.mu.Unlock()
	}
}
