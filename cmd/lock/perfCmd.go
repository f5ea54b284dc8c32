package lock

import (
	"fmt"
	"github.com/ValentinKolb/dLock/cmd/util"
	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"sync"
	"sync/atomic"
	"time"
)

var (
	perfRequests    int
	perfConcurrency int
	perfKeys        int
	perfShared      bool

	// perfCmd measures acquire/release round-trip latencies against a server
	perfCmd = &cobra.Command{
		Use:   "perf [key-prefix]",
		Short: "Measure lock acquire/release latency",
		Long:  "Run a configurable number of acquire/release cycles against the server and report latency percentiles per operation.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPerf,
	}
)

func init() {
	perfCmd.Flags().IntVar(&perfRequests, "requests", 10_000, util.WrapString("Total number of acquire/release cycles to run"))
	perfCmd.Flags().IntVar(&perfConcurrency, "concurrency", 8, util.WrapString("Number of concurrent workers"))
	perfCmd.Flags().IntVar(&perfKeys, "keys", 64, util.WrapString("Number of distinct keys the workers contend on"))
	perfCmd.Flags().BoolVar(&perfShared, "read", false, util.WrapString("Acquire shared (read) locks instead of exclusive ones"))
}

// runPerf handles the perf lock command
func runPerf(_ *cobra.Command, args []string) error {
	prefix := "perf"
	if len(args) == 1 {
		prefix = args[0]
	}

	if perfConcurrency < 1 {
		perfConcurrency = 1
	}
	if perfKeys < 1 {
		perfKeys = 1
	}

	// Pick the acquire function once
	acquireFn := rpcLockMgr.Lock
	mode := "exclusive"
	if perfShared {
		acquireFn = rpcLockMgr.LockRead
		mode = "shared"
	}

	// Latency timers
	registry := metrics.NewRegistry()
	acquireTimer := metrics.NewRegisteredTimer("acquire", registry)
	releaseTimer := metrics.NewRegisteredTimer("release", registry)

	var (
		timeouts int64
		failures int64
		next     int64 // next cycle index, shared by all workers
	)

	fmt.Printf("Running %d %s lock cycles with %d workers on %d keys...\n",
		perfRequests, mode, perfConcurrency, perfKeys)

	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < perfConcurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for {
				i := atomic.AddInt64(&next, 1) - 1
				if i >= int64(perfRequests) {
					return
				}

				key := fmt.Sprintf("%s-%d", prefix, i%int64(perfKeys))

				// Acquire
				acquireStart := time.Now()
				handleID, err := acquireFn(key, 30*time.Second, 30*time.Second, "")
				acquireTimer.UpdateSince(acquireStart)

				if err != nil {
					if lockmgr.IsTimeout(err) {
						atomic.AddInt64(&timeouts, 1)
					} else {
						atomic.AddInt64(&failures, 1)
					}
					continue
				}

				// Release
				releaseStart := time.Now()
				if _, err := rpcLockMgr.Release(key, handleID); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				releaseTimer.UpdateSince(releaseStart)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)

	// Report results
	fmt.Printf("\nCompleted %d cycles in %s (%.2f cycles/sec)\n",
		perfRequests, elapsed.Round(time.Millisecond), float64(perfRequests)/elapsed.Seconds())
	fmt.Printf("Timeouts: %d, Failures: %d\n", timeouts, failures)

	printTimer("acquire", acquireTimer)
	printTimer("release", releaseTimer)

	return nil
}

// printTimer prints count, mean and percentiles of a timer
func printTimer(name string, t metrics.Timer) {
	ps := t.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-8s count=%d mean=%s p50=%s p95=%s p99=%s max=%s\n",
		name,
		t.Count(),
		time.Duration(t.Mean()).Round(time.Microsecond),
		time.Duration(ps[0]).Round(time.Microsecond),
		time.Duration(ps[1]).Round(time.Microsecond),
		time.Duration(ps[2]).Round(time.Microsecond),
		time.Duration(t.Max()).Round(time.Microsecond),
	)
}
