package lockmgr

import "time"

// IClock supplies the current time and delayed wake-ups. It is the only
// environmental dependency of the lock manager and can be replaced via
// WithClock, so multiple manager instances with different time sources can
// coexist in tests.
type IClock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that receives the current time once the given
	// duration has elapsed.
	After(d time.Duration) <-chan time.Time
}

// NewSystemClock returns an IClock backed by the time package.
func NewSystemClock() IClock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
