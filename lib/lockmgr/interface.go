package lockmgr

import "time"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ILockManager defines the interface for a lockmgr provider.
// All durations are interpreted as follows: a ttl of 0 means the handle
// never expires on its own, a waitTTL of 0 means the call fails immediately
// instead of queueing behind the current holders.
type ILockManager interface {
	// Lock acquires an exclusive lock for the given key.
	// If id is empty, a unique handle id is generated.
	// Returns the handle id of the acquired lock or a *Error with code
	// RetCTimeout if the lock could not be granted within waitTTL.
	Lock(key string, ttl, waitTTL time.Duration, id string) (handleID string, err error)

	// LockRead acquires a shared (read) lock for the given key.
	// Any number of shared holders may coexist; a shared lock only conflicts
	// with an exclusive holder. Timeout semantics are the same as for Lock.
	LockRead(key string, ttl, waitTTL time.Duration, id string) (handleID string, err error)

	// Release releases the handle with the given id.
	// Returns ok=false and a *Error with code RetCNotHeld if no current
	// holder matches the id. The lock state is not changed in that case.
	Release(key, id string) (ok bool, err error)

	// ForceRelease unconditionally releases all holders of the given key,
	// regardless of their ids. Pending waiters stay queued and contend for
	// the freshly unlocked resource. Idempotent, ok is always true.
	ForceRelease(key string) (ok bool, err error)

	// Exists reports whether the key is currently locked, and if so in
	// which mode and by which handle ids.
	Exists(key string) (info LockInfo, err error)

	// UpdateTTL replaces the expiry of the holder with the given id by
	// now+ttl (ttl=0 means the handle no longer expires).
	// Returns ok=false and a *Error with code RetCNotHeld if the id is not
	// among the current holders.
	UpdateTTL(key, id string, ttl time.Duration) (ok bool, err error)

	// Close stops the background expiry sweeper. The manager must not be
	// used after Close.
	Close() error
}

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Mode is the locking mode of a single resource.
type Mode uint8

const (
	ModeUnlocked  Mode = iota // no holders
	ModeExclusive             // exactly one holder
	ModeShared                // one or more read holders
)

func (m Mode) String() string {
	switch m {
	case ModeUnlocked:
		return "unlocked"
	case ModeExclusive:
		return "exclusive"
	case ModeShared:
		return "shared"
	default:
		return "unknown"
	}
}

// ParseMode converts the string representation back to a Mode.
// Unknown strings map to ModeUnlocked.
func ParseMode(s string) Mode {
	switch s {
	case "exclusive":
		return ModeExclusive
	case "shared":
		return ModeShared
	default:
		return ModeUnlocked
	}
}

// LockInfo describes the current holders of a resource as reported by Exists.
type LockInfo struct {
	Locked    bool     // whether any holder exists
	Mode      Mode     // ModeUnlocked if Locked is false
	HolderIDs []string // handle ids of all current holders
}
