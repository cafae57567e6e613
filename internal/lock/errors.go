package lock

import "errors"

// Domain errors for the lock package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, lock.ErrLockOrdering) {
//	    // programming error: rundown lease held while acquiring a playlist lease
//	}
var (
	// ErrLockOrdering is returned when a playlist lease is requested while
	// the caller already holds a rundown lease. The fixed acquisition order
	// (playlist before rundown) prevents deadlock cycles.
	ErrLockOrdering = errors.New("lock: playlist lease requested while holding a rundown lease")

	// ErrReentrant is returned when a caller requests a lease it already
	// holds. Acquisition is deliberately not re-entrant.
	ErrReentrant = errors.New("lock: lease already held by caller")

	// ErrNotHeld is returned when an operation requires a live lease but the
	// lease has been released.
	ErrNotHeld = errors.New("lock: not held")
)
