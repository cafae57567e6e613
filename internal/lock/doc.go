// Package lock provides entity-scoped mutual exclusion for playout and
// ingest operations.
//
// The core runs parallel jobs (ingest pushes, operator actions, playback
// callbacks) that must never mutate the same playlist or rundown
// concurrently. The database layer offers no cross-collection transactions,
// so serialisation happens here: every mutation path acquires a lease for
// the playlist or rundown it touches before loading a cache.
//
// # Lock Ordering
//
// Deadlock between playout operations (playlist lock, then rundown lock for
// content lookups) and ingest operations (rundown lock only) is prevented by
// a fixed acquisition order: Playlist before Rundown, never the reverse.
// Acquisition is not re-entrant; a goroutine must not request a lease it
// already holds. Both rules are enforced through the context returned by
// Acquire: violations fail immediately with ErrLockOrdering or ErrReentrant
// rather than deadlocking silently.
//
// # Usage
//
//	ctx, lease, err := mgr.AcquirePlaylist(ctx, playlistID)
//	if err != nil {
//	    return err
//	}
//	defer lease.Release()
//
// Acquisition blocks until the lease is free or the context is cancelled.
// There is no acquisition timeout at this layer; starvation is a liveness
// bug surfaced via Stats(), not a hard error.
package lock
