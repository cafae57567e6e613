package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Kind identifies the entity type a lease is scoped to.
// Leases of different kinds never contend, even for equal ids.
type Kind string

const (
	// KindPlaylist scopes a lease to one RundownPlaylist.
	KindPlaylist Kind = "playlist"

	// KindRundown scopes a lease to one Rundown.
	KindRundown Kind = "rundown"
)

// key identifies one lockable entity.
type key struct {
	kind Kind
	id   string
}

// entry is the per-entity semaphore. sem carries a single token: holding
// the token is holding the lock.
type entry struct {
	sem     chan struct{}
	waiters int
}

// Manager issues mutually-exclusive, entity-scoped leases.
//
// Two different ids never contend. Within one id, acquisition order is
// FIFO-ish (Go channel semantics) and blocks until the current holder
// releases or the acquiring context is cancelled.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	entries map[key]*entry
}

// NewManager creates a new lease manager.
func NewManager() *Manager {
	return &Manager{
		entries: make(map[key]*entry),
	}
}

// heldKey is the context key type carrying the caller's held leases.
type heldKey struct{}

// heldSet records which leases a call chain holds, for ordering checks.
type heldSet struct {
	parent *heldSet
	k      key
}

func (h *heldSet) contains(k key) bool {
	for s := h; s != nil; s = s.parent {
		if s.k == k {
			return true
		}
	}
	return false
}

func (h *heldSet) containsKind(kind Kind) bool {
	for s := h; s != nil; s = s.parent {
		if s.k.kind == kind {
			return true
		}
	}
	return false
}

// AcquirePlaylist acquires the lease for one playlist, blocking until it is
// free. The returned context must be used for any nested acquisition so the
// ordering rules can be enforced.
//
// Returns ErrLockOrdering if the caller already holds any rundown lease:
// the fixed order is playlist before rundown.
func (m *Manager) AcquirePlaylist(ctx context.Context, id string) (context.Context, *Lease, error) {
	held, _ := ctx.Value(heldKey{}).(*heldSet)
	if held.containsKind(KindRundown) {
		return ctx, nil, ErrLockOrdering
	}
	return m.acquire(ctx, held, key{kind: KindPlaylist, id: id})
}

// AcquireRundown acquires the lease for one rundown, blocking until it is
// free. Acquiring a rundown lease while holding a playlist lease is the
// permitted order.
func (m *Manager) AcquireRundown(ctx context.Context, id string) (context.Context, *Lease, error) {
	held, _ := ctx.Value(heldKey{}).(*heldSet)
	return m.acquire(ctx, held, key{kind: KindRundown, id: id})
}

func (m *Manager) acquire(ctx context.Context, held *heldSet, k key) (context.Context, *Lease, error) {
	if held.contains(k) {
		return ctx, nil, fmt.Errorf("%w: %s %q", ErrReentrant, k.kind, k.id)
	}

	m.mu.Lock()
	e, ok := m.entries[k]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		m.entries[k] = e
	}
	e.waiters++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		// Token acquired.
	case <-ctx.Done():
		m.release(k, false)
		return ctx, nil, fmt.Errorf("acquiring %s lease %q: %w", k.kind, k.id, ctx.Err())
	}

	lease := &Lease{mgr: m, key: k}
	lease.held.Store(true)
	leaseCtx := context.WithValue(ctx, heldKey{}, &heldSet{parent: held, k: k})
	return leaseCtx, lease, nil
}

// release drops a waiter and, if holding, the token for k, pruning the
// entry once nobody holds or waits for it.
func (m *Manager) release(k key, holding bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[k]
	if !ok {
		return
	}
	if holding {
		<-e.sem
	}
	e.waiters--
	if e.waiters == 0 && len(e.sem) == 0 {
		delete(m.entries, k)
	}
}

// Stats reports current contention for instrumentation. Keys are
// "kind/id"; values are the number of goroutines holding or waiting.
func (m *Manager) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]int, len(m.entries))
	for k, e := range m.entries {
		stats[string(k.kind)+"/"+k.id] = e.waiters
	}
	return stats
}

// Lease is an exclusive lease on one entity.
//
// Release is idempotent and must be called on every exit path; the
// scoped-acquisition discipline is `defer lease.Release()` immediately
// after a successful acquire.
type Lease struct {
	mgr  *Manager
	key  key
	held atomic.Bool
}

// Release returns the lease. Safe to call more than once.
func (l *Lease) Release() {
	if !l.held.CompareAndSwap(true, false) {
		return
	}
	l.mgr.release(l.key, true)
}

// Held reports whether the lease is still held.
// Cache creation uses this to reject released leases.
func (l *Lease) Held() bool {
	return l.held.Load()
}

// Kind returns the entity kind this lease is scoped to.
func (l *Lease) Kind() Kind {
	return l.key.kind
}

// EntityID returns the id of the entity this lease is scoped to.
func (l *Lease) EntityID() string {
	return l.key.id
}
