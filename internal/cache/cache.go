package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/onair-core/internal/lock"
)

// Logger is the minimal logging interface the cache needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Cache groups the collections of one locked operation behind a single
// lock lease. All mutations funnel through the member collections; the
// Cache itself handles the save lifecycle and its deferred hooks.
type Cache struct {
	lease       *lock.Lease
	collections []Saveable
	beforeSave  []func(context.Context) error
	afterSave   []func(context.Context) error
	log         Logger
}

// New creates a cache guarded by the given lease. The lease must still be
// held; a cache built on a released lease would read state the next holder
// is free to rewrite.
func New(lease *lock.Lease, logger Logger) (*Cache, error) {
	if lease != nil && !lease.Held() {
		return nil, lock.ErrNotHeld
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Cache{lease: lease, log: logger}, nil
}

// Register adds a collection binding to the save set. Collections are saved
// in registration order.
func (c *Cache) Register(s Saveable) {
	c.collections = append(c.collections, s)
}

// DeferBeforeSave queues fn to run at the start of the next SaveChanges,
// before any collection is written. Hooks run in registration order and a
// hook error aborts the save with nothing written.
func (c *Cache) DeferBeforeSave(fn func(context.Context) error) {
	c.beforeSave = append(c.beforeSave, fn)
}

// DeferAfterSave queues fn to run once the next SaveChanges has written every
// collection. Hooks run in registration order; errors are logged, not
// returned, because the data is already committed.
func (c *Cache) DeferAfterSave(fn func(context.Context) error) {
	c.afterSave = append(c.afterSave, fn)
}

// HasChanges reports whether any registered collection is dirty.
func (c *Cache) HasChanges() bool {
	for _, col := range c.collections {
		if col.Dirty() {
			return true
		}
	}
	return false
}

// SaveChanges runs deferred before-save hooks, writes every dirty collection
// and then runs after-save hooks. The lease must still be held; saving after
// release would race the next holder of the lock.
//
// Deferred hooks are consumed by the save: a later SaveChanges on the same
// cache starts with empty hook lists.
func (c *Cache) SaveChanges(ctx context.Context) error {
	if c.lease != nil && !c.lease.Held() {
		return lock.ErrNotHeld
	}

	before := c.beforeSave
	after := c.afterSave
	c.beforeSave = nil
	c.afterSave = nil

	for _, fn := range before {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("before-save hook: %w", err)
		}
	}

	for _, col := range c.collections {
		if !col.Dirty() {
			continue
		}
		if err := col.Save(ctx); err != nil {
			return fmt.Errorf("saving %s: %w", col.Name(), err)
		}
		c.log.Debug("collection saved", "collection", col.Name())
	}

	for _, fn := range after {
		if err := fn(ctx); err != nil {
			c.log.Warn("after-save hook failed", "error", err)
		}
	}
	return nil
}

// AssertNoChanges returns an error naming every dirty collection and any
// deferred hooks still queued. Read-only operations call this before
// releasing their lock to catch accidental mutation; a pending hook is a
// write that never happened, so it counts.
func (c *Cache) AssertNoChanges() error {
	var dirty []string
	for _, col := range c.collections {
		if col.Dirty() {
			dirty = append(dirty, col.Name())
		}
	}
	if len(dirty) > 0 {
		return fmt.Errorf("cache: unexpected changes in %s", strings.Join(dirty, ", "))
	}
	if pending := len(c.beforeSave) + len(c.afterSave); pending > 0 {
		return fmt.Errorf("cache: %d deferred hooks never saved", pending)
	}
	return nil
}

// Discard drops unsaved changes in every collection and clears deferred
// hooks.
func (c *Cache) Discard() {
	for _, col := range c.collections {
		col.Discard()
	}
	c.beforeSave = nil
	c.afterSave = nil
}
