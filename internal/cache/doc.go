// Package cache implements the in-memory working-set model used by every
// mutating operation: load the entities you need under an entity lock, mutate
// the copies freely, then write the accumulated changes back in one save.
//
// # Architecture
//
//	┌──────────────┐   Preload    ┌──────────────┐
//	│  Repository  │ ───────────▶ │  Collection  │  (one per entity type)
//	│   (SQLite)   │              │  docs+saved  │
//	└──────────────┘              └──────┬───────┘
//	       ▲                             │ Insert / Update / Remove
//	       │  SaveChanges                ▼
//	       └───────────────────── diff docs vs saved
//	                              upsert changed, delete missing
//
// Each Collection keeps two maps: the working documents and a snapshot of
// what was last loaded or saved. SaveChanges diffs the two, so a save with
// no effective mutation issues zero writes and mutating the same document
// five times issues one.
//
// A Cache groups collections behind a single lock lease. SaveChanges refuses
// to run once the lease has been released, which keeps the lock discipline
// honest: you cannot persist state you no longer own.
//
// # Key Types
//
//   - Collection: generic document arena with change tracking
//   - Cache: lease-guarded group of collections with deferred save hooks
//   - Saveable: binding between a Collection and its repository writers
//
// # Thread Safety
//
// Collections and Caches are NOT safe for concurrent use. They are designed
// to live entirely within one locked operation: acquired, mutated and saved
// on a single goroutine while the entity lock is held.
package cache
