// Package rundown defines the core entity model for OnAir Core and its
// SQLite persistence.
//
// Entity hierarchy:
//
//	Playlist ──▶ Rundown ──▶ Segment ──▶ Part ──▶ Piece
//	                │
//	                └──▶ PartInstance ──▶ PieceInstance
//
// A Playlist is the unit of playout: an ordered group of rundowns played
// together, carrying the activation state and the current/next/previous
// part pointers. Rundowns, segments, parts and pieces mirror the NRCS
// representation and are freely rewritten by ingest. PartInstances and
// PieceInstances are playout-time instantiations: each carries a frozen
// snapshot of its source part/piece so an airing show is insulated from
// upstream edits.
//
// # Key Types
//
//   - Playlist: activation state, hold sub-state, part pointers
//   - Part: schedulable unit with timing hints and autonext flags
//   - PartInstance: one take of a Part; timing fields are first-write-wins
//   - PieceInstance: playable content, possibly continuing an infinite piece
//   - Repository: persistence interface implemented by SQLiteRepository
//
// All identifier fields are opaque stable strings scoped to their parent.
package rundown
