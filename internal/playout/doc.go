// Package playout drives a playlist through its on-air lifecycle: activate,
// set next, take, hold, deactivate. Every operation follows the same shape:
//
//	acquire playlist lock
//	   │
//	   ▼
//	load playlistCache (playlist, rundowns, content, instances)
//	   │
//	   ▼
//	mutate working copies, queue playout events
//	   │
//	   ▼
//	SaveChanges ──▶ regenerate + publish timeline ──▶ release lock
//
// State per playlist: inactive, active with no current part, or active and
// playing. The hold sub-machine (none, active, complete, none) suppresses
// transition pieces for exactly one take.
//
// Taking promotes the nexted instance to current, carries still-playing
// long-lifespan pieces across as continuation instances and re-selects the
// natural next by rank walk. Manual next selections are sticky: ingest
// churn does not displace an operator's choice while it remains playable.
// Within the autonext guard window the next pointer is frozen entirely, so
// an imminent automatic transition is never visibly glitched.
//
// Ingest notifies content changes through RundownContentChanged, which
// revalidates the next pointer, consults the blueprint about dropping
// orphaned instances and republishes the timeline when anything moved.
//
// Playback timing reports from gateways are idempotent, first write wins.
// Each report arms a per-instance debounced job that condenses the timing
// state into an AsRun log event off the hot path.
//
// # Thread Safety
//
// All operations serialise on the playlist lock. The timing scheduler is
// safe for concurrent use; Close stops it.
package playout
