// Package timeline converts playout state into the flat object graph that
// gateways resolve and play. Regeneration is wholesale: every significant
// state change rebuilds the studio timeline from scratch, and the publisher
// suppresses the no-op regenerations by content hash.
//
// # Architecture
//
//	baseline objs ─┐
//	current part ──┤                ┌─ flatten + validate
//	next part ─────┼─▶  Generator ──┤
//	prev part ─────┤   (+ hook)     ├─ "now" reconciliation
//	infinites ─────┘                └─ hash + version stamp
//	                                       │
//	                                       ▼
//	                                   Publisher ──▶ SQLite + MQTT
//
// The generator builds one timing group per part instance: the previous
// group closed out with the keepalive the switch demands, the current group
// anchored at its reported playback start (or "now" until one is reported),
// and, for auto-advancing parts, the next group pre-placed relative to the
// current group's end minus the overlap. Infinite pieces continuing from an
// earlier part live in their own groups keyed to the original start so a
// take never disturbs them.
//
// # Now Continuity
//
// A "now" trigger is resolved to a concrete time exactly once. On each
// regeneration, objects that previously had their "now" concretised carry
// the recorded value forward instead of re-resolving, so regenerating with
// unchanged state produces a byte-identical hash. In multi-gateway mode any
// "now" still unresolved at publish time is forced to a concrete wall-clock
// value, because independent resolvers cannot agree on a literal "now".
//
// # Key Types
//
//   - Trigger: Absolute | RelativeTo | Now, with a set-from-now marker
//   - Obj: one timeline object, group or leaf
//   - Generator: playout state in, Timeline out
//   - Publisher: hash-gated persistence and gateway distribution
//
// # Thread Safety
//
// Generation runs under the owning playlist lock; the package itself holds
// no shared mutable state. Repository and Publisher are safe for concurrent
// use across studios.
package timeline
