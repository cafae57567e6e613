// Package blueprint defines the boundary to show-style-specific user logic.
// A blueprint interprets NRCS content for one show style: it transforms raw
// ingest payloads, contributes baseline and generated timeline objects, and
// is consulted before orphaned playout state is discarded.
//
// # Architecture
//
//	┌────────────┐   TransformIngest   ┌───────────┐
//	│   ingest   │ ──────────────────▶ │           │
//	└────────────┘                     │ Blueprint │  user logic,
//	┌────────────┐  ShouldRemove...    │ (function │  opaque to core
//	│  playout   │ ──────────────────▶ │   table)  │
//	└────────────┘                     │           │
//	┌────────────┐  GetBaseline /      └───────────┘
//	│  timeline  │  OnTimelineGenerate       │
//	└────────────┘ ◀───────────────── objects, notes
//
// The core never trusts a blueprint. Every hook call goes through a Safe*
// wrapper that recovers panics, logs the failure and substitutes a fallback
// (empty baseline, unmodified object list, keep-the-instance) so one broken
// blueprint cannot take playout down. Hooks absent from the manifest are
// skipped entirely.
//
// # Key Types
//
//   - Manifest: which hooks a blueprint implements, plus identity/version
//   - Blueprint: the function table itself
//   - Context: per-invocation façade handed to hooks (id hashing, notes)
//   - Registry: show-style-base id to blueprint lookup
//
// # Thread Safety
//
// Registry is safe for concurrent use. A Context is not: it belongs to one
// hook invocation on one goroutine.
package blueprint
