// Package ingest reconciles external (NRCS) rundown updates against the
// stored entity model without disrupting a show that is on air.
//
// # Architecture
//
//	NRCS update ──▶ Service.Apply
//	                   │ 1. rundown lock (id derived from studio+external id)
//	                   │ 2. load previous snapshot (ingest_data)
//	                   │ 3. caller transform + blueprint TransformIngest
//	                   │ 4. persist new snapshot immediately
//	                   │ 5. load rundown cache, capture before-part map
//	                   │ 6. diff old vs new snapshot ──▶ CommitData
//	                   │ 7. commit: generate entities, orphan live parts
//	                   │ 8. save cache, then surface any UserError
//	                   └ 9. release lock, notify playout
//
// The snapshot commit in step 4 is deliberately decoupled from the playout
// reconciliation: the last known NRCS state is never lost even when the
// commit stage fails, so the next update diffs against reality.
//
// Parts referenced by the current or next part instance are never deleted
// by an ingest edit. They are flagged orphaned and live on until the
// playout cleanup path decides they can go.
//
// # Key Types
//
//   - Service: the reconciliation engine
//   - CommitData: what changed, computed by diffing snapshots
//   - DataRepository: the ingest_data snapshot mirror
//
// # Thread Safety
//
// Service is safe for concurrent use; per-rundown ordering is enforced by
// the rundown lock, not by the service.
package ingest
