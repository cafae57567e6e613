package ingest

import (
	"context"
	"errors"

	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/rundown"
)

// liveState captures which parts are pinned by the active playlist's
// current or next part instance within this rundown.
type liveState struct {
	active bool

	// partIDs maps a pinned part id to the live instance ids holding it.
	partIDs map[string][]string
}

func (l *liveState) pinned(partID string) bool {
	_, ok := l.partIDs[partID]
	return ok
}

func (l *liveState) anyPinned() bool {
	return l.active && len(l.partIDs) > 0
}

// loadLiveState reads the owning playlist without taking its lock. Ingest
// never escalates to a playlist lock; a stale read here only delays
// orphan cleanup, it cannot corrupt state, because instances are orphaned
// rather than deleted.
func (s *Service) loadLiveState(ctx context.Context, rc *rundownCache) *liveState {
	ls := &liveState{partIDs: make(map[string][]string)}

	rd := rc.rundown()
	if rd == nil {
		return ls
	}
	playlist, err := s.repo.GetPlaylist(ctx, rd.PlaylistID)
	if err != nil || !playlist.Active() {
		return ls
	}
	ls.active = true

	for _, ref := range []*rundown.PartRef{playlist.CurrentPart, playlist.NextPart} {
		if ref == nil || ref.RundownID != rc.rundownID {
			continue
		}
		instance, ok := rc.partInstances.Get(ref.PartInstanceID)
		if !ok || instance.Reset {
			continue
		}
		ls.partIDs[instance.PartID] = append(ls.partIDs[instance.PartID], instance.ID)
	}
	return ls
}

// commit reconciles the diffed changes against the entity model and live
// playout. structural reports whether any segment's part list changed shape
// (insert, removal or reorder), which is what obliges a playout
// revalidation afterwards. The returned error, if any, is a UserError to
// surface after the save.
func (s *Service) commit(ctx context.Context, rc *rundownCache, before BeforePartMap, cd *CommitData, externalID string, newData *blueprint.IngestRundown) (structural bool, userErr error) {
	live := s.loadLiveState(ctx, rc)

	if cd.RemoveRundown {
		return true, s.commitRemoveRundown(rc, cd, live)
	}

	s.ensureRundown(ctx, rc, externalID, newData)

	for oldID, newID := range cd.RenamedSegments {
		relocateSegment(rc, oldID, newID)
	}

	changed := make(map[string]bool, len(cd.ChangedSegmentIDs))
	for _, id := range cd.ChangedSegmentIDs {
		changed[id] = true
	}
	for _, ingestSeg := range newData.Segments {
		seg := generateSegment(rc.rundownID, &ingestSeg)
		if !changed[seg.ID] {
			continue
		}
		s.commitSegment(rc, &ingestSeg, live)
		if structureChanged(before[seg.ID], rc.partRanks(seg.ID)) {
			structural = true
		}
	}

	for _, segID := range cd.RemovedSegmentIDs {
		s.commitRemoveSegment(rc, segID, live)
		structural = true
	}
	if len(cd.RenamedSegments) > 0 {
		structural = true
	}

	return structural, nil
}

// ensureRundown creates the rundown (and its playlist) on first ingest, or
// refreshes the header fields on a later one.
func (s *Service) ensureRundown(ctx context.Context, rc *rundownCache, externalID string, newData *blueprint.IngestRundown) {
	if rd := rc.rundown(); rd != nil {
		rc.rundowns.Update(rd.ID, func(r *rundown.Rundown) bool { //nolint:errcheck
			r.Name = newData.Name
			r.Orphaned = rundown.OrphanedNone
			return true
		})
		return
	}

	playlistID := rundown.DerivePlaylistID(s.studioID, externalID)
	rd := &rundown.Rundown{
		ID:                 rc.rundownID,
		PlaylistID:         playlistID,
		StudioID:           s.studioID,
		ExternalID:         externalID,
		Name:               newData.Name,
		ShowStyleBaseID:    s.defaultStyleBase,
		ShowStyleVariantID: s.defaultStyleVar,
	}
	rc.rundowns.Replace(rd)

	// The playlist row is written directly: it is brand new, so nothing
	// can contend for it, and taking a playlist lock here would invert
	// the acquisition order.
	rc.cache.DeferBeforeSave(func(ctx context.Context) error {
		_, err := s.repo.GetPlaylist(ctx, playlistID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, rundown.ErrPlaylistNotFound) {
			return err
		}
		return s.repo.UpsertPlaylists(ctx, []rundown.Playlist{{
			ID:        playlistID,
			StudioID:  s.studioID,
			Name:      newData.Name,
			HoldState: rundown.HoldNone,
		}})
	})
}

// commitRemoveRundown deletes the rundown, or orphans it when an active
// instance still needs it.
func (s *Service) commitRemoveRundown(rc *rundownCache, cd *CommitData, live *liveState) error {
	rd := rc.rundown()
	if rd == nil {
		return nil
	}

	if live.anyPinned() {
		rc.rundowns.Update(rd.ID, func(r *rundown.Rundown) bool { //nolint:errcheck
			r.Orphaned = rundown.OrphanedDeleted
			return true
		})
		for _, instanceIDs := range live.partIDs {
			for _, id := range instanceIDs {
				orphanInstance(rc, id)
			}
		}
		s.log.Info("rundown removal deferred, on air", "rundown", rd.ID)
		if cd.ReturnRemoveFailure {
			return rundown.NewUserError("rundown.on-air",
				"rundown %q has an active part instance and cannot be removed", rd.Name)
		}
		return nil
	}

	for _, pi := range rc.pieceInstances.All() {
		rc.pieceInstances.Remove(pi.ID)
	}
	for _, pi := range rc.partInstances.All() {
		rc.partInstances.Remove(pi.ID)
	}
	for _, p := range rc.pieces.All() {
		rc.pieces.Remove(p.ID)
	}
	for _, p := range rc.parts.All() {
		rc.parts.Remove(p.ID)
	}
	for _, seg := range rc.segments.All() {
		rc.segments.Remove(seg.ID)
	}
	rc.rundowns.Remove(rd.ID)
	return nil
}

// relocateSegment moves a renamed segment's parts and live instances to the
// new segment id, preserving their identity across the rename.
func relocateSegment(rc *rundownCache, oldID, newID string) {
	rc.parts.UpdateAll(func(p *rundown.Part) bool {
		if p.SegmentID != oldID {
			return false
		}
		p.SegmentID = newID
		return true
	})
	rc.partInstances.UpdateAll(func(pi *rundown.PartInstance) bool {
		if pi.SegmentID != oldID {
			return false
		}
		pi.SegmentID = newID
		return true
	})
	rc.segments.Remove(oldID)
}

// commitSegment reconciles one changed segment: replaces its document and
// diffs the part list, orphaning live instances of removed parts.
func (s *Service) commitSegment(rc *rundownCache, ingestSeg *blueprint.IngestSegment, live *liveState) {
	seg := generateSegment(rc.rundownID, ingestSeg)
	rc.segments.Replace(&seg)

	desired := make(map[string]bool, len(ingestSeg.Parts))
	for i := range ingestSeg.Parts {
		desired[rundown.DerivePartID(rc.rundownID, ingestSeg.Parts[i].ExternalID)] = true
	}

	existing := rc.parts.FindAll(func(p *rundown.Part) bool { return p.SegmentID == seg.ID })
	pinnedRemoved := false
	for _, part := range existing {
		if desired[part.ID] {
			continue
		}
		if live.pinned(part.ID) {
			pinnedRemoved = true
			for _, instanceID := range live.partIDs[part.ID] {
				orphanInstance(rc, instanceID)
			}
		}
		removePartAndPieces(rc, part.ID)
	}

	// A segment emptied of parts is no longer part of the show. It stays
	// as an orphan shell only while one of its old parts is still on air.
	if len(ingestSeg.Parts) == 0 {
		if pinnedRemoved {
			rc.segments.Update(seg.ID, func(sg *rundown.Segment) bool { //nolint:errcheck
				sg.Orphaned = rundown.OrphanedDeleted
				return true
			})
		} else {
			rc.segments.Remove(seg.ID)
		}
		return
	}

	for i := range ingestSeg.Parts {
		ingestPart := &ingestSeg.Parts[i]
		part := generatePart(rc.rundownID, seg.ID, ingestPart)

		// A pinned part whose content changed: the frozen instance
		// snapshot keeps the air copy stable, so the stored part can be
		// updated freely.
		rc.parts.Replace(&part)
		s.commitPieces(rc, part.ID, ingestPart)
	}
}

// commitPieces diffs one part's piece list.
func (s *Service) commitPieces(rc *rundownCache, partID string, ingestPart *blueprint.IngestPart) {
	pieces := generatePieces(rc.rundownID, partID, ingestPart)

	desired := make(map[string]bool, len(pieces))
	for i := range pieces {
		desired[pieces[i].ID] = true
	}
	for _, existing := range rc.pieces.FindAll(func(p *rundown.Piece) bool { return p.PartID == partID }) {
		if !desired[existing.ID] {
			rc.pieces.Remove(existing.ID)
		}
	}
	for i := range pieces {
		rc.pieces.Replace(&pieces[i])
	}
}

// commitRemoveSegment removes a segment and its parts. A segment pinned by
// a live instance is orphaned instead of removed.
func (s *Service) commitRemoveSegment(rc *rundownCache, segID string, live *liveState) {
	seg, ok := rc.segments.Get(segID)
	if !ok {
		return
	}

	pinnedSegment := false
	for _, part := range rc.parts.FindAll(func(p *rundown.Part) bool { return p.SegmentID == segID }) {
		if live.pinned(part.ID) {
			pinnedSegment = true
			for _, instanceID := range live.partIDs[part.ID] {
				orphanInstance(rc, instanceID)
			}
		}
		removePartAndPieces(rc, part.ID)
	}

	if pinnedSegment {
		rc.segments.Update(seg.ID, func(sg *rundown.Segment) bool { //nolint:errcheck
			sg.Orphaned = rundown.OrphanedDeleted
			return true
		})
		return
	}
	rc.segments.Remove(segID)
}

// orphanInstance flags a live part instance as deleted-upstream. The frozen
// part snapshot keeps it playable; the playout cleanup path decides when it
// may actually go.
func orphanInstance(rc *rundownCache, instanceID string) {
	rc.partInstances.Update(instanceID, func(pi *rundown.PartInstance) bool { //nolint:errcheck
		if pi.Orphaned == rundown.OrphanedNone {
			pi.Orphaned = rundown.OrphanedDeleted
		}
		return true
	})
}

// removePartAndPieces drops a part and everything attached to it, except
// instances, which carry their own frozen snapshots.
func removePartAndPieces(rc *rundownCache, partID string) {
	for _, piece := range rc.pieces.FindAll(func(p *rundown.Piece) bool { return p.PartID == partID }) {
		rc.pieces.Remove(piece.ID)
	}
	rc.parts.Remove(partID)
}
