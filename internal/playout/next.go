package playout

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/rundown"
)

// RundownContentChanged revalidates a playlist after ingest altered one of
// its rundowns. Satisfies the ingest notifier contract; it runs under the
// playlist lock, which ingest guarantees not to hold when notifying.
func (s *Service) RundownContentChanged(ctx context.Context, playlistID string) {
	if err := s.revalidate(ctx, playlistID); err != nil {
		s.log.Error("post-ingest revalidation failed",
			"playlist", playlistID, "error", err)
	}
}

func (s *Service) revalidate(ctx context.Context, playlistID string) error {
	_, lease, err := s.locks.AcquirePlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("acquiring playlist lock: %w", err)
	}
	defer lease.Release()

	pc, err := s.loadCache(ctx, lease, playlistID)
	if err != nil {
		return err
	}

	if !pc.playlist().Active() {
		return pc.cache.AssertNoChanges()
	}

	changed := s.cleanupOrphanedNext(pc)
	changed = s.ensureNextPartIsValid(pc) || changed

	if !changed {
		return pc.cache.AssertNoChanges()
	}

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving revalidation: %w", err)
	}
	return s.updateTimeline(ctx, pc)
}

// ensureNextPartIsValid checks that the next pointer still refers to a
// playable part, re-selecting the natural next when it does not. Returns
// whether the pointer changed.
//
// Manual selections are sticky: an operator's choice survives unrelated
// ingest churn as long as the chosen part remains playable. The pointer is
// also left alone inside the autonext guard window, where replacing it
// would visibly glitch an imminent automatic transition.
func (s *Service) ensureNextPartIsValid(pc *playlistCache) bool {
	playlist := pc.playlist()
	if !playlist.Active() {
		return false
	}

	// A missing or orphaned-deleted next always re-selects; neither manual
	// stickiness nor the guard window can keep a dead pointer.
	next := pc.nextInstance()
	if next != nil && next.Orphaned != rundown.OrphanedDeleted && !next.Reset {
		if playlist.NextPart.ManuallySelected && nextStillPlayable(pc, next) {
			return false
		}
		if s.withinAutoNextGuard(pc) {
			return false
		}
	}

	natural := s.selectNextPart(pc)

	if next != nil && natural != nil &&
		next.PartID == natural.ID && nextStillPlayable(pc, next) {
		return false
	}
	if next == nil && natural == nil {
		return false
	}

	if natural == nil {
		pc.playlists.Update(pc.playlistID, func(p *rundown.Playlist) bool {
			p.NextPart = nil
			return true
		})
		return true
	}

	s.setNextPart(pc, natural, false)
	return true
}

// nextStillPlayable reports whether a nexted instance can still be taken.
func nextStillPlayable(pc *playlistCache, next *rundown.PartInstance) bool {
	if next.Reset || next.Orphaned == rundown.OrphanedDeleted {
		return false
	}
	part, ok := pc.parts.Get(next.PartID)
	if !ok {
		// Part deleted but instance not orphaned: trust the snapshot.
		return next.Part.Playable()
	}
	return part.Playable()
}

// selectNextPart recomputes the natural next: the first playable part
// after the current position in rank order, or the first playable part of
// the playlist when nothing is current.
func (s *Service) selectNextPart(pc *playlistCache) *rundown.Part {
	ordered := pc.orderedParts()

	current := pc.currentInstance()
	if current == nil {
		for _, op := range ordered {
			if op.part.Playable() {
				return op.part
			}
		}
		return nil
	}

	idx := -1
	for i, op := range ordered {
		if op.part.ID == current.PartID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// The current part was removed; resume from where it used to sit,
		// using the frozen snapshot's ranks.
		idx = insertionPoint(ordered, pc, current) - 1
	}

	for i := idx + 1; i < len(ordered); i++ {
		if ordered[i].part.Playable() {
			return ordered[i].part
		}
	}
	return nil
}

// insertionPoint finds where the orphaned current part would slot into the
// ordered list, by segment and part rank from its snapshot.
func insertionPoint(ordered []orderedPart, pc *playlistCache, current *rundown.PartInstance) int {
	segRank := 0.0
	if seg, ok := pc.segments.Get(current.SegmentID); ok {
		segRank = seg.Rank
	}
	rdRank := 0.0
	if rd, ok := pc.rundowns.Get(current.RundownID); ok {
		rdRank = rd.Rank
	}
	partRank := current.Part.Rank

	for i, op := range ordered {
		if op.rundownRank > rdRank {
			return i
		}
		if op.rundownRank == rdRank && op.segmentRank > segRank {
			return i
		}
		if op.rundownRank == rdRank && op.segmentRank == segRank && op.part.Rank > partRank {
			return i
		}
	}
	return len(ordered)
}

// withinAutoNextGuard reports whether the current part is about to
// auto-advance, too close for the next pointer to be safely replaced.
func (s *Service) withinAutoNextGuard(pc *playlistCache) bool {
	current := pc.currentInstance()
	if current == nil || !current.Part.AutoNext || current.Part.ExpectedDurationMS == nil {
		return false
	}
	start := current.Timings.StartedPlayback
	if start == nil {
		start = current.Timings.TakenAt
	}
	if start == nil {
		return false
	}
	advanceAt := start.Add(time.Duration(*current.Part.ExpectedDurationMS) * time.Millisecond)
	return s.now().After(advanceAt.Add(-s.autoNextGuard))
}

// cleanupOrphanedNext asks the blueprint whether an orphaned next instance
// may be dropped. Invoked only while active with an orphaned next; the
// drop marks the instance reset and clears the pointer so the normal
// re-selection path picks a fresh next. Returns whether anything changed.
func (s *Service) cleanupOrphanedNext(pc *playlistCache) bool {
	playlist := pc.playlist()
	next := pc.nextInstance()
	if !playlist.Active() || next == nil || next.Orphaned == rundown.OrphanedNone {
		return false
	}

	rd, _ := pc.rundowns.Get(next.RundownID)
	bp := s.blueprintFor(rd)
	bc := blueprint.NewContext(s.studioID, next.RundownID)

	remove := s.invoker.ShouldRemoveOrphanedPartInstance(bp, bc, next.DeepCopy(), pc.pieceInstancesFor(next.ID))

	// Notes stick to the instance whichever way the hook ruled; the
	// operator sees them either way.
	noted := s.appendInstanceNotes(pc, next.ID, bc.Notes())

	if !remove || s.withinAutoNextGuard(pc) {
		return noted
	}

	pc.partInstances.Update(next.ID, func(pi *rundown.PartInstance) bool {
		pi.Reset = true
		return true
	})
	pc.pieceInstances.UpdateAll(func(pi *rundown.PieceInstance) bool {
		if pi.PartInstanceID == next.ID {
			pi.Reset = true
		}
		return true
	})
	pc.playlists.Update(pc.playlistID, func(p *rundown.Playlist) bool {
		p.NextPart = nil
		return true
	})
	s.log.Info("orphaned next instance dropped",
		"playlist", pc.playlistID, "part_instance", next.ID)
	return true
}

// appendInstanceNotes persists blueprint notes onto a part instance and
// logs them. Returns whether anything was written.
func (s *Service) appendInstanceNotes(pc *playlistCache, partInstanceID string, notes []blueprint.Note) bool {
	if len(notes) == 0 {
		return false
	}
	pc.partInstances.Update(partInstanceID, func(pi *rundown.PartInstance) bool {
		for _, n := range notes {
			pi.Notes = append(pi.Notes, rundown.PartNote{
				Level:   string(n.Level),
				Message: n.Message,
			})
		}
		return true
	})
	for _, n := range notes {
		s.log.Info("blueprint note",
			"playlist", pc.playlistID, "part_instance", partInstanceID,
			"level", n.Level, "message", n.Message)
	}
	return true
}
