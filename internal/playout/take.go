package playout

import (
	"context"
	"fmt"

	"github.com/nerrad567/onair-core/internal/rundown"
)

// Take promotes the next part to current and starts its playback.
func (s *Service) Take(ctx context.Context, playlistID string) error {
	started := s.now()

	_, lease, err := s.locks.AcquirePlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("acquiring playlist lock: %w", err)
	}
	defer lease.Release()

	pc, err := s.loadCache(ctx, lease, playlistID)
	if err != nil {
		return err
	}
	playlist := pc.playlist()

	if !playlist.Active() {
		return rundown.NewUserError("playlist.not-active",
			"playlist %q is not active", playlist.Name)
	}
	next := pc.nextInstance()
	if next == nil {
		return rundown.NewUserError("take.no-next",
			"playlist %q has no next part to take", playlist.Name)
	}

	// Hold sub-machine: a take during an active hold runs without
	// transitions and completes the hold; the take after that clears it.
	holdState := playlist.HoldState
	switch holdState {
	case rundown.HoldActive:
		holdState = rundown.HoldComplete
	case rundown.HoldComplete:
		holdState = rundown.HoldNone
	}

	now := s.now()
	pc.partInstances.Update(next.ID, func(pi *rundown.PartInstance) bool {
		pi.Timings.TakenAt = &now
		return true
	})

	oldCurrent := pc.currentInstance()
	if oldCurrent != nil {
		s.continueInfinites(pc, oldCurrent, next)
	}

	pc.playlists.Update(playlistID, func(p *rundown.Playlist) bool {
		p.PreviousPart = p.CurrentPart
		p.CurrentPart = &rundown.PartRef{
			PartInstanceID: next.ID,
			RundownID:      next.RundownID,
		}
		p.NextPart = nil
		p.HoldState = holdState
		return true
	})

	s.ensureNextPartIsValid(pc)

	s.recordEvent(pc, "part.taken", &next.ID, map[string]any{
		"part_id":    next.PartID,
		"take_count": next.TakeCount,
	})

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving take: %w", err)
	}
	s.log.Info("part taken",
		"playlist", playlistID, "part_instance", next.ID, "part", next.PartID)

	err = s.updateTimeline(ctx, pc)
	s.metrics.TakeDuration(playlistID, s.now().Sub(started))
	return err
}

// SetNext points the playlist's next pointer at a specific part. The
// selection is marked manual, which makes it sticky across ingest churn.
func (s *Service) SetNext(ctx context.Context, playlistID, partID string) error {
	_, lease, err := s.locks.AcquirePlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("acquiring playlist lock: %w", err)
	}
	defer lease.Release()

	pc, err := s.loadCache(ctx, lease, playlistID)
	if err != nil {
		return err
	}
	playlist := pc.playlist()

	if !playlist.Active() {
		return rundown.NewUserError("playlist.not-active",
			"playlist %q is not active", playlist.Name)
	}
	if playlist.HoldState != rundown.HoldNone {
		return rundown.NewUserError("next.during-hold",
			"cannot change the next part during a hold")
	}

	part, ok := pc.parts.Get(partID)
	if !ok {
		return rundown.NewUserError("next.part-not-found",
			"part %q does not exist in this playlist", partID)
	}
	if !part.Playable() {
		return rundown.NewUserError("next.part-not-playable",
			"part %q is floated and cannot be set as next", part.Title)
	}

	instance := s.setNextPart(pc, part, true)

	s.recordEvent(pc, "part.next-set", &instance.ID, map[string]any{
		"part_id": partID,
		"manual":  true,
	})

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving next selection: %w", err)
	}
	return s.updateTimeline(ctx, pc)
}

// MoveNext shifts the next pointer by delta playable parts relative to the
// pointed part, or to the current part when nothing is nexted yet.
func (s *Service) MoveNext(ctx context.Context, playlistID string, delta int) error {
	if delta == 0 {
		return nil
	}

	_, lease, err := s.locks.AcquirePlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("acquiring playlist lock: %w", err)
	}
	defer lease.Release()

	pc, err := s.loadCache(ctx, lease, playlistID)
	if err != nil {
		return err
	}
	playlist := pc.playlist()

	if !playlist.Active() {
		return rundown.NewUserError("playlist.not-active",
			"playlist %q is not active", playlist.Name)
	}
	if playlist.HoldState != rundown.HoldNone {
		return rundown.NewUserError("next.during-hold",
			"cannot change the next part during a hold")
	}

	anchor := pc.nextInstance()
	if anchor == nil {
		anchor = pc.currentInstance()
	}
	var anchorPartID string
	if anchor != nil {
		anchorPartID = anchor.PartID
	}

	target := movePart(pc.orderedParts(), anchorPartID, delta)
	if target == nil {
		return rundown.NewUserError("next.out-of-range",
			"no playable part %d steps away", delta)
	}

	instance := s.setNextPart(pc, target, true)

	s.recordEvent(pc, "part.next-set", &instance.ID, map[string]any{
		"part_id": target.ID,
		"manual":  true,
		"delta":   delta,
	})

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving next selection: %w", err)
	}
	return s.updateTimeline(ctx, pc)
}

// ActivateHold arms a hold: the coming take will run without transition
// pieces. Requires both a current and a next part.
func (s *Service) ActivateHold(ctx context.Context, playlistID string) error {
	return s.setHold(ctx, playlistID, rundown.HoldNone, rundown.HoldActive, "hold.activated")
}

// DeactivateHold aborts an armed hold that has not run its take yet.
func (s *Service) DeactivateHold(ctx context.Context, playlistID string) error {
	return s.setHold(ctx, playlistID, rundown.HoldActive, rundown.HoldNone, "hold.deactivated")
}

func (s *Service) setHold(ctx context.Context, playlistID string, from, to rundown.HoldState, eventType string) error {
	_, lease, err := s.locks.AcquirePlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("acquiring playlist lock: %w", err)
	}
	defer lease.Release()

	pc, err := s.loadCache(ctx, lease, playlistID)
	if err != nil {
		return err
	}
	playlist := pc.playlist()

	if !playlist.Active() {
		return rundown.NewUserError("playlist.not-active",
			"playlist %q is not active", playlist.Name)
	}
	if playlist.HoldState != from {
		return rundown.NewUserError("hold.invalid-state",
			"hold is %q, expected %q", playlist.HoldState, from)
	}
	if to == rundown.HoldActive && (playlist.CurrentPart == nil || playlist.NextPart == nil) {
		return rundown.NewUserError("hold.requires-current-and-next",
			"a hold needs both a current and a next part")
	}

	pc.playlists.Update(playlistID, func(p *rundown.Playlist) bool {
		p.HoldState = to
		return true
	})

	s.recordEvent(pc, eventType, nil, nil)

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving hold change: %w", err)
	}
	return s.updateTimeline(ctx, pc)
}

// setNextPart instantiates a part and points the next pointer at it. Any
// previously nexted instance that was never taken is reset.
func (s *Service) setNextPart(pc *playlistCache, part *rundown.Part, manual bool) *rundown.PartInstance {
	playlist := pc.playlist()

	if old := pc.nextInstance(); old != nil && old.Timings.TakenAt == nil {
		pc.partInstances.Update(old.ID, func(pi *rundown.PartInstance) bool {
			pi.Reset = true
			return true
		})
		pc.pieceInstances.UpdateAll(func(pi *rundown.PieceInstance) bool {
			if pi.PartInstanceID == old.ID {
				pi.Reset = true
			}
			return true
		})
	}

	activationID := ""
	if playlist.ActivationID != nil {
		activationID = *playlist.ActivationID
	}

	instance := rundown.PartInstance{
		ID:           rundown.GenerateID(),
		PartID:       part.ID,
		SegmentID:    part.SegmentID,
		RundownID:    part.RundownID,
		ActivationID: activationID,
		TakeCount:    pc.maxTakeCount(activationID) + 1,
		Rehearsal:    playlist.Rehearsal,
		Part:         *part.DeepCopy(),
	}
	pc.partInstances.Insert(&instance)

	for _, piece := range pc.pieces.FindAll(func(p *rundown.Piece) bool { return p.PartID == part.ID }) {
		pc.pieceInstances.Insert(&rundown.PieceInstance{
			ID:             rundown.GenerateID(),
			PartInstanceID: instance.ID,
			PieceID:        piece.ID,
			RundownID:      part.RundownID,
			Piece:          *piece.DeepCopy(),
		})
	}

	pc.playlists.Update(pc.playlistID, func(p *rundown.Playlist) bool {
		p.NextPart = &rundown.PartRef{
			PartInstanceID:   instance.ID,
			RundownID:        part.RundownID,
			ManuallySelected: manual,
		}
		return true
	})
	return &instance
}

// continueInfinites carries still-playing long-lifespan pieces of the
// outgoing part into the incoming one as continuation instances, so the
// take does not interrupt them.
func (s *Service) continueInfinites(pc *playlistCache, from, to *rundown.PartInstance) {
	for _, src := range pc.pieceInstancesFor(from.ID) {
		if src.Piece.Lifespan == rundown.LifespanPart || src.StoppedPlayback != nil {
			continue
		}
		if src.Piece.Lifespan == rundown.LifespanSegment && from.SegmentID != to.SegmentID {
			continue
		}
		if src.Piece.Lifespan == rundown.LifespanRundown && from.RundownID != to.RundownID {
			continue
		}

		infiniteID := src.ID
		if src.InfiniteInstanceID != nil {
			infiniteID = *src.InfiniteInstanceID
		}

		cont := rundown.PieceInstance{
			ID:                   rundown.GenerateID(),
			PartInstanceID:       to.ID,
			PieceID:              src.PieceID,
			RundownID:            to.RundownID,
			InfiniteInstanceID:   &infiniteID,
			InfiniteFromPrevious: true,
			Piece:                *src.Piece.DeepCopy(),
		}
		if src.StartedPlayback != nil {
			started := *src.StartedPlayback
			cont.StartedPlayback = &started
		}
		pc.pieceInstances.Insert(&cont)
	}
}

// movePart walks the ordered playable part list delta steps from anchor.
func movePart(ordered []orderedPart, anchorPartID string, delta int) *rundown.Part {
	playable := make([]*rundown.Part, 0, len(ordered))
	anchorIdx := -1
	for _, op := range ordered {
		if !op.part.Playable() {
			continue
		}
		if op.part.ID == anchorPartID {
			anchorIdx = len(playable)
		}
		playable = append(playable, op.part)
	}
	if len(playable) == 0 {
		return nil
	}
	if anchorIdx < 0 {
		if delta > 0 {
			return playable[0]
		}
		return nil
	}
	target := anchorIdx + delta
	if target < 0 || target >= len(playable) {
		return nil
	}
	return playable[target]
}
