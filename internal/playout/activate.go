package playout

import (
	"context"
	"fmt"

	"github.com/nerrad567/onair-core/internal/rundown"
)

// Activate puts a playlist on air. Only one playlist per studio may be
// active at a time; rehearsal activations behave identically but mark
// their instances so AsRun output can be filtered.
func (s *Service) Activate(ctx context.Context, playlistID string, rehearsal bool) error {
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

	if playlist.Active() {
		return rundown.NewUserError("playlist.already-active",
			"playlist %q is already active", playlist.Name)
	}
	if err := s.checkNoOtherActive(ctx, playlist); err != nil {
		return err
	}

	activationID := rundown.GenerateID()
	pc.playlists.Update(playlistID, func(p *rundown.Playlist) bool {
		p.ActivationID = &activationID
		p.Rehearsal = rehearsal
		p.HoldState = rundown.HoldNone
		p.CurrentPart = nil
		p.NextPart = nil
		p.PreviousPart = nil
		return true
	})

	// Instances from earlier activations are dead weight for playout.
	pc.partInstances.UpdateAll(func(pi *rundown.PartInstance) bool {
		if pi.ActivationID == activationID || pi.Reset {
			return true
		}
		pi.Reset = true
		return true
	})
	pc.pieceInstances.UpdateAll(func(pi *rundown.PieceInstance) bool {
		if inst, ok := pc.partInstances.Get(pi.PartInstanceID); ok && inst.Reset {
			pi.Reset = true
		}
		return true
	})

	s.ensureNextPartIsValid(pc)

	s.recordEvent(pc, "playlist.activated", nil, map[string]any{
		"activation_id": activationID,
		"rehearsal":     rehearsal,
	})

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving activation: %w", err)
	}
	s.log.Info("playlist activated",
		"playlist", playlistID, "activation", activationID, "rehearsal", rehearsal)

	return s.updateTimeline(ctx, pc)
}

// Deactivate takes a playlist off air.
func (s *Service) Deactivate(ctx context.Context, playlistID string) error {
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
		return pc.cache.AssertNoChanges()
	}
	activationID := *playlist.ActivationID

	now := s.now()
	if cur := pc.currentInstance(); cur != nil {
		pc.partInstances.Update(cur.ID, func(pi *rundown.PartInstance) bool {
			if pi.Timings.StoppedPlayback == nil {
				pi.Timings.StoppedPlayback = &now
			}
			return true
		})
	}

	pc.playlists.Update(playlistID, func(p *rundown.Playlist) bool {
		p.ActivationID = nil
		p.HoldState = rundown.HoldNone
		p.CurrentPart = nil
		p.NextPart = nil
		p.PreviousPart = nil
		return true
	})

	s.recordEvent(pc, "playlist.deactivated", nil, map[string]any{
		"activation_id": activationID,
	})

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving deactivation: %w", err)
	}
	s.log.Info("playlist deactivated", "playlist", playlistID)

	return s.updateTimeline(ctx, pc)
}

// Reset clears a playlist's playout state. Refused while live on air;
// rehearsal activations may reset freely.
func (s *Service) Reset(ctx context.Context, playlistID string) error {
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

	if playlist.Active() && !playlist.Rehearsal {
		return rundown.NewUserError("playlist.reset-while-active",
			"playlist %q is on air and cannot be reset", playlist.Name)
	}

	pc.partInstances.UpdateAll(func(pi *rundown.PartInstance) bool {
		pi.Reset = true
		return true
	})
	pc.pieceInstances.UpdateAll(func(pi *rundown.PieceInstance) bool {
		pi.Reset = true
		return true
	})
	pc.playlists.Update(playlistID, func(p *rundown.Playlist) bool {
		p.HoldState = rundown.HoldNone
		p.CurrentPart = nil
		p.NextPart = nil
		p.PreviousPart = nil
		return true
	})

	if playlist.Active() {
		// A rehearsal reset restarts from the top.
		s.ensureNextPartIsValid(pc)
	}

	s.recordEvent(pc, "playlist.reset", nil, nil)

	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving reset: %w", err)
	}
	return s.updateTimeline(ctx, pc)
}

// checkNoOtherActive enforces the one-active-playlist-per-studio rule.
func (s *Service) checkNoOtherActive(ctx context.Context, playlist *rundown.Playlist) error {
	others, err := s.repo.ListPlaylists(ctx, playlist.StudioID)
	if err != nil {
		return fmt.Errorf("listing studio playlists: %w", err)
	}
	for i := range others {
		if others[i].ID != playlist.ID && others[i].Active() {
			return rundown.NewUserError("studio.active-playlist",
				"playlist %q is already active in this studio", others[i].Name)
		}
	}
	return nil
}
