package playout

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
)

// updateTimeline regenerates and publishes the studio timeline from the
// cache's playout state. Runs under the playlist lock, after the cache has
// been saved; the timeline always reflects durable state.
func (s *Service) updateTimeline(ctx context.Context, pc *playlistCache) error {
	started := s.now()
	playlist := pc.playlist()

	var (
		bp *blueprint.Blueprint
		bc *blueprint.Context
	)
	current := pc.currentInstance()
	if current != nil {
		rd, _ := pc.rundowns.Get(current.RundownID)
		bp = s.blueprintFor(rd)
		bc = blueprint.NewContext(s.studioID, current.RundownID)
	} else {
		bp = s.blueprintFor(nil)
		bc = blueprint.NewContext(s.studioID, pc.playlistID)
	}

	var baseline []timeline.Obj
	if playlist.Active() && current != nil {
		if rd, ok := pc.rundowns.Get(current.RundownID); ok {
			baseline = s.invoker.GetBaseline(bp, bc, rd.DeepCopy())
		}
	}

	previous, err := s.timelines.Get(ctx, s.studioID)
	if err != nil && !errors.Is(err, timeline.ErrTimelineNotFound) {
		return fmt.Errorf("loading previous timeline: %w", err)
	}

	in := timeline.GenerateInput{
		StudioID:   s.studioID,
		PlaylistID: pc.playlistID,
		Previous:   previous,
		Baseline:   baseline,
		// A held take flips the state to complete before regeneration,
		// so any in-progress hold suppresses transitions, not just the
		// armed one. Transitions return once the following take clears
		// the hold.
		HoldActive:   playlist.HoldState != rundown.HoldNone,
		MultiGateway: s.multiGateway,
		Versions: timeline.GenerationVersions{
			Core:       s.coreVersion,
			Blueprint:  blueprintVersion(bp),
			StudioName: s.studioName,
		},
	}

	if playlist.Active() {
		in.CurrentPart = current
		in.NextPart = pc.nextInstance()
		in.PreviousPart = pc.previousInstance()
		if current != nil {
			in.CurrentPieces = pc.pieceInstancesFor(current.ID)
		}
		if in.NextPart != nil {
			in.NextPieces = pc.pieceInstancesFor(in.NextPart.ID)
		}
	}

	gen := timeline.NewGenerator(func(objs []timeline.Obj) ([]timeline.Obj, error) {
		return s.invoker.OnTimelineGenerate(bp, bc, objs), nil
	}, s.log)

	tl, err := gen.Generate(in)
	if err != nil {
		return fmt.Errorf("generating timeline: %w", err)
	}

	published, err := s.publisher.Publish(ctx, tl)
	if err != nil {
		return fmt.Errorf("publishing timeline: %w", err)
	}

	s.metrics.TimelineGeneration(s.studioID, s.now().Sub(started), len(tl.Objects))
	if published {
		s.log.Debug("timeline updated",
			"studio", s.studioID, "generation", tl.Generation, "objects", len(tl.Objects))
	}
	return nil
}

func blueprintVersion(bp *blueprint.Blueprint) string {
	if bp == nil {
		return ""
	}
	return bp.Manifest.ID + "@" + bp.Manifest.Version
}
