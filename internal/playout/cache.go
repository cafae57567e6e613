package playout

import (
	"context"
	"sort"

	"github.com/nerrad567/onair-core/internal/cache"
	"github.com/nerrad567/onair-core/internal/lock"
	"github.com/nerrad567/onair-core/internal/rundown"
)

// playlistCache is the working set of one playout operation: the playlist,
// every rundown it plays, their content and the live instances.
type playlistCache struct {
	cache *cache.Cache

	playlists      *cache.Collection[rundown.Playlist]
	rundowns       *cache.Collection[rundown.Rundown]
	segments       *cache.Collection[rundown.Segment]
	parts          *cache.Collection[rundown.Part]
	pieces         *cache.Collection[rundown.Piece]
	partInstances  *cache.Collection[rundown.PartInstance]
	pieceInstances *cache.Collection[rundown.PieceInstance]

	playlistID string
}

func (s *Service) loadCache(ctx context.Context, lease *lock.Lease, playlistID string) (*playlistCache, error) {
	c, err := cache.New(lease, s.log)
	if err != nil {
		return nil, err
	}
	pc := &playlistCache{
		cache:      c,
		playlistID: playlistID,
		playlists: cache.NewCollection("playlists",
			func(p *rundown.Playlist) string { return p.ID },
			func(p *rundown.Playlist) *rundown.Playlist { return p.DeepCopy() }),
		rundowns: cache.NewCollection("rundowns",
			func(r *rundown.Rundown) string { return r.ID },
			func(r *rundown.Rundown) *rundown.Rundown { return r.DeepCopy() }),
		segments: cache.NewCollection("segments",
			func(sg *rundown.Segment) string { return sg.ID },
			func(sg *rundown.Segment) *rundown.Segment { return sg.DeepCopy() }),
		parts: cache.NewCollection("parts",
			func(p *rundown.Part) string { return p.ID },
			func(p *rundown.Part) *rundown.Part { return p.DeepCopy() }),
		pieces: cache.NewCollection("pieces",
			func(p *rundown.Piece) string { return p.ID },
			func(p *rundown.Piece) *rundown.Piece { return p.DeepCopy() }),
		partInstances: cache.NewCollection("part_instances",
			func(pi *rundown.PartInstance) string { return pi.ID },
			func(pi *rundown.PartInstance) *rundown.PartInstance { return pi.DeepCopy() }),
		pieceInstances: cache.NewCollection("piece_instances",
			func(pi *rundown.PieceInstance) string { return pi.ID },
			func(pi *rundown.PieceInstance) *rundown.PieceInstance { return pi.DeepCopy() }),
	}

	playlist, err := s.repo.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	pc.playlists.Preload([]rundown.Playlist{*playlist})

	rundowns, err := s.repo.ListRundownsByPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	pc.rundowns.Preload(rundowns)

	rundownIDs := make([]string, 0, len(rundowns))
	for _, rd := range rundowns {
		rundownIDs = append(rundownIDs, rd.ID)

		segments, err := s.repo.ListSegments(ctx, rd.ID)
		if err != nil {
			return nil, err
		}
		pc.segments.Preload(segments)

		parts, err := s.repo.ListParts(ctx, rd.ID)
		if err != nil {
			return nil, err
		}
		pc.parts.Preload(parts)

		pieces, err := s.repo.ListPieces(ctx, rd.ID)
		if err != nil {
			return nil, err
		}
		pc.pieces.Preload(pieces)
	}

	partInstances, err := s.repo.ListPartInstances(ctx, rundownIDs)
	if err != nil {
		return nil, err
	}
	pc.partInstances.Preload(partInstances)

	instanceIDs := make([]string, 0, len(partInstances))
	for _, pi := range partInstances {
		instanceIDs = append(instanceIDs, pi.ID)
	}
	pieceInstances, err := s.repo.ListPieceInstances(ctx, instanceIDs)
	if err != nil {
		return nil, err
	}
	pc.pieceInstances.Preload(pieceInstances)

	pc.cache.Register(cache.Bind(pc.playlists, s.repo.UpsertPlaylists, s.repo.DeletePlaylists))
	pc.cache.Register(cache.Bind(pc.rundowns, s.repo.UpsertRundowns, s.repo.DeleteRundowns))
	pc.cache.Register(cache.Bind(pc.segments, s.repo.UpsertSegments, s.repo.DeleteSegments))
	pc.cache.Register(cache.Bind(pc.parts, s.repo.UpsertParts, s.repo.DeleteParts))
	pc.cache.Register(cache.Bind(pc.pieces, s.repo.UpsertPieces, s.repo.DeletePieces))
	pc.cache.Register(cache.Bind(pc.partInstances, s.repo.UpsertPartInstances, s.repo.DeletePartInstances))
	pc.cache.Register(cache.Bind(pc.pieceInstances, s.repo.UpsertPieceInstances, s.repo.DeletePieceInstances))

	return pc, nil
}

func (pc *playlistCache) playlist() *rundown.Playlist {
	p, _ := pc.playlists.Get(pc.playlistID)
	return p
}

func (pc *playlistCache) instanceFor(ref *rundown.PartRef) *rundown.PartInstance {
	if ref == nil {
		return nil
	}
	pi, _ := pc.partInstances.Get(ref.PartInstanceID)
	return pi
}

func (pc *playlistCache) currentInstance() *rundown.PartInstance {
	return pc.instanceFor(pc.playlist().CurrentPart)
}

func (pc *playlistCache) nextInstance() *rundown.PartInstance {
	return pc.instanceFor(pc.playlist().NextPart)
}

func (pc *playlistCache) previousInstance() *rundown.PartInstance {
	return pc.instanceFor(pc.playlist().PreviousPart)
}

// pieceInstancesFor returns the non-reset piece instances of one part
// instance, in stable id order.
func (pc *playlistCache) pieceInstancesFor(partInstanceID string) []rundown.PieceInstance {
	found := pc.pieceInstances.FindAll(func(pi *rundown.PieceInstance) bool {
		return pi.PartInstanceID == partInstanceID && !pi.Reset
	})
	out := make([]rundown.PieceInstance, 0, len(found))
	for _, pi := range found {
		out = append(out, *pi)
	}
	return out
}

// orderedPart is one entry of the playlist-wide playback order.
type orderedPart struct {
	part        *rundown.Part
	rundownRank float64
	segmentRank float64
}

// orderedParts returns every part of the playlist in playback order:
// rundown rank, then segment rank, then part rank. Orphaned segments'
// parts are excluded; they are no longer part of the show.
func (pc *playlistCache) orderedParts() []orderedPart {
	rundownRanks := make(map[string]float64)
	for _, rd := range pc.rundowns.All() {
		rundownRanks[rd.ID] = rd.Rank
	}
	segmentRanks := make(map[string]float64)
	liveSegments := make(map[string]bool)
	for _, sg := range pc.segments.All() {
		segmentRanks[sg.ID] = sg.Rank
		if sg.Orphaned == rundown.OrphanedNone {
			liveSegments[sg.ID] = true
		}
	}

	var out []orderedPart
	for _, p := range pc.parts.All() {
		if !liveSegments[p.SegmentID] {
			continue
		}
		out = append(out, orderedPart{
			part:        p,
			rundownRank: rundownRanks[p.RundownID],
			segmentRank: segmentRanks[p.SegmentID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.rundownRank != b.rundownRank {
			return a.rundownRank < b.rundownRank
		}
		if a.segmentRank != b.segmentRank {
			return a.segmentRank < b.segmentRank
		}
		if a.part.Rank != b.part.Rank {
			return a.part.Rank < b.part.Rank
		}
		return a.part.ID < b.part.ID
	})
	return out
}

// maxTakeCount returns the highest take count among a playlist activation's
// instances.
func (pc *playlistCache) maxTakeCount(activationID string) int {
	max := 0
	for _, pi := range pc.partInstances.All() {
		if pi.ActivationID == activationID && pi.TakeCount > max {
			max = pi.TakeCount
		}
	}
	return max
}
