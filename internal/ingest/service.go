package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/cache"
	"github.com/nerrad567/onair-core/internal/lock"
	"github.com/nerrad567/onair-core/internal/rundown"
)

// TransformFunc computes the new external representation of a rundown from
// the previous snapshot (nil on first ingest). Returning a nil rundown
// requests deletion.
type TransformFunc func(old *blueprint.IngestRundown) (*blueprint.IngestRundown, error)

// PlayoutNotifier is told when ingest changed the content of a playlist's
// rundown. The notification fires after the rundown lock is released, so
// the playout side can take its playlist lock without violating the
// acquisition order.
type PlayoutNotifier interface {
	RundownContentChanged(ctx context.Context, playlistID string)
}

// Metrics receives reconciliation timings. Implementations must not block.
type Metrics interface {
	IngestReconciliation(studioID, externalID string, d time.Duration, structural bool)
}

type noopMetrics struct{}

func (noopMetrics) IngestReconciliation(string, string, time.Duration, bool) {}

// Logger is the minimal logging interface the ingest service needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Service.
type Options struct {
	StudioID string

	// DefaultShowStyleBaseID/VariantID are assigned to rundowns created by
	// first-time ingest.
	DefaultShowStyleBaseID    string
	DefaultShowStyleVariantID string

	Locks    *lock.Manager
	Repo     rundown.Repository
	Data     DataRepository
	Registry *blueprint.Registry
	Invoker  *blueprint.Invoker

	// Notifier may be nil.
	Notifier PlayoutNotifier

	// Metrics may be nil.
	Metrics Metrics

	Logger Logger
}

// Service is the ingest reconciliation engine for one studio.
type Service struct {
	studioID         string
	defaultStyleBase string
	defaultStyleVar  string

	locks    *lock.Manager
	repo     rundown.Repository
	data     DataRepository
	registry *blueprint.Registry
	invoker  *blueprint.Invoker
	notifier PlayoutNotifier
	metrics  Metrics
	log      Logger
}

// NewService creates an ingest service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	inv := opts.Invoker
	if inv == nil {
		inv = blueprint.NewInvoker(nil)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		studioID:         opts.StudioID,
		defaultStyleBase: opts.DefaultShowStyleBaseID,
		defaultStyleVar:  opts.DefaultShowStyleVariantID,
		locks:            opts.Locks,
		repo:             opts.Repo,
		data:             opts.Data,
		registry:         opts.Registry,
		invoker:          inv,
		notifier:         opts.Notifier,
		metrics:          metrics,
		log:              logger,
	}
}

// Apply runs one ingest update for a rundown identified by its external id.
func (s *Service) Apply(ctx context.Context, externalID string, transform TransformFunc) error {
	return s.apply(ctx, externalID, transform, false)
}

// Remove deletes a rundown from the NRCS's point of view.
// returnRemoveFailure controls whether a removal blocked by an on-air
// instance surfaces as an error or a silent skip.
func (s *Service) Remove(ctx context.Context, externalID string, returnRemoveFailure bool) error {
	return s.apply(ctx, externalID, func(*blueprint.IngestRundown) (*blueprint.IngestRundown, error) {
		return nil, nil
	}, returnRemoveFailure)
}

func (s *Service) apply(ctx context.Context, externalID string, transform TransformFunc, returnRemoveFailure bool) error {
	started := time.Now()
	rundownID := rundown.DeriveRundownID(s.studioID, externalID)

	_, lease, err := s.locks.AcquireRundown(ctx, rundownID)
	if err != nil {
		return fmt.Errorf("acquiring rundown lock: %w", err)
	}
	defer lease.Release()

	oldData, err := s.data.Get(ctx, s.studioID, externalID)
	if err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return fmt.Errorf("loading previous snapshot: %w", err)
	}

	newData, err := transform(oldData.DeepCopy())
	if err != nil {
		return fmt.Errorf("ingest transform: %w", err)
	}

	if newData != nil {
		newData.ExternalID = externalID
		bp := s.blueprintFor(ctx, rundownID)
		bc := blueprint.NewContext(s.studioID, rundownID)
		newData = s.invoker.TransformIngest(bp, bc, newData)
		s.logNotes(bc, rundownID)
	}

	// The snapshot commit is decoupled from the reconciliation below: the
	// last known NRCS state must survive a failed commit.
	if newData == nil {
		if err := s.data.Delete(ctx, s.studioID, externalID); err != nil {
			return err
		}
	} else {
		if err := s.data.Save(ctx, s.studioID, newData); err != nil {
			return err
		}
	}

	rc, err := s.loadCache(ctx, lease, rundownID)
	if err != nil {
		return err
	}
	before := rc.beforePartMap()

	cd := computeCommitData(rundownID, oldData, newData, returnRemoveFailure)
	if cd == nil {
		s.log.Debug("ingest no-op", "rundown", rundownID, "external_id", externalID)
		return rc.cache.AssertNoChanges()
	}

	structural, userErr := s.commit(ctx, rc, before, cd, externalID, newData)

	if err := rc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving ingest changes: %w", err)
	}

	// A user-facing failure is reported only after the save, so partial
	// ingest results are never lost.
	if userErr != nil {
		s.log.Info("ingest reported user error",
			"rundown", rundownID, "error", userErr)
		return userErr
	}

	playlistID := rc.playlistID()
	s.metrics.IngestReconciliation(s.studioID, externalID, time.Since(started), structural)

	// Playout revalidation needs the playlist lock, so it runs only after
	// this rundown lock is gone.
	lease.Release()
	if structural && s.notifier != nil && playlistID != "" {
		s.notifier.RundownContentChanged(ctx, playlistID)
	}
	return nil
}

// blueprintFor resolves the blueprint for a rundown: the stored show style
// if the rundown exists, the studio default otherwise.
func (s *Service) blueprintFor(ctx context.Context, rundownID string) *blueprint.Blueprint {
	styleBase := s.defaultStyleBase
	if rd, err := s.repo.GetRundown(ctx, rundownID); err == nil {
		styleBase = rd.ShowStyleBaseID
	}
	if s.registry == nil {
		return nil
	}
	bp, err := s.registry.Get(styleBase)
	if err != nil {
		return nil
	}
	return bp
}

func (s *Service) logNotes(bc *blueprint.Context, rundownID string) {
	for _, note := range bc.Notes() {
		switch note.Level {
		case blueprint.NoteError:
			s.log.Warn("blueprint note", "rundown", rundownID, "level", note.Level, "message", note.Message)
		default:
			s.log.Info("blueprint note", "rundown", rundownID, "level", note.Level, "message", note.Message)
		}
	}
}

// ─── Rundown Cache ──────────────────────────────────────────────────────────

// rundownCache is the working set of one ingest operation.
type rundownCache struct {
	cache *cache.Cache

	rundowns       *cache.Collection[rundown.Rundown]
	segments       *cache.Collection[rundown.Segment]
	parts          *cache.Collection[rundown.Part]
	pieces         *cache.Collection[rundown.Piece]
	partInstances  *cache.Collection[rundown.PartInstance]
	pieceInstances *cache.Collection[rundown.PieceInstance]

	rundownID string
}

// loadCache loads everything one ingest operation may touch for a rundown.
func (s *Service) loadCache(ctx context.Context, lease *lock.Lease, rundownID string) (*rundownCache, error) {
	c, err := cache.New(lease, s.log)
	if err != nil {
		return nil, err
	}
	rc := &rundownCache{
		cache:     c,
		rundownID: rundownID,
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

	if rd, err := s.repo.GetRundown(ctx, rundownID); err == nil {
		rc.rundowns.Preload([]rundown.Rundown{*rd})
	} else if !errors.Is(err, rundown.ErrRundownNotFound) {
		return nil, err
	}

	segments, err := s.repo.ListSegments(ctx, rundownID)
	if err != nil {
		return nil, err
	}
	rc.segments.Preload(segments)

	parts, err := s.repo.ListParts(ctx, rundownID)
	if err != nil {
		return nil, err
	}
	rc.parts.Preload(parts)

	pieces, err := s.repo.ListPieces(ctx, rundownID)
	if err != nil {
		return nil, err
	}
	rc.pieces.Preload(pieces)

	partInstances, err := s.repo.ListPartInstances(ctx, []string{rundownID})
	if err != nil {
		return nil, err
	}
	rc.partInstances.Preload(partInstances)

	instanceIDs := make([]string, 0, len(partInstances))
	for _, pi := range partInstances {
		instanceIDs = append(instanceIDs, pi.ID)
	}
	pieceInstances, err := s.repo.ListPieceInstances(ctx, instanceIDs)
	if err != nil {
		return nil, err
	}
	rc.pieceInstances.Preload(pieceInstances)

	rc.cache.Register(cache.Bind(rc.rundowns, s.repo.UpsertRundowns, s.repo.DeleteRundowns))
	rc.cache.Register(cache.Bind(rc.segments, s.repo.UpsertSegments, s.repo.DeleteSegments))
	rc.cache.Register(cache.Bind(rc.parts, s.repo.UpsertParts, s.repo.DeleteParts))
	rc.cache.Register(cache.Bind(rc.pieces, s.repo.UpsertPieces, s.repo.DeletePieces))
	rc.cache.Register(cache.Bind(rc.partInstances, s.repo.UpsertPartInstances, s.repo.DeletePartInstances))
	rc.cache.Register(cache.Bind(rc.pieceInstances, s.repo.UpsertPieceInstances, s.repo.DeletePieceInstances))

	return rc, nil
}

func (rc *rundownCache) rundown() *rundown.Rundown {
	rd, _ := rc.rundowns.Get(rc.rundownID)
	return rd
}

func (rc *rundownCache) playlistID() string {
	if rd := rc.rundown(); rd != nil {
		return rd.PlaylistID
	}
	return ""
}

// partRanks returns a segment's current part list in rank order.
func (rc *rundownCache) partRanks(segmentID string) []PartRank {
	parts := rc.parts.FindAll(func(p *rundown.Part) bool { return p.SegmentID == segmentID })
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Rank != parts[j].Rank {
			return parts[i].Rank < parts[j].Rank
		}
		return parts[i].ID < parts[j].ID
	})
	ranks := make([]PartRank, 0, len(parts))
	for _, p := range parts {
		ranks = append(ranks, PartRank{PartID: p.ID, Rank: p.Rank})
	}
	return ranks
}

// beforePartMap snapshots every segment's ordered part list.
func (rc *rundownCache) beforePartMap() BeforePartMap {
	m := make(BeforePartMap)
	for _, seg := range rc.segments.All() {
		m[seg.ID] = rc.partRanks(seg.ID)
	}
	return m
}
