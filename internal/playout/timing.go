package playout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/onair-core/internal/cache"
	"github.com/nerrad567/onair-core/internal/rundown"
)

// OnPartPlaybackStarted records that a gateway began playing a part
// instance. First-write-wins: a delayed duplicate callback cannot move a
// timestamp that is already set. Starting clears any stale stop left over
// from a previous report cycle.
func (s *Service) OnPartPlaybackStarted(ctx context.Context, playlistID, partInstanceID string, at time.Time) error {
	return s.reportTiming(ctx, playlistID, partInstanceID, func(pc *playlistCache) bool {
		status, err := pc.partInstances.Update(partInstanceID, func(pi *rundown.PartInstance) bool {
			if pi.Timings.StartedPlayback == nil {
				pi.Timings.StartedPlayback = &at
			}
			pi.Timings.StoppedPlayback = nil
			return true
		})
		return err == nil && status != cache.Unchanged
	})
}

// OnPartPlaybackStopped records that a part instance stopped playing.
func (s *Service) OnPartPlaybackStopped(ctx context.Context, playlistID, partInstanceID string, at time.Time) error {
	return s.reportTiming(ctx, playlistID, partInstanceID, func(pc *playlistCache) bool {
		status, err := pc.partInstances.Update(partInstanceID, func(pi *rundown.PartInstance) bool {
			if pi.Timings.StoppedPlayback == nil {
				pi.Timings.StoppedPlayback = &at
			}
			return true
		})
		return err == nil && status != cache.Unchanged
	})
}

// OnPiecePlaybackStarted records that a piece instance began playing.
func (s *Service) OnPiecePlaybackStarted(ctx context.Context, playlistID, pieceInstanceID string, at time.Time) error {
	return s.reportPieceTiming(ctx, playlistID, pieceInstanceID, func(pi *rundown.PieceInstance) {
		if pi.StartedPlayback == nil {
			pi.StartedPlayback = &at
		}
		pi.StoppedPlayback = nil
	})
}

// OnPiecePlaybackStopped records that a piece instance stopped playing.
func (s *Service) OnPiecePlaybackStopped(ctx context.Context, playlistID, pieceInstanceID string, at time.Time) error {
	return s.reportPieceTiming(ctx, playlistID, pieceInstanceID, func(pi *rundown.PieceInstance) {
		if pi.StoppedPlayback == nil {
			pi.StoppedPlayback = &at
		}
	})
}

func (s *Service) reportTiming(ctx context.Context, playlistID, partInstanceID string, mutate func(*playlistCache) bool) error {
	_, lease, err := s.locks.AcquirePlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("acquiring playlist lock: %w", err)
	}
	defer lease.Release()

	pc, err := s.loadCache(ctx, lease, playlistID)
	if err != nil {
		return err
	}

	if !mutate(pc) {
		return pc.cache.AssertNoChanges()
	}
	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving timing report: %w", err)
	}

	// AsRun recomputation is decoupled from the hot path; it must never
	// delay a take or a gateway callback.
	s.timings.schedule(playlistID, partInstanceID)

	// A reported start concretises the part group's trigger.
	return s.updateTimeline(ctx, pc)
}

func (s *Service) reportPieceTiming(ctx context.Context, playlistID, pieceInstanceID string, mutate func(*rundown.PieceInstance)) error {
	_, lease, err := s.locks.AcquirePlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("acquiring playlist lock: %w", err)
	}
	defer lease.Release()

	pc, err := s.loadCache(ctx, lease, playlistID)
	if err != nil {
		return err
	}

	var partInstanceID string
	status, err := pc.pieceInstances.Update(pieceInstanceID, func(pi *rundown.PieceInstance) bool {
		mutate(pi)
		partInstanceID = pi.PartInstanceID
		return true
	})
	if err != nil || status == cache.Unchanged {
		return pc.cache.AssertNoChanges()
	}
	if err := pc.cache.SaveChanges(ctx); err != nil {
		return fmt.Errorf("saving timing report: %w", err)
	}

	s.timings.schedule(playlistID, partInstanceID)
	return s.updateTimeline(ctx, pc)
}

// recomputeTimingEvents is the debounced follow-up to a timing report. It
// condenses the instance's timing state into one AsRun log event.
func (s *Service) recomputeTimingEvents(playlistID, partInstanceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	instances, err := s.repo.ListPartInstances(ctx, nil)
	if err != nil {
		s.log.Warn("timing recompute failed", "playlist", playlistID, "error", err)
		return
	}
	var instance *rundown.PartInstance
	for i := range instances {
		if instances[i].ID == partInstanceID {
			instance = &instances[i]
			break
		}
	}
	if instance == nil {
		return
	}

	details := map[string]any{"part_id": instance.PartID}
	if instance.Timings.StartedPlayback != nil {
		details["started_playback"] = instance.Timings.StartedPlayback.Format(time.RFC3339Nano)
	}
	if instance.Timings.StoppedPlayback != nil {
		details["stopped_playback"] = instance.Timings.StoppedPlayback.Format(time.RFC3339Nano)
		if instance.Timings.StartedPlayback != nil {
			details["duration_ms"] = instance.Timings.StoppedPlayback.Sub(*instance.Timings.StartedPlayback).Milliseconds()
		}
	}

	event := &rundown.PlayoutEvent{
		ID:             rundown.GenerateID(),
		PlaylistID:     playlistID,
		EventType:      "timing.updated",
		PartInstanceID: &partInstanceID,
		Details:        details,
		CreatedAt:      s.now(),
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		s.log.Warn("timing event write failed", "playlist", playlistID, "error", err)
	}
}

// timingScheduler coalesces timing-event recomputation per
// playlistID_partInstanceID key: a report arriving while one is pending
// simply re-arms the timer, last write wins.
type timingScheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	timers  map[string]*time.Timer
	fire    func(playlistID, partInstanceID string)
	stopped bool
}

func newTimingScheduler(delay time.Duration, fire func(playlistID, partInstanceID string)) *timingScheduler {
	return &timingScheduler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		fire:   fire,
	}
}

func (ts *timingScheduler) schedule(playlistID, partInstanceID string) {
	key := playlistID + "_" + partInstanceID

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.stopped {
		return
	}
	if timer, ok := ts.timers[key]; ok {
		timer.Reset(ts.delay)
		return
	}
	ts.timers[key] = time.AfterFunc(ts.delay, func() {
		ts.mu.Lock()
		delete(ts.timers, key)
		stopped := ts.stopped
		ts.mu.Unlock()
		if !stopped {
			ts.fire(playlistID, partInstanceID)
		}
	})
}

// pending reports how many jobs are waiting to fire.
func (ts *timingScheduler) pending() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.timers)
}

func (ts *timingScheduler) stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.stopped = true
	for key, timer := range ts.timers {
		timer.Stop()
		delete(ts.timers, key)
	}
}
