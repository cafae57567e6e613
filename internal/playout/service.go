package playout

import (
	"context"
	"time"

	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/lock"
	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
)

// Logger is the minimal logging interface the playout service needs.
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

// Metrics receives playout measurements. Implemented by the influxdb
// writer; a nil Metrics in Options disables measurement.
type Metrics interface {
	TakeDuration(playlistID string, d time.Duration)
	TimelineGeneration(studioID string, d time.Duration, objects int)
}

type noopMetrics struct{}

func (noopMetrics) TakeDuration(string, time.Duration)            {}
func (noopMetrics) TimelineGeneration(string, time.Duration, int) {}

// Options configures a Service.
type Options struct {
	StudioID   string
	StudioName string

	// CoreVersion stamps generated timelines.
	CoreVersion string

	// MultiGateway forces unresolved "now" triggers to concrete times
	// before publish.
	MultiGateway bool

	// AutoNextGuard is the window before an imminent autonext transition
	// in which the next pointer is left untouched.
	AutoNextGuard time.Duration

	// TimingDebounce is the coalescing window for background timing-event
	// recomputation.
	TimingDebounce time.Duration

	Locks    *lock.Manager
	Repo     rundown.Repository
	Registry *blueprint.Registry
	Invoker  *blueprint.Invoker

	Timelines timeline.Repository
	Publisher *timeline.Publisher

	// DefaultShowStyleBaseID resolves the blueprint when no rundown is
	// loaded yet.
	DefaultShowStyleBaseID string

	Metrics Metrics
	Logger  Logger
}

// Service is the playout state machine for one studio.
type Service struct {
	studioID     string
	studioName   string
	coreVersion  string
	multiGateway bool

	autoNextGuard time.Duration

	locks    *lock.Manager
	repo     rundown.Repository
	registry *blueprint.Registry
	invoker  *blueprint.Invoker

	timelines timeline.Repository
	publisher *timeline.Publisher

	defaultStyleBase string

	timings *timingScheduler
	metrics Metrics
	log     Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewService creates a playout service. Close must be called on shutdown
// to stop pending timing jobs.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	inv := opts.Invoker
	if inv == nil {
		inv = blueprint.NewInvoker(nil)
	}
	debounce := opts.TimingDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	s := &Service{
		studioID:         opts.StudioID,
		studioName:       opts.StudioName,
		coreVersion:      opts.CoreVersion,
		multiGateway:     opts.MultiGateway,
		autoNextGuard:    opts.AutoNextGuard,
		locks:            opts.Locks,
		repo:             opts.Repo,
		registry:         opts.Registry,
		invoker:          inv,
		timelines:        opts.Timelines,
		publisher:        opts.Publisher,
		defaultStyleBase: opts.DefaultShowStyleBaseID,
		metrics:          metrics,
		log:              logger,
		now:              time.Now,
	}
	s.timings = newTimingScheduler(debounce, s.recomputeTimingEvents)
	return s
}

// Close stops the background timing scheduler. Pending jobs are dropped.
func (s *Service) Close() {
	s.timings.stop()
}

// blueprintFor resolves the blueprint for a rundown.
func (s *Service) blueprintFor(rd *rundown.Rundown) *blueprint.Blueprint {
	styleBase := s.defaultStyleBase
	if rd != nil && rd.ShowStyleBaseID != "" {
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

// recordEvent queues a playout event write to run after the cache save
// commits, so the log never records a mutation that failed to persist.
func (s *Service) recordEvent(pc *playlistCache, eventType string, partInstanceID *string, details map[string]any) {
	event := &rundown.PlayoutEvent{
		ID:             rundown.GenerateID(),
		PlaylistID:     pc.playlistID,
		EventType:      eventType,
		PartInstanceID: partInstanceID,
		Details:        details,
		CreatedAt:      s.now(),
	}
	pc.cache.DeferAfterSave(func(ctx context.Context) error {
		return s.repo.CreateEvent(ctx, event)
	})
}
