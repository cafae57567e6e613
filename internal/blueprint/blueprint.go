package blueprint

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
)

// Capability names one hook a blueprint may implement. The manifest lists
// the capabilities actually present; the core skips absent hooks instead of
// calling nil functions.
type Capability string

const (
	CapGetBaseline          Capability = "get-baseline"
	CapOnTimelineGenerate   Capability = "on-timeline-generate"
	CapShouldRemoveOrphaned Capability = "should-remove-orphaned-part-instance"
	CapTransformIngest      Capability = "transform-ingest"
)

// Manifest identifies a blueprint bundle and declares its capability set.
type Manifest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`

	Capabilities []Capability `json:"capabilities"`
}

// Has reports whether the manifest declares the capability.
func (m *Manifest) Has(c Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Blueprint is the function table for one show style. Function fields are
// nil when the corresponding capability is absent; callers go through the
// Safe* wrappers, which honour the manifest and never call a nil hook.
type Blueprint struct {
	Manifest Manifest

	// GetBaseline contributes the always-present timeline objects for a
	// rundown (studio backdrop, persistent graphics layers).
	GetBaseline func(bc *Context, rd *rundown.Rundown) ([]timeline.Obj, error)

	// OnTimelineGenerate post-processes the generated object list before
	// publication.
	OnTimelineGenerate func(bc *Context, objs []timeline.Obj) ([]timeline.Obj, error)

	// ShouldRemoveOrphanedPartInstance decides whether an orphaned
	// instance may be dropped during cleanup. pieces are the instance's
	// live piece instances; the hook sees what would stop playing.
	ShouldRemoveOrphanedPartInstance func(bc *Context, pi *rundown.PartInstance, pieces []rundown.PieceInstance) (bool, error)

	// TransformIngest reshapes a raw NRCS payload into the form the
	// reconciliation engine diffs.
	TransformIngest func(bc *Context, in *IngestRundown) (*IngestRundown, error)
}

// ErrNotRegistered indicates no blueprint is registered for a show style.
var ErrNotRegistered = errors.New("blueprint: not registered")

// Registry maps show-style-base ids to blueprints.
type Registry struct {
	mu         sync.RWMutex
	blueprints map[string]*Blueprint
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{blueprints: make(map[string]*Blueprint)}
}

// Register installs a blueprint for a show-style-base id, replacing any
// previous registration.
func (r *Registry) Register(showStyleBaseID string, bp *Blueprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blueprints[showStyleBaseID] = bp
}

// Get returns the blueprint for a show-style-base id.
func (r *Registry) Get(showStyleBaseID string) (*Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.blueprints[showStyleBaseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, showStyleBaseID)
	}
	return bp, nil
}

// List returns the manifests of every registered blueprint.
func (r *Registry) List() []Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Manifest, 0, len(r.blueprints))
	for _, bp := range r.blueprints {
		out = append(out, bp.Manifest)
	}
	return out
}
