package blueprint

import (
	"fmt"

	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
)

// Logger is the minimal logging interface the invocation wrappers need.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Invoker calls blueprint hooks with panic recovery and fallback
// substitution. Hook failures are logged and absorbed; the returned values
// are always safe to use.
type Invoker struct {
	log Logger
}

// NewInvoker creates an invoker. A nil logger silences hook failures.
func NewInvoker(logger Logger) *Invoker {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Invoker{log: logger}
}

// recoverHook converts a hook panic into an error.
func recoverHook(hook string, errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("blueprint: %s panicked: %v", hook, r)
	}
}

// GetBaseline returns the blueprint's baseline objects for a rundown.
// Fallback: no objects.
func (inv *Invoker) GetBaseline(bp *Blueprint, bc *Context, rd *rundown.Rundown) []timeline.Obj {
	if bp == nil || !bp.Manifest.Has(CapGetBaseline) || bp.GetBaseline == nil {
		return nil
	}

	var objs []timeline.Obj
	var err error
	func() {
		defer recoverHook("GetBaseline", &err)
		objs, err = bp.GetBaseline(bc, rd)
	}()
	if err != nil {
		inv.log.Error("blueprint GetBaseline failed, using empty baseline",
			"blueprint", bp.Manifest.ID, "rundown", rd.ID, "error", err)
		return nil
	}
	return objs
}

// OnTimelineGenerate returns the blueprint's post-processed object list.
// Fallback: the input list unchanged.
func (inv *Invoker) OnTimelineGenerate(bp *Blueprint, bc *Context, objs []timeline.Obj) []timeline.Obj {
	if bp == nil || !bp.Manifest.Has(CapOnTimelineGenerate) || bp.OnTimelineGenerate == nil {
		return objs
	}

	var out []timeline.Obj
	var err error
	func() {
		defer recoverHook("OnTimelineGenerate", &err)
		out, err = bp.OnTimelineGenerate(bc, objs)
	}()
	if err != nil {
		inv.log.Error("blueprint OnTimelineGenerate failed, publishing pre-hook objects",
			"blueprint", bp.Manifest.ID, "error", err)
		return objs
	}
	return out
}

// ShouldRemoveOrphanedPartInstance asks the blueprint whether an orphaned
// instance may be dropped. Fallback: keep it. Keeping an orphan too long is
// recoverable; dropping the on-air part is not.
func (inv *Invoker) ShouldRemoveOrphanedPartInstance(bp *Blueprint, bc *Context, pi *rundown.PartInstance, pieces []rundown.PieceInstance) bool {
	if bp == nil || !bp.Manifest.Has(CapShouldRemoveOrphaned) || bp.ShouldRemoveOrphanedPartInstance == nil {
		return false
	}

	var remove bool
	var err error
	func() {
		defer recoverHook("ShouldRemoveOrphanedPartInstance", &err)
		remove, err = bp.ShouldRemoveOrphanedPartInstance(bc, pi, pieces)
	}()
	if err != nil {
		inv.log.Warn("blueprint ShouldRemoveOrphanedPartInstance failed, keeping instance",
			"blueprint", bp.Manifest.ID, "part_instance", pi.ID, "error", err)
		return false
	}
	return remove
}

// TransformIngest returns the blueprint's reshaped ingest payload.
// Fallback: the input unchanged.
func (inv *Invoker) TransformIngest(bp *Blueprint, bc *Context, in *IngestRundown) *IngestRundown {
	if bp == nil || !bp.Manifest.Has(CapTransformIngest) || bp.TransformIngest == nil {
		return in
	}

	var out *IngestRundown
	var err error
	func() {
		defer recoverHook("TransformIngest", &err)
		out, err = bp.TransformIngest(bc, in)
	}()
	if err != nil || out == nil {
		inv.log.Error("blueprint TransformIngest failed, using untransformed payload",
			"blueprint", bp.Manifest.ID, "error", err)
		return in
	}
	return out
}
