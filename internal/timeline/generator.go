package timeline

import (
	"fmt"
	"time"

	"github.com/nerrad567/onair-core/internal/rundown"
)

// Logger is the logging surface the generator needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// HookFunc post-processes the object list before flattening. Callers wire
// in the blueprint's on-generate hook here; the generator stays decoupled
// from how blueprints are registered and invoked.
type HookFunc func(objs []Obj) ([]Obj, error)

// GenerateInput is everything one regeneration reads. Part instances may
// each be absent; pieces must belong to their named instance.
type GenerateInput struct {
	StudioID   string
	PlaylistID string

	// Previous is the last published timeline for this studio, nil on
	// the first generation. Used for "now" continuity and the generation
	// counter.
	Previous *Timeline

	// Baseline objects are included unconditionally.
	Baseline []Obj

	CurrentPart  *rundown.PartInstance
	NextPart     *rundown.PartInstance
	PreviousPart *rundown.PartInstance

	CurrentPieces []rundown.PieceInstance
	NextPieces    []rundown.PieceInstance

	HoldActive bool

	// MultiGateway forces every unresolved "now" to a concrete time
	// before publish. A literal "now" is only safe with a single
	// resolver.
	MultiGateway bool

	Versions GenerationVersions
}

// Generator builds the published timeline for a studio from playout state.
type Generator struct {
	hook HookFunc
	log  Logger
	now  func() time.Time
}

// NewGenerator builds a Generator. hook and log may be nil.
func NewGenerator(hook HookFunc, log Logger) *Generator {
	if log == nil {
		log = noopLogger{}
	}
	return &Generator{hook: hook, log: log, now: time.Now}
}

// Generate runs one full regeneration.
func (g *Generator) Generate(in GenerateInput) (*Timeline, error) {
	objs := make([]Obj, 0, len(in.Baseline)+8)
	for i := range in.Baseline {
		objs = append(objs, *in.Baseline[i].DeepCopy())
	}

	objs = append(objs, g.partObjects(in)...)
	if in.PlaylistID != "" {
		objs = append(objs, stateObj(in))
	}

	objs = g.applyHook(objs)

	flat, err := Flatten(objs)
	if err != nil {
		return nil, fmt.Errorf("flatten timeline objects: %w", err)
	}

	flat = reconcileNow(flat, in.Previous)
	if in.MultiGateway {
		flat = denowify(flat, g.now())
	}

	var generation int64 = 1
	if in.Previous != nil {
		generation = in.Previous.Generation + 1
	}

	return &Timeline{
		StudioID:    in.StudioID,
		Objects:     flat,
		Hash:        ContentHash(flat),
		Versions:    in.Versions,
		Generation:  generation,
		GeneratedAt: g.now(),
	}, nil
}

// applyHook runs the blueprint post-processing hook. A failing hook must
// not block playout output, so errors fall back to the pre-hook list.
func (g *Generator) applyHook(objs []Obj) []Obj {
	if g.hook == nil {
		return objs
	}
	out, err := g.hook(objs)
	if err != nil {
		g.log.Warn("timeline hook failed, using pre-hook objects", "error", err)
		return objs
	}
	if out == nil {
		return objs
	}
	return out
}

// ─── Part group construction ─────────────────────────────────────────────

// GroupID returns the timeline group id for a part instance.
func GroupID(partInstanceID string) string {
	return "group_" + partInstanceID
}

func infiniteGroupID(infiniteInstanceID string) string {
	return "inf_" + infiniteInstanceID
}

func pieceObjectID(pieceInstanceID string) string {
	return "piece_" + pieceInstanceID
}

func (g *Generator) partObjects(in GenerateInput) []Obj {
	if in.CurrentPart == nil {
		return nil
	}

	var objs []Obj

	var fromPart *rundown.Part
	if in.PreviousPart != nil {
		fromPart = &in.PreviousPart.Part
	}
	timings := CalculatePartTimings(fromPart, &in.CurrentPart.Part, in.HoldActive)

	currentGroup := g.currentGroup(in, timings)
	currentStart := concreteStart(currentGroup.Trigger)

	if prev := g.previousGroup(in, timings, currentStart); prev != nil {
		objs = append(objs, *prev)
	}

	// Infinites continuing from before the take keep their original
	// timing. Re-anchoring them to the new part would visibly restart
	// content that never stopped.
	continuations, continuedIDs := g.infiniteGroups(in.CurrentPieces)
	objs = append(objs, continuations...)

	for i := range in.CurrentPieces {
		pi := &in.CurrentPieces[i]
		if !playablePiece(pi) || continuedIDs[pi.ID] {
			continue
		}
		currentGroup.Children = append(currentGroup.Children, pieceObj(pi, currentGroup.ID, timings.ToPartDelayMS))
	}
	objs = append(objs, currentGroup)

	if next := g.nextGroup(in, currentGroup); next != nil {
		objs = append(objs, *next)
	}

	return objs
}

// currentGroup builds the group carrying the on-air part. Its start is the
// reported playback time when one exists; until then the gateway resolves
// it as "now".
func (g *Generator) currentGroup(in GenerateInput, timings PartTimings) Obj {
	cur := in.CurrentPart

	trigger := Now()
	if cur.Timings.StartedPlayback != nil {
		trigger = Absolute(cur.Timings.StartedPlayback.UnixMilli())
	}

	grp := Obj{
		ID:      GroupID(cur.ID),
		Trigger: trigger,
		IsGroup: true,
		Content: map[string]any{
			"part_instance_id": cur.ID,
			"part_id":          cur.PartID,
			"to_part_delay_ms": timings.ToPartDelayMS,
		},
	}
	if timings.TransitionUsed {
		grp.Content["in_transition_start_ms"] = timings.InTransitionStartMS
	}

	// A concrete end is only knowable from the expected duration. It is
	// required for autoNext pre-placement; otherwise the group runs until
	// the next take replaces it.
	if cur.Part.AutoNext && cur.Part.ExpectedDurationMS != nil {
		d := int64(*cur.Part.ExpectedDurationMS)
		grp.DurationMS = &d
	}
	return grp
}

// previousGroup closes out the previous part. Its duration runs from its
// own start to the current part's start plus whatever keepalive the switch
// demands. When the current start is not yet concrete the group stays
// open-ended and the next regeneration closes it.
func (g *Generator) previousGroup(in GenerateInput, timings PartTimings, currentStart *int64) *Obj {
	prev := in.PreviousPart
	if prev == nil || prev.Timings.StartedPlayback == nil {
		return nil
	}
	startMS := prev.Timings.StartedPlayback.UnixMilli()

	grp := Obj{
		ID:      GroupID(prev.ID),
		Trigger: Absolute(startMS),
		IsGroup: true,
		Content: map[string]any{
			"part_instance_id": prev.ID,
			"part_id":          prev.PartID,
		},
	}

	if currentStart != nil {
		keepalive := timings.FromPartRemainingMS
		if prev.Part.AutoNext && prev.Part.AutoNextOverlapMS > keepalive {
			keepalive = prev.Part.AutoNextOverlapMS
		}
		d := (*currentStart - startMS) + int64(keepalive)
		if d < 0 {
			d = 0
		}
		grp.DurationMS = &d
	}
	return &grp
}

// nextGroup pre-places the next part when the current part auto-advances,
// anchored to the current group's end minus the overlap so the gateway
// switches without a round trip.
func (g *Generator) nextGroup(in GenerateInput, currentGroup Obj) *Obj {
	cur := in.CurrentPart
	if !cur.Part.AutoNext || in.NextPart == nil {
		return nil
	}
	if currentGroup.DurationMS == nil {
		g.log.Debug("autonext part has no expected duration, skipping pre-placement",
			"part_instance_id", cur.ID)
		return nil
	}

	next := in.NextPart
	timings := CalculatePartTimings(&cur.Part, &next.Part, in.HoldActive)

	grp := Obj{
		ID:      GroupID(next.ID),
		Trigger: RelativeTo(currentGroup.ID, AnchorEnd, -int64(cur.Part.AutoNextOverlapMS)),
		IsGroup: true,
		Content: map[string]any{
			"part_instance_id": next.ID,
			"part_id":          next.PartID,
			"to_part_delay_ms": timings.ToPartDelayMS,
		},
	}
	for i := range in.NextPieces {
		pi := &in.NextPieces[i]
		if !playablePiece(pi) || pi.InfiniteFromPrevious {
			continue
		}
		grp.Children = append(grp.Children, pieceObj(pi, grp.ID, timings.ToPartDelayMS))
	}
	return &grp
}

// infiniteGroups places continuation pieces in their own groups keyed to
// the original start time. Returns the ids of the piece instances consumed.
func (g *Generator) infiniteGroups(pieces []rundown.PieceInstance) ([]Obj, map[string]bool) {
	var objs []Obj
	consumed := make(map[string]bool)

	for i := range pieces {
		pi := &pieces[i]
		if !pi.InfiniteFromPrevious || pi.InfiniteInstanceID == nil || !playablePiece(pi) {
			continue
		}
		consumed[pi.ID] = true

		trigger := Now()
		if pi.StartedPlayback != nil {
			trigger = Absolute(pi.StartedPlayback.UnixMilli())
		}
		grp := Obj{
			ID:      infiniteGroupID(*pi.InfiniteInstanceID),
			Trigger: trigger,
			IsGroup: true,
			Content: map[string]any{
				"infinite_instance_id": *pi.InfiniteInstanceID,
			},
			Children: []Obj{pieceObj(pi, infiniteGroupID(*pi.InfiniteInstanceID), 0)},
		}
		objs = append(objs, grp)
	}
	return objs, consumed
}

func pieceObj(pi *rundown.PieceInstance, groupID string, delayMS int) Obj {
	obj := Obj{
		ID:      pieceObjectID(pi.ID),
		Layer:   pi.Piece.Layer,
		Trigger: RelativeTo(groupID, AnchorStart, int64(delayMS+pi.Piece.EnableStartMS)),
		Content: map[string]any{
			"piece_instance_id": pi.ID,
			"piece_id":          pi.PieceID,
		},
	}
	for k, v := range pi.Piece.Content {
		obj.Content[k] = v
	}
	if pi.Piece.DurationMS != nil {
		d := int64(*pi.Piece.DurationMS)
		obj.DurationMS = &d
	}
	return obj
}

// stateObj advertises the playlist's part pointers on the timeline. A
// repointed next produces a new content hash, so pointer-only changes
// still reach the gateways, and resolvers can preload the nexted part
// without a second feed.
func stateObj(in GenerateInput) Obj {
	content := map[string]any{
		"playlist_id": in.PlaylistID,
	}
	if in.CurrentPart != nil {
		content["current_part_instance_id"] = in.CurrentPart.ID
	}
	if in.NextPart != nil {
		content["next_part_instance_id"] = in.NextPart.ID
	}
	if in.PreviousPart != nil {
		content["previous_part_instance_id"] = in.PreviousPart.ID
	}
	return Obj{
		ID:      "playout_state",
		Layer:   "state",
		Trigger: Absolute(0),
		Content: content,
	}
}

func playablePiece(pi *rundown.PieceInstance) bool {
	return !pi.Reset && pi.StoppedPlayback == nil
}

func concreteStart(t Trigger) *int64 {
	if t.Type != TriggerAbsolute {
		return nil
	}
	v := t.TimeMS
	return &v
}
