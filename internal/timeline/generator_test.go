package timeline

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/onair-core/internal/rundown"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mkInstance(id string, part rundown.Part, started *time.Time) *rundown.PartInstance {
	return &rundown.PartInstance{
		ID:        id,
		PartID:    part.ID,
		RundownID: "rd1",
		Part:      part,
		Timings:   rundown.PlaybackTimings{StartedPlayback: started},
	}
}

func mkPieceInstance(id, partInstanceID, layer string) rundown.PieceInstance {
	return rundown.PieceInstance{
		ID:             id,
		PartInstanceID: partInstanceID,
		PieceID:        "pc_" + id,
		RundownID:      "rd1",
		Piece:          rundown.Piece{ID: "pc_" + id, Layer: layer},
	}
}

func findObj(t *testing.T, tl *Timeline, id string) *Obj {
	t.Helper()
	for i := range tl.Objects {
		if tl.Objects[i].ID == id {
			return &tl.Objects[i]
		}
	}
	t.Fatalf("object %s not in timeline", id)
	return nil
}

func TestGenerate_BaselineAlwaysIncluded(t *testing.T) {
	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{
		StudioID: "studio0",
		Baseline: []Obj{{ID: "backdrop", Layer: "bg", Trigger: Absolute(0)}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tl.Objects) != 1 || tl.Objects[0].ID != "backdrop" {
		t.Fatalf("baseline object missing: %+v", tl.Objects)
	}
	if tl.Generation != 1 {
		t.Errorf("Generation = %d, want 1", tl.Generation)
	}
}

func TestGenerate_CurrentGroupUsesReportedStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	cur := mkInstance("pi1", rundown.Part{ID: "p1"}, &start)

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{StudioID: "studio0", CurrentPart: cur})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	grp := findObj(t, tl, GroupID("pi1"))
	if grp.Trigger.Type != TriggerAbsolute || grp.Trigger.TimeMS != start.UnixMilli() {
		t.Errorf("current group trigger = %+v, want absolute at %d", grp.Trigger, start.UnixMilli())
	}
}

func TestGenerate_CurrentGroupNowBeforeStartReport(t *testing.T) {
	cur := mkInstance("pi1", rundown.Part{ID: "p1"}, nil)

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{StudioID: "studio0", CurrentPart: cur})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	grp := findObj(t, tl, GroupID("pi1"))
	if grp.Trigger.Type != TriggerNow {
		t.Errorf("current group trigger = %+v, want now", grp.Trigger)
	}
}

func TestGenerate_PiecesRelativeToGroup(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	cur := mkInstance("pi1", rundown.Part{ID: "p1", PrerollMS: 200}, &start)
	piece := mkPieceInstance("a", "pi1", "video")
	piece.Piece.EnableStartMS = 100

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{
		StudioID:      "studio0",
		CurrentPart:   cur,
		CurrentPieces: []rundown.PieceInstance{piece},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	obj := findObj(t, tl, pieceObjectID("a"))
	if obj.GroupID != GroupID("pi1") {
		t.Errorf("piece GroupID = %s, want %s", obj.GroupID, GroupID("pi1"))
	}
	if obj.Trigger.Type != TriggerRelative || obj.Trigger.ObjectID != GroupID("pi1") {
		t.Fatalf("piece trigger = %+v, want relative to group", obj.Trigger)
	}
	// First take: delay is the part preroll, plus the piece's own offset.
	if obj.Trigger.OffsetMS != 300 {
		t.Errorf("piece offset = %d, want 300", obj.Trigger.OffsetMS)
	}
}

func TestGenerate_StoppedAndResetPiecesExcluded(t *testing.T) {
	cur := mkInstance("pi1", rundown.Part{ID: "p1"}, nil)
	stopped := mkPieceInstance("a", "pi1", "video")
	ts := time.Now()
	stopped.StoppedPlayback = &ts
	reset := mkPieceInstance("b", "pi1", "gfx")
	reset.Reset = true

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{
		StudioID:      "studio0",
		CurrentPart:   cur,
		CurrentPieces: []rundown.PieceInstance{stopped, reset},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tl.Objects) != 1 {
		t.Fatalf("got %d objects, want only the part group", len(tl.Objects))
	}
}

func TestGenerate_AutoNextOverlap(t *testing.T) {
	// Taking p1 -> p2 with a 500ms overlap: the previous group's duration
	// must extend exactly 500ms past the current group's start, and with
	// no transition the current group starts at its reported playback
	// time with zero added delay.
	prevStart := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	curStart := prevStart.Add(30 * time.Second)

	p1 := rundown.Part{ID: "p1", AutoNext: true, AutoNextOverlapMS: 500}
	p2 := rundown.Part{ID: "p2"}

	prev := mkInstance("pi1", p1, &prevStart)
	cur := mkInstance("pi2", p2, &curStart)

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{
		StudioID:     "studio0",
		CurrentPart:  cur,
		PreviousPart: prev,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	curGrp := findObj(t, tl, GroupID("pi2"))
	if curGrp.Trigger.TimeMS != curStart.UnixMilli() {
		t.Errorf("current group start = %d, want %d", curGrp.Trigger.TimeMS, curStart.UnixMilli())
	}

	prevGrp := findObj(t, tl, GroupID("pi1"))
	if prevGrp.DurationMS == nil {
		t.Fatal("previous group must be closed once the current start is concrete")
	}
	want := curStart.Sub(prevStart).Milliseconds() + 500
	if *prevGrp.DurationMS != want {
		t.Errorf("previous group duration = %d, want %d", *prevGrp.DurationMS, want)
	}
}

func TestGenerate_AutoNextPrePlacesNextGroup(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	expected := 20000
	p1 := rundown.Part{ID: "p1", AutoNext: true, AutoNextOverlapMS: 300, ExpectedDurationMS: &expected}
	p2 := rundown.Part{ID: "p2", PrerollMS: 150}

	cur := mkInstance("pi1", p1, &start)
	next := mkInstance("pi2", p2, nil)
	nextPiece := mkPieceInstance("np", "pi2", "video")

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{
		StudioID:    "studio0",
		CurrentPart: cur,
		NextPart:    next,
		NextPieces:  []rundown.PieceInstance{nextPiece},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	curGrp := findObj(t, tl, GroupID("pi1"))
	if curGrp.DurationMS == nil || *curGrp.DurationMS != int64(expected) {
		t.Fatalf("current group duration = %v, want %d", curGrp.DurationMS, expected)
	}

	nextGrp := findObj(t, tl, GroupID("pi2"))
	trig := nextGrp.Trigger
	if trig.Type != TriggerRelative || trig.ObjectID != GroupID("pi1") || trig.Anchor != AnchorEnd {
		t.Fatalf("next group trigger = %+v, want relative to current group end", trig)
	}
	if trig.OffsetMS != -300 {
		t.Errorf("next group offset = %d, want -300", trig.OffsetMS)
	}

	np := findObj(t, tl, pieceObjectID("np"))
	if np.GroupID != GroupID("pi2") {
		t.Errorf("next piece GroupID = %s, want %s", np.GroupID, GroupID("pi2"))
	}
}

func TestGenerate_AutoNextWithoutExpectedDurationSkipsPrePlacement(t *testing.T) {
	cur := mkInstance("pi1", rundown.Part{ID: "p1", AutoNext: true}, nil)
	next := mkInstance("pi2", rundown.Part{ID: "p2"}, nil)

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{StudioID: "studio0", CurrentPart: cur, NextPart: next})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := range tl.Objects {
		if tl.Objects[i].ID == GroupID("pi2") {
			t.Fatal("next group must not be pre-placed without a concrete end")
		}
	}
}

func TestGenerate_InfiniteContinuationKeepsOriginalStart(t *testing.T) {
	originalStart := time.Date(2026, 3, 1, 17, 55, 0, 0, time.UTC)
	curStart := originalStart.Add(5 * time.Minute)

	cur := mkInstance("pi2", rundown.Part{ID: "p2"}, &curStart)

	infID := "inf-abc"
	cont := mkPieceInstance("c", "pi2", "gfx")
	cont.InfiniteInstanceID = &infID
	cont.InfiniteFromPrevious = true
	cont.StartedPlayback = &originalStart

	g := NewGenerator(nil, nil)
	tl, err := g.Generate(GenerateInput{
		StudioID:      "studio0",
		CurrentPart:   cur,
		CurrentPieces: []rundown.PieceInstance{cont},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	grp := findObj(t, tl, infiniteGroupID(infID))
	if grp.Trigger.Type != TriggerAbsolute || grp.Trigger.TimeMS != originalStart.UnixMilli() {
		t.Errorf("infinite group trigger = %+v, want absolute at original start", grp.Trigger)
	}

	obj := findObj(t, tl, pieceObjectID("c"))
	if obj.GroupID != infiniteGroupID(infID) {
		t.Errorf("continuation piece GroupID = %s, want %s", obj.GroupID, infiniteGroupID(infID))
	}
}

func TestGenerate_HookErrorFallsBack(t *testing.T) {
	hook := func(objs []Obj) ([]Obj, error) {
		return nil, errors.New("blueprint exploded")
	}
	g := NewGenerator(hook, nil)
	tl, err := g.Generate(GenerateInput{
		StudioID: "studio0",
		Baseline: []Obj{{ID: "backdrop", Trigger: Absolute(0)}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tl.Objects) != 1 || tl.Objects[0].ID != "backdrop" {
		t.Fatalf("pre-hook objects not preserved: %+v", tl.Objects)
	}
}

func TestGenerate_HookCanAddObjects(t *testing.T) {
	hook := func(objs []Obj) ([]Obj, error) {
		return append(objs, Obj{ID: "extra", Layer: "gfx", Trigger: Absolute(100)}), nil
	}
	g := NewGenerator(hook, nil)
	tl, err := g.Generate(GenerateInput{StudioID: "studio0"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	findObj(t, tl, "extra")
}

func TestGenerate_StableHashOnRepeat(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	in := GenerateInput{
		StudioID:    "studio0",
		Baseline:    []Obj{{ID: "backdrop", Trigger: Absolute(0)}},
		CurrentPart: mkInstance("pi1", rundown.Part{ID: "p1"}, &start),
	}

	g := NewGenerator(nil, nil)
	first, err := g.Generate(in)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	in.Previous = first
	second, err := g.Generate(in)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if first.Hash != second.Hash {
		t.Errorf("regeneration with unchanged state changed the hash: %s vs %s", first.Hash, second.Hash)
	}
	if second.Generation != first.Generation+1 {
		t.Errorf("Generation = %d, want %d", second.Generation, first.Generation+1)
	}
}

func TestGenerate_NowContinuity(t *testing.T) {
	// First generation in multi-gateway mode concretises the "now"; the
	// second must carry that exact value forward, not re-resolve.
	cur := mkInstance("pi1", rundown.Part{ID: "p1"}, nil)

	g := NewGenerator(nil, nil)
	t0 := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	g.now = fixedClock(t0)

	first, err := g.Generate(GenerateInput{StudioID: "studio0", CurrentPart: cur, MultiGateway: true})
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	grp := findObj(t, first, GroupID("pi1"))
	if grp.Trigger.Type != TriggerAbsolute || !grp.Trigger.SetFromNow {
		t.Fatalf("first generation trigger = %+v, want concretised now", grp.Trigger)
	}
	if grp.Trigger.TimeMS != t0.UnixMilli() {
		t.Errorf("concretised time = %d, want %d", grp.Trigger.TimeMS, t0.UnixMilli())
	}

	// The clock has moved on; the carried value must not.
	g.now = fixedClock(t0.Add(10 * time.Second))
	second, err := g.Generate(GenerateInput{
		StudioID: "studio0", CurrentPart: cur, MultiGateway: true, Previous: first,
	})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	grp2 := findObj(t, second, GroupID("pi1"))
	if grp2.Trigger.TimeMS != t0.UnixMilli() || !grp2.Trigger.SetFromNow {
		t.Errorf("carried trigger = %+v, want original concretised value", grp2.Trigger)
	}
	if first.Hash != second.Hash {
		t.Errorf("now continuity broken: hash %s vs %s", first.Hash, second.Hash)
	}
}

func TestGenerate_ValidationFailureSurfaced(t *testing.T) {
	g := NewGenerator(nil, nil)
	_, err := g.Generate(GenerateInput{
		StudioID: "studio0",
		Baseline: []Obj{{ID: "x", Trigger: RelativeTo("missing", AnchorStart, 0)}},
	})
	if !errors.Is(err, ErrDanglingTrigger) {
		t.Fatalf("err = %v, want ErrDanglingTrigger", err)
	}
}

func TestGenerate_StateObjectTracksPointers(t *testing.T) {
	// Repointing next changes nothing in the part groups when the current
	// part does not auto-advance, but the hash must still move so the
	// publisher pushes the new pointer out.
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	cur := mkInstance("pi1", rundown.Part{ID: "p1"}, &start)

	g := NewGenerator(nil, nil)
	first, err := g.Generate(GenerateInput{
		StudioID:    "studio0",
		PlaylistID:  "pl1",
		CurrentPart: cur,
		NextPart:    mkInstance("pi2", rundown.Part{ID: "p2"}, nil),
	})
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	state := findObj(t, first, "playout_state")
	if state.Content["playlist_id"] != "pl1" {
		t.Errorf("playlist_id = %v, want pl1", state.Content["playlist_id"])
	}
	if state.Content["current_part_instance_id"] != "pi1" {
		t.Errorf("current pointer = %v, want pi1", state.Content["current_part_instance_id"])
	}
	if state.Content["next_part_instance_id"] != "pi2" {
		t.Errorf("next pointer = %v, want pi2", state.Content["next_part_instance_id"])
	}

	second, err := g.Generate(GenerateInput{
		StudioID:    "studio0",
		PlaylistID:  "pl1",
		Previous:    first,
		CurrentPart: cur,
		NextPart:    mkInstance("pi3", rundown.Part{ID: "p3"}, nil),
	})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if first.Hash == second.Hash {
		t.Error("repointed next did not change the content hash")
	}
}
