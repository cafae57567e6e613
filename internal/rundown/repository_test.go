package rundown

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/onair-core/internal/infrastructure/database"
	_ "github.com/nerrad567/onair-core/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     false,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func testPlaylist(id string) Playlist {
	return Playlist{
		ID:        id,
		StudioID:  "studio0",
		Name:      "Evening News",
		HoldState: HoldNone,
	}
}

func TestPlaylistRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	activation := "act-1"
	p := testPlaylist("pl1")
	p.ActivationID = &activation
	p.Rehearsal = true
	p.HoldState = HoldActive
	p.CurrentPart = &PartRef{PartInstanceID: "pi-cur", RundownID: "rd1"}
	p.NextPart = &PartRef{PartInstanceID: "pi-next", RundownID: "rd1", ManuallySelected: true}
	p.PreviousPart = &PartRef{PartInstanceID: "pi-prev", RundownID: "rd1"}

	if err := repo.UpsertPlaylists(ctx, []Playlist{p}); err != nil {
		t.Fatalf("upserting playlist: %v", err)
	}

	got, err := repo.GetPlaylist(ctx, "pl1")
	if err != nil {
		t.Fatalf("getting playlist: %v", err)
	}

	if got.Name != "Evening News" {
		t.Errorf("name = %q, want %q", got.Name, "Evening News")
	}
	if got.ActivationID == nil || *got.ActivationID != "act-1" {
		t.Errorf("activation id = %v, want act-1", got.ActivationID)
	}
	if !got.Rehearsal {
		t.Error("rehearsal flag lost")
	}
	if got.HoldState != HoldActive {
		t.Errorf("hold state = %q, want %q", got.HoldState, HoldActive)
	}
	if got.CurrentPart == nil || got.CurrentPart.PartInstanceID != "pi-cur" {
		t.Errorf("current part = %v, want pi-cur", got.CurrentPart)
	}
	if got.NextPart == nil || !got.NextPart.ManuallySelected {
		t.Errorf("next part = %v, want manually selected", got.NextPart)
	}
	if got.PreviousPart == nil || got.PreviousPart.PartInstanceID != "pi-prev" {
		t.Errorf("previous part = %v, want pi-prev", got.PreviousPart)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not populated")
	}
}

func TestGetPlaylist_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetPlaylist(context.Background(), "missing")
	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("err = %v, want ErrPlaylistNotFound", err)
	}
}

func TestListPlaylists_FiltersByStudio(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	a := testPlaylist("pl-a")
	b := testPlaylist("pl-b")
	b.StudioID = "studio1"

	if err := repo.UpsertPlaylists(ctx, []Playlist{a, b}); err != nil {
		t.Fatalf("upserting playlists: %v", err)
	}

	got, err := repo.ListPlaylists(ctx, "studio0")
	if err != nil {
		t.Fatalf("listing playlists: %v", err)
	}
	if len(got) != 1 || got[0].ID != "pl-a" {
		t.Errorf("got %d playlists, want only pl-a", len(got))
	}
}

func TestDeletePlaylists(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertPlaylists(ctx, []Playlist{testPlaylist("pl1")}); err != nil {
		t.Fatalf("upserting playlist: %v", err)
	}
	if err := repo.DeletePlaylists(ctx, []string{"pl1"}); err != nil {
		t.Fatalf("deleting playlist: %v", err)
	}
	if _, err := repo.GetPlaylist(ctx, "pl1"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("err after delete = %v, want ErrPlaylistNotFound", err)
	}
}

func seedRundown(t *testing.T, repo *SQLiteRepository, playlistID, rundownID string) {
	t.Helper()
	ctx := context.Background()

	if err := repo.UpsertPlaylists(ctx, []Playlist{testPlaylist(playlistID)}); err != nil {
		t.Fatalf("seeding playlist: %v", err)
	}
	rd := Rundown{
		ID:                 rundownID,
		PlaylistID:         playlistID,
		StudioID:           "studio0",
		ExternalID:         "ext-" + rundownID,
		Name:               "Show " + rundownID,
		ShowStyleBaseID:    "style-base",
		ShowStyleVariantID: "style-variant",
		Rank:               1,
	}
	if err := repo.UpsertRundowns(ctx, []Rundown{rd}); err != nil {
		t.Fatalf("seeding rundown: %v", err)
	}
}

func TestRundownRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	got, err := repo.GetRundown(ctx, "rd1")
	if err != nil {
		t.Fatalf("getting rundown: %v", err)
	}
	if got.ExternalID != "ext-rd1" || got.ShowStyleBaseID != "style-base" {
		t.Errorf("rundown fields lost: %+v", got)
	}

	byExt, err := repo.GetRundownByExternal(ctx, "studio0", "ext-rd1")
	if err != nil {
		t.Fatalf("getting rundown by external id: %v", err)
	}
	if byExt.ID != "rd1" {
		t.Errorf("external lookup returned %q, want rd1", byExt.ID)
	}

	if _, err := repo.GetRundownByExternal(ctx, "other-studio", "ext-rd1"); !errors.Is(err, ErrRundownNotFound) {
		t.Errorf("cross-studio lookup err = %v, want ErrRundownNotFound", err)
	}
}

func TestListRundownsByPlaylist_RankOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	second := Rundown{
		ID: "rd2", PlaylistID: "pl1", StudioID: "studio0", ExternalID: "ext-rd2",
		Name: "Earlier Show", ShowStyleBaseID: "style-base", ShowStyleVariantID: "style-variant",
		Rank: 0.5,
	}
	if err := repo.UpsertRundowns(ctx, []Rundown{second}); err != nil {
		t.Fatalf("upserting rundown: %v", err)
	}

	got, err := repo.ListRundownsByPlaylist(ctx, "pl1")
	if err != nil {
		t.Fatalf("listing rundowns: %v", err)
	}
	if len(got) != 2 || got[0].ID != "rd2" || got[1].ID != "rd1" {
		t.Errorf("rank ordering wrong: %+v", got)
	}
}

func TestSegmentPartPieceRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	seg := Segment{ID: "seg1", RundownID: "rd1", ExternalID: "ext-seg", Name: "Headlines", Rank: 1, Orphaned: OrphanedDeleted}
	if err := repo.UpsertSegments(ctx, []Segment{seg}); err != nil {
		t.Fatalf("upserting segment: %v", err)
	}

	dur := 30000
	part := Part{
		ID: "part1", SegmentID: "seg1", RundownID: "rd1", ExternalID: "ext-part",
		Title: "Opening", Rank: 1, Floated: true,
		ExpectedDurationMS: &dur, PrerollMS: 200, OutTransitionMS: 400,
		InTransitionPrerollMS: 100, InTransitionKeepaliveMS: 150, InTransitionDurationMS: 500,
		DisableOutTransition: true, AutoNext: true, AutoNextOverlapMS: 250,
	}
	if err := repo.UpsertParts(ctx, []Part{part}); err != nil {
		t.Fatalf("upserting part: %v", err)
	}

	pieceDur := 5000
	piece := Piece{
		ID: "piece1", PartID: "part1", RundownID: "rd1", Name: "Bug",
		Layer: "gfx0", EnableStartMS: 1000, DurationMS: &pieceDur,
		Lifespan: LifespanSegment,
		Content:  map[string]any{"file": "bug.png", "loop": true},
	}
	if err := repo.UpsertPieces(ctx, []Piece{piece}); err != nil {
		t.Fatalf("upserting piece: %v", err)
	}

	segs, err := repo.ListSegments(ctx, "rd1")
	if err != nil {
		t.Fatalf("listing segments: %v", err)
	}
	if len(segs) != 1 || segs[0].Orphaned != OrphanedDeleted {
		t.Errorf("segments = %+v, want one orphaned-deleted", segs)
	}

	parts, err := repo.ListParts(ctx, "rd1")
	if err != nil {
		t.Fatalf("listing parts: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	got := parts[0]
	if !got.Floated || !got.DisableOutTransition || !got.AutoNext {
		t.Errorf("boolean fields lost: %+v", got)
	}
	if got.ExpectedDurationMS == nil || *got.ExpectedDurationMS != 30000 {
		t.Errorf("expected duration = %v, want 30000", got.ExpectedDurationMS)
	}
	if got.InTransitionKeepaliveMS != 150 || got.AutoNextOverlapMS != 250 {
		t.Errorf("transition timing lost: %+v", got)
	}

	pieces, err := repo.ListPieces(ctx, "rd1")
	if err != nil {
		t.Fatalf("listing pieces: %v", err)
	}
	if len(pieces) != 1 {
		t.Fatalf("got %d pieces, want 1", len(pieces))
	}
	gp := pieces[0]
	if gp.Lifespan != LifespanSegment || gp.Layer != "gfx0" {
		t.Errorf("piece fields lost: %+v", gp)
	}
	if gp.Content["file"] != "bug.png" || gp.Content["loop"] != true {
		t.Errorf("piece content lost: %+v", gp.Content)
	}
}

func TestDeleteRundowns_CascadesContent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	seg := Segment{ID: "seg1", RundownID: "rd1", ExternalID: "ext-seg", Name: "Headlines"}
	if err := repo.UpsertSegments(ctx, []Segment{seg}); err != nil {
		t.Fatalf("upserting segment: %v", err)
	}

	if err := repo.DeleteRundowns(ctx, []string{"rd1"}); err != nil {
		t.Fatalf("deleting rundown: %v", err)
	}

	segs, err := repo.ListSegments(ctx, "rd1")
	if err != nil {
		t.Fatalf("listing segments: %v", err)
	}
	if len(segs) != 0 {
		t.Errorf("segments survived rundown delete: %+v", segs)
	}
}

func TestPartInstanceRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	taken := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	started := taken.Add(120 * time.Millisecond)

	pi := PartInstance{
		ID:           "pi1",
		PartID:       "part1",
		SegmentID:    "seg1",
		RundownID:    "rd1",
		ActivationID: "act-1",
		TakeCount:    3,
		Rehearsal:    true,
		Orphaned:     OrphanedAdLib,
		Timings: PlaybackTimings{
			TakenAt:         &taken,
			StartedPlayback: &started,
		},
		Notes: []PartNote{{Level: "warning", Message: "story dropped upstream"}},
		Part:  Part{ID: "part1", SegmentID: "seg1", RundownID: "rd1", Title: "Opening", PrerollMS: 200},
	}

	if err := repo.UpsertPartInstances(ctx, []PartInstance{pi}); err != nil {
		t.Fatalf("upserting part instance: %v", err)
	}

	got, err := repo.ListPartInstances(ctx, []string{"rd1"})
	if err != nil {
		t.Fatalf("listing part instances: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d part instances, want 1", len(got))
	}
	gi := got[0]
	if gi.TakeCount != 3 || !gi.Rehearsal || gi.Orphaned != OrphanedAdLib {
		t.Errorf("instance fields lost: %+v", gi)
	}
	if gi.Timings.TakenAt == nil || !gi.Timings.TakenAt.Equal(taken) {
		t.Errorf("taken_at = %v, want %v", gi.Timings.TakenAt, taken)
	}
	if gi.Timings.StartedPlayback == nil || !gi.Timings.StartedPlayback.Equal(started) {
		t.Errorf("started_playback = %v, want %v", gi.Timings.StartedPlayback, started)
	}
	if gi.Timings.StoppedPlayback != nil {
		t.Errorf("stopped_playback = %v, want nil", gi.Timings.StoppedPlayback)
	}
	if len(gi.Notes) != 1 || gi.Notes[0].Message != "story dropped upstream" {
		t.Errorf("notes lost: %+v", gi.Notes)
	}
	// The snapshot must survive intact even though no parts row exists.
	if gi.Part.Title != "Opening" || gi.Part.PrerollMS != 200 {
		t.Errorf("part snapshot lost: %+v", gi.Part)
	}
}

func TestPieceInstanceRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	parent := PartInstance{
		ID: "pi1", PartID: "part1", SegmentID: "seg1", RundownID: "rd1",
		ActivationID: "act-1", TakeCount: 1,
		Part: Part{ID: "part1"},
	}
	if err := repo.UpsertPartInstances(ctx, []PartInstance{parent}); err != nil {
		t.Fatalf("upserting part instance: %v", err)
	}

	infinite := "infinite-1"
	pc := PieceInstance{
		ID:                   "pci1",
		PartInstanceID:       "pi1",
		PieceID:              "piece1",
		RundownID:            "rd1",
		InfiniteInstanceID:   &infinite,
		InfiniteFromPrevious: true,
		Piece: Piece{
			ID: "piece1", PartID: "part1", RundownID: "rd1",
			Name: "Lower Third", Layer: "gfx1", Lifespan: LifespanRundown,
			Content: map[string]any{"text": "Breaking"},
		},
	}
	if err := repo.UpsertPieceInstances(ctx, []PieceInstance{pc}); err != nil {
		t.Fatalf("upserting piece instance: %v", err)
	}

	got, err := repo.ListPieceInstances(ctx, []string{"pi1"})
	if err != nil {
		t.Fatalf("listing piece instances: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d piece instances, want 1", len(got))
	}
	gi := got[0]
	if gi.InfiniteInstanceID == nil || *gi.InfiniteInstanceID != "infinite-1" {
		t.Errorf("infinite instance id = %v, want infinite-1", gi.InfiniteInstanceID)
	}
	if !gi.InfiniteFromPrevious {
		t.Error("infinite-from-previous flag lost")
	}
	if gi.Piece.Lifespan != LifespanRundown || gi.Piece.Content["text"] != "Breaking" {
		t.Errorf("piece snapshot lost: %+v", gi.Piece)
	}
}

func TestDeletePartInstances_CascadesPieceInstances(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	parent := PartInstance{
		ID: "pi1", PartID: "part1", SegmentID: "seg1", RundownID: "rd1",
		ActivationID: "act-1", TakeCount: 1, Part: Part{ID: "part1"},
	}
	if err := repo.UpsertPartInstances(ctx, []PartInstance{parent}); err != nil {
		t.Fatalf("upserting part instance: %v", err)
	}
	child := PieceInstance{
		ID: "pci1", PartInstanceID: "pi1", PieceID: "piece1", RundownID: "rd1",
		Piece: Piece{ID: "piece1"},
	}
	if err := repo.UpsertPieceInstances(ctx, []PieceInstance{child}); err != nil {
		t.Fatalf("upserting piece instance: %v", err)
	}

	if err := repo.DeletePartInstances(ctx, []string{"pi1"}); err != nil {
		t.Fatalf("deleting part instance: %v", err)
	}

	got, err := repo.ListPieceInstances(ctx, []string{"pi1"})
	if err != nil {
		t.Fatalf("listing piece instances: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("piece instances survived part instance delete: %+v", got)
	}
}

func TestPlayoutEvents(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertPlaylists(ctx, []Playlist{testPlaylist("pl1")}); err != nil {
		t.Fatalf("upserting playlist: %v", err)
	}

	partInstance := "pi1"
	for i, eventType := range []string{"activate", "take", "deactivate"} {
		e := PlayoutEvent{
			ID:         GenerateID(),
			PlaylistID: "pl1",
			EventType:  eventType,
			CreatedAt:  time.Date(2026, 3, 1, 18, i, 0, 0, time.UTC),
		}
		if eventType == "take" {
			e.PartInstanceID = &partInstance
			e.Details = map[string]any{"take_count": float64(1)}
		}
		if err := repo.CreateEvent(ctx, &e); err != nil {
			t.Fatalf("creating event %q: %v", eventType, err)
		}
	}

	events, err := repo.ListEvents(ctx, "pl1", 10)
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// Newest first.
	if events[0].EventType != "deactivate" || events[2].EventType != "activate" {
		t.Errorf("event ordering wrong: %v, %v, %v", events[0].EventType, events[1].EventType, events[2].EventType)
	}
	if events[1].PartInstanceID == nil || *events[1].PartInstanceID != "pi1" {
		t.Errorf("part instance id lost on take event: %v", events[1].PartInstanceID)
	}
	if events[1].Details["take_count"] != float64(1) {
		t.Errorf("details lost: %+v", events[1].Details)
	}

	limited, err := repo.ListEvents(ctx, "pl1", 1)
	if err != nil {
		t.Fatalf("listing limited events: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d events", len(limited))
	}
}

func TestUpsertIsIdempotentReplace(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	rd, err := repo.GetRundown(ctx, "rd1")
	if err != nil {
		t.Fatalf("getting rundown: %v", err)
	}

	rd.Name = "Renamed Show"
	if err := repo.UpsertRundowns(ctx, []Rundown{*rd}); err != nil {
		t.Fatalf("re-upserting rundown: %v", err)
	}

	got, err := repo.GetRundown(ctx, "rd1")
	if err != nil {
		t.Fatalf("getting rundown after rename: %v", err)
	}
	if got.Name != "Renamed Show" {
		t.Errorf("name = %q, want Renamed Show", got.Name)
	}

	all, err := repo.ListRundownsByPlaylist(ctx, "pl1")
	if err != nil {
		t.Fatalf("listing rundowns: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("replace created duplicate rows: %d", len(all))
	}
}

// Re-upserting a parent row must update in place. REPLACE semantics would
// delete the old row first and the foreign-key cascades would silently wipe
// every child table underneath it.
func TestUpsertPreservesCascadedChildren(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	seg := Segment{ID: "seg1", RundownID: "rd1", ExternalID: "ext-seg", Name: "Headlines", Rank: 1}
	if err := repo.UpsertSegments(ctx, []Segment{seg}); err != nil {
		t.Fatalf("upserting segment: %v", err)
	}
	part := Part{ID: "part1", SegmentID: "seg1", RundownID: "rd1", ExternalID: "ext-part", Title: "Opening", Rank: 1}
	if err := repo.UpsertParts(ctx, []Part{part}); err != nil {
		t.Fatalf("upserting part: %v", err)
	}
	piece := Piece{ID: "piece1", PartID: "part1", RundownID: "rd1", Name: "Bug", Layer: "gfx0", Lifespan: LifespanPart}
	if err := repo.UpsertPieces(ctx, []Piece{piece}); err != nil {
		t.Fatalf("upserting piece: %v", err)
	}

	// Touch every parent level again, the way activation and ingest
	// header refreshes do.
	pl, err := repo.GetPlaylist(ctx, "pl1")
	if err != nil {
		t.Fatalf("getting playlist: %v", err)
	}
	act := "act-1"
	pl.ActivationID = &act
	if err := repo.UpsertPlaylists(ctx, []Playlist{*pl}); err != nil {
		t.Fatalf("re-upserting playlist: %v", err)
	}
	rd, err := repo.GetRundown(ctx, "rd1")
	if err != nil {
		t.Fatalf("getting rundown: %v", err)
	}
	rd.Name = "Refreshed"
	if err := repo.UpsertRundowns(ctx, []Rundown{*rd}); err != nil {
		t.Fatalf("re-upserting rundown: %v", err)
	}
	seg.Name = "Top Stories"
	if err := repo.UpsertSegments(ctx, []Segment{seg}); err != nil {
		t.Fatalf("re-upserting segment: %v", err)
	}
	part.Title = "Cold Open"
	if err := repo.UpsertParts(ctx, []Part{part}); err != nil {
		t.Fatalf("re-upserting part: %v", err)
	}

	rds, err := repo.ListRundownsByPlaylist(ctx, "pl1")
	if err != nil {
		t.Fatalf("listing rundowns: %v", err)
	}
	if len(rds) != 1 {
		t.Fatalf("rundowns after playlist refresh = %d, want 1", len(rds))
	}
	segs, err := repo.ListSegments(ctx, "rd1")
	if err != nil {
		t.Fatalf("listing segments: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("segments after rundown refresh = %d, want 1", len(segs))
	}
	parts, err := repo.ListParts(ctx, "rd1")
	if err != nil {
		t.Fatalf("listing parts: %v", err)
	}
	if len(parts) != 1 || parts[0].Title != "Cold Open" {
		t.Fatalf("parts after segment refresh = %+v, want one updated part", parts)
	}
	pieces, err := repo.ListPieces(ctx, "rd1")
	if err != nil {
		t.Fatalf("listing pieces: %v", err)
	}
	if len(pieces) != 1 {
		t.Fatalf("pieces after part refresh = %d, want 1", len(pieces))
	}
}

// A timing update on an existing part instance must not take its piece
// instances with it.
func TestUpsertPartInstancePreservesPieceInstances(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedRundown(t, repo, "pl1", "rd1")

	parent := PartInstance{
		ID: "pi1", PartID: "part1", SegmentID: "seg1", RundownID: "rd1",
		ActivationID: "act-1", TakeCount: 1, Part: Part{ID: "part1"},
	}
	if err := repo.UpsertPartInstances(ctx, []PartInstance{parent}); err != nil {
		t.Fatalf("upserting part instance: %v", err)
	}
	child := PieceInstance{
		ID: "pci1", PartInstanceID: "pi1", PieceID: "piece1", RundownID: "rd1",
		Piece: Piece{ID: "piece1"},
	}
	if err := repo.UpsertPieceInstances(ctx, []PieceInstance{child}); err != nil {
		t.Fatalf("upserting piece instance: %v", err)
	}

	started := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	parent.Timings.StartedPlayback = &started
	if err := repo.UpsertPartInstances(ctx, []PartInstance{parent}); err != nil {
		t.Fatalf("re-upserting part instance: %v", err)
	}

	got, err := repo.ListPieceInstances(ctx, []string{"pi1"})
	if err != nil {
		t.Fatalf("listing piece instances: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("piece instances after timing update = %d, want 1", len(got))
	}
}
