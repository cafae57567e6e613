package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/onair-core/internal/gateway"
	"github.com/nerrad567/onair-core/internal/infrastructure/config"
	"github.com/nerrad567/onair-core/internal/infrastructure/database"
	"github.com/nerrad567/onair-core/internal/infrastructure/logging"
	"github.com/nerrad567/onair-core/internal/ingest"
	"github.com/nerrad567/onair-core/internal/lock"
	"github.com/nerrad567/onair-core/internal/playout"
	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
	_ "github.com/nerrad567/onair-core/migrations"
)

const (
	testStudio = "studio0"
	testSecret = "test-secret-key-at-least-32-characters-long"
)

type apiFixture struct {
	srv    *Server
	router http.Handler
	repo   *rundown.SQLiteRepository
	token  string
}

func testServer(t *testing.T) *apiFixture {
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

	repo := rundown.NewSQLiteRepository(db.DB)
	timelines := timeline.NewSQLiteRepository(db.DB)
	locks := lock.NewManager()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	playoutSvc := playout.NewService(playout.Options{
		StudioID:       testStudio,
		StudioName:     "Studio Zero",
		CoreVersion:    "1.0.0-test",
		TimingDebounce: time.Minute,
		Locks:          locks,
		Repo:           repo,
		Timelines:      timelines,
		Publisher:      timeline.NewPublisher(timelines, nil, nil),
	})
	t.Cleanup(playoutSvc.Close)

	ingestSvc := ingest.NewService(ingest.Options{
		StudioID:               testStudio,
		DefaultShowStyleBaseID: "style-1",
		Locks:                  locks,
		Repo:                   repo,
		Data:                   ingest.NewSQLiteDataRepository(db.DB),
		Notifier:               playoutSvc,
	})

	tracker := gateway.NewTracker()
	tracker.Observe("gw-1", []byte(`{"status":"online","version":"2.0.0"}`))

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			JWT:  config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
		},
		WS:        config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		StudioID:  testStudio,
		Version:   "1.0.0-test",
		Logger:    log,
		Playout:   playoutSvc,
		Ingest:    ingestSvc,
		Repo:      repo,
		Timelines: timelines,
		Gateways:  tracker,
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	token, err := GenerateToken(testSecret, "producer-ui", time.Minute)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	return &apiFixture{
		srv:    srv,
		router: srv.buildRouter(),
		repo:   repo,
		token:  token,
	}
}

// seedShow creates playlist pl1 with one rundown and three parts.
func seedShow(t *testing.T, f *apiFixture) {
	t.Helper()
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seeding show: %v", err)
		}
	}

	must(f.repo.UpsertPlaylists(ctx, []rundown.Playlist{{
		ID: "pl1", StudioID: testStudio, Name: "Evening News", HoldState: rundown.HoldNone,
	}}))
	must(f.repo.UpsertRundowns(ctx, []rundown.Rundown{{
		ID: "rd1", PlaylistID: "pl1", StudioID: testStudio,
		ExternalID: "show-1", Name: "Evening News", Rank: 0,
	}}))
	must(f.repo.UpsertSegments(ctx, []rundown.Segment{
		{ID: "s1", RundownID: "rd1", ExternalID: "seg-1", Name: "Headlines", Rank: 0},
	}))
	must(f.repo.UpsertParts(ctx, []rundown.Part{
		{ID: "p1", SegmentID: "s1", RundownID: "rd1", ExternalID: "part-1", Title: "Opener", Rank: 0},
		{ID: "p2", SegmentID: "s1", RundownID: "rd1", ExternalID: "part-2", Title: "Story", Rank: 1},
		{ID: "p3", SegmentID: "s1", RundownID: "rd1", ExternalID: "part-3", Title: "Wrap", Rank: 2},
	}))
}

// do performs an authenticated request against the router.
func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

// ─── Auth ───────────────────────────────────────────────────────────────────

func TestAuth_MissingTokenRejected(t *testing.T) {
	f := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playlists", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_BadSignatureRejected(t *testing.T) {
	f := testServer(t)

	forged, err := GenerateToken("wrong-secret-entirely-different-key", "intruder", time.Minute)
	if err != nil {
		t.Fatalf("minting forged token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playlists", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_HealthIsPublic(t *testing.T) {
	f := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// ─── Playlist operations ────────────────────────────────────────────────────

func TestListPlaylists(t *testing.T) {
	f := testServer(t)
	seedShow(t, f)

	rec := f.do(t, http.MethodGet, "/api/v1/playlists", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestActivateTakeDeactivate(t *testing.T) {
	f := testServer(t)
	seedShow(t, f)

	rec := f.do(t, http.MethodPost, "/api/v1/playlists/pl1/activate", `{"rehearsal":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/v1/playlists/pl1/take", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("take status = %d, body %s", rec.Code, rec.Body.String())
	}

	pl, err := f.repo.GetPlaylist(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("loading playlist: %v", err)
	}
	if pl.CurrentPart == nil {
		t.Fatal("no current part after take")
	}

	rec = f.do(t, http.MethodPost, "/api/v1/playlists/pl1/deactivate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestTake_InactivePlaylistConflict(t *testing.T) {
	f := testServer(t)
	seedShow(t, f)

	rec := f.do(t, http.MethodPost, "/api/v1/playlists/pl1/take", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["code"] != "playlist.not-active" {
		t.Errorf("code = %v, want playlist.not-active", body["code"])
	}
}

func TestActivate_UnknownPlaylistNotFound(t *testing.T) {
	f := testServer(t)

	rec := f.do(t, http.MethodPost, "/api/v1/playlists/nope/activate", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNext_SetAndMove(t *testing.T) {
	f := testServer(t)
	seedShow(t, f)

	f.do(t, http.MethodPost, "/api/v1/playlists/pl1/activate", "")

	rec := f.do(t, http.MethodPost, "/api/v1/playlists/pl1/next", `{"part_id":"p3"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set next status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/v1/playlists/pl1/next", `{"delta":-1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move next status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/v1/playlists/pl1/next", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty next request status = %d, want 400", rec.Code)
	}
}

func TestEvents_ReturnsLog(t *testing.T) {
	f := testServer(t)
	seedShow(t, f)

	f.do(t, http.MethodPost, "/api/v1/playlists/pl1/activate", "")

	rec := f.do(t, http.MethodGet, "/api/v1/playlists/pl1/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) < 1 {
		t.Errorf("count = %v, want at least the activation event", body["count"])
	}

	rec = f.do(t, http.MethodGet, "/api/v1/playlists/pl1/events?limit=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}

// ─── Ingest ─────────────────────────────────────────────────────────────────

func TestIngestPush_CreatesRundown(t *testing.T) {
	f := testServer(t)

	payload := `{
		"name": "Morning Show",
		"type": "http",
		"segments": [
			{"external_id": "seg-1", "name": "Intro", "rank": 0, "parts": [
				{"external_id": "part-1", "name": "Welcome", "rank": 0}
			]}
		]
	}`

	rec := f.do(t, http.MethodPost, "/api/v1/ingest/morning-1", payload)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rd, err := f.repo.GetRundownByExternal(context.Background(), testStudio, "morning-1")
	if err != nil {
		t.Fatalf("rundown not created: %v", err)
	}
	if rd.Name != "Morning Show" {
		t.Errorf("rundown name = %q", rd.Name)
	}
}

func TestIngestRemove(t *testing.T) {
	f := testServer(t)

	payload := `{"name":"Temp","type":"http","segments":[]}`
	if rec := f.do(t, http.MethodPost, "/api/v1/ingest/tmp-1", payload); rec.Code != http.StatusAccepted {
		t.Fatalf("push status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodDelete, "/api/v1/ingest/tmp-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d, body %s", rec.Code, rec.Body.String())
	}
}

// ─── Timeline and system ────────────────────────────────────────────────────

func TestGetTimeline(t *testing.T) {
	f := testServer(t)
	seedShow(t, f)

	rec := f.do(t, http.MethodGet, "/api/v1/timeline", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("before activation status = %d, want 404", rec.Code)
	}

	f.do(t, http.MethodPost, "/api/v1/playlists/pl1/activate", "")

	rec = f.do(t, http.MethodGet, "/api/v1/timeline", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["studio_id"] != testStudio {
		t.Errorf("studio_id = %v", body["studio_id"])
	}
}

func TestSystemHealth_ReportsGateways(t *testing.T) {
	f := testServer(t)

	rec := f.do(t, http.MethodGet, "/api/v1/system/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	gws, ok := body["gateways"].([]any)
	if !ok || len(gws) != 1 {
		t.Fatalf("gateways = %v, want one entry", body["gateways"])
	}
	if body["gateways_online"].(float64) != 1 {
		t.Errorf("gateways_online = %v, want 1", body["gateways_online"])
	}
}
