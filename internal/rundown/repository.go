package rundown

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Repository defines the persistence interface for the rundown entity model.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// Upsert/Delete methods are batch operations: the cache layer calls each at
// most once per save, with the full set of changes for that collection. Each
// batch is applied atomically per collection; there is no cross-collection
// transaction, matching the single-writer-per-lock model.
type Repository interface {
	// Playlists
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	ListPlaylists(ctx context.Context, studioID string) ([]Playlist, error)
	UpsertPlaylists(ctx context.Context, playlists []Playlist) error
	DeletePlaylists(ctx context.Context, ids []string) error

	// Rundowns
	GetRundown(ctx context.Context, id string) (*Rundown, error)
	GetRundownByExternal(ctx context.Context, studioID, externalID string) (*Rundown, error)
	ListRundownsByPlaylist(ctx context.Context, playlistID string) ([]Rundown, error)
	UpsertRundowns(ctx context.Context, rundowns []Rundown) error
	DeleteRundowns(ctx context.Context, ids []string) error

	// Rundown content
	ListSegments(ctx context.Context, rundownID string) ([]Segment, error)
	UpsertSegments(ctx context.Context, segments []Segment) error
	DeleteSegments(ctx context.Context, ids []string) error
	ListParts(ctx context.Context, rundownID string) ([]Part, error)
	UpsertParts(ctx context.Context, parts []Part) error
	DeleteParts(ctx context.Context, ids []string) error
	ListPieces(ctx context.Context, rundownID string) ([]Piece, error)
	UpsertPieces(ctx context.Context, pieces []Piece) error
	DeletePieces(ctx context.Context, ids []string) error

	// Playout instances
	ListPartInstances(ctx context.Context, rundownIDs []string) ([]PartInstance, error)
	UpsertPartInstances(ctx context.Context, instances []PartInstance) error
	DeletePartInstances(ctx context.Context, ids []string) error
	ListPieceInstances(ctx context.Context, partInstanceIDs []string) ([]PieceInstance, error)
	UpsertPieceInstances(ctx context.Context, instances []PieceInstance) error
	DeletePieceInstances(ctx context.Context, ids []string) error

	// Playout event log
	CreateEvent(ctx context.Context, event *PlayoutEvent) error
	ListEvents(ctx context.Context, playlistID string, limit int) ([]PlayoutEvent, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ─── Shared Helpers ─────────────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// deleteByIDs removes rows by primary key in a single transaction.
func (r *SQLiteRepository) deleteByIDs(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.db.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE id IN ("+placeholders+")", args...)
	return err
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableOrphaned(o Orphaned) sql.NullString {
	if o == OrphanedNone {
		return sql.NullString{}
	}
	return sql.NullString{String: string(o), Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // Format is controlled
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
