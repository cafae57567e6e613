package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/onair-core/internal/blueprint"
)

// ErrSnapshotNotFound indicates no stored snapshot for the rundown.
var ErrSnapshotNotFound = errors.New("ingest: snapshot not found")

// DataRepository mirrors the last-seen NRCS representation of each rundown.
// It is the "old" side of every diff and is written on its own lightweight
// path, independent of the playout reconciliation outcome.
type DataRepository interface {
	Get(ctx context.Context, studioID, externalID string) (*blueprint.IngestRundown, error)
	Save(ctx context.Context, studioID string, data *blueprint.IngestRundown) error
	Delete(ctx context.Context, studioID, externalID string) error
}

// SQLiteDataRepository implements DataRepository over the ingest_data table.
type SQLiteDataRepository struct {
	db *sql.DB
}

// NewSQLiteDataRepository creates a new SQLite-backed snapshot store.
func NewSQLiteDataRepository(db *sql.DB) *SQLiteDataRepository {
	return &SQLiteDataRepository{db: db}
}

// Get retrieves the stored snapshot for a rundown.
func (r *SQLiteDataRepository) Get(ctx context.Context, studioID, externalID string) (*blueprint.IngestRundown, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM ingest_data WHERE studio_id = ? AND external_id = ?`,
		studioID, externalID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying ingest snapshot: %w", err)
	}

	var snapshot blueprint.IngestRundown
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshalling ingest snapshot: %w", err)
	}
	return &snapshot, nil
}

// Save stores the snapshot, replacing any previous one.
func (r *SQLiteDataRepository) Save(ctx context.Context, studioID string, data *blueprint.IngestRundown) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshalling ingest snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO ingest_data (studio_id, external_id, data, updated_at)
		VALUES (?, ?, ?, ?)`,
		studioID, data.ExternalID, string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving ingest snapshot: %w", err)
	}
	return nil
}

// Delete removes the stored snapshot for a rundown.
func (r *SQLiteDataRepository) Delete(ctx context.Context, studioID, externalID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM ingest_data WHERE studio_id = ? AND external_id = ?`,
		studioID, externalID,
	)
	if err != nil {
		return fmt.Errorf("deleting ingest snapshot: %w", err)
	}
	return nil
}
