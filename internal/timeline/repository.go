package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrTimelineNotFound is returned when no timeline exists for a studio.
var ErrTimelineNotFound = errors.New("timeline: not found")

// Repository persists the published timeline per studio.
type Repository interface {
	Get(ctx context.Context, studioID string) (*Timeline, error)
	Save(ctx context.Context, tl *Timeline) error
	Delete(ctx context.Context, studioID string) error
}

// SQLiteRepository stores one row per studio in the timelines table.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, studioID string) (*Timeline, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT studio_id, objects, timeline_hash, generation_versions, generation, generated_at
		   FROM timelines WHERE studio_id = ?`, studioID)

	var (
		tl           Timeline
		objectsJSON  string
		versionsJSON string
		generatedAt  string
	)
	err := row.Scan(&tl.StudioID, &objectsJSON, &tl.Hash, &versionsJSON, &tl.Generation, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTimelineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get timeline %s: %w", studioID, err)
	}

	if err := json.Unmarshal([]byte(objectsJSON), &tl.Objects); err != nil {
		return nil, fmt.Errorf("decode timeline objects for %s: %w", studioID, err)
	}
	if err := json.Unmarshal([]byte(versionsJSON), &tl.Versions); err != nil {
		return nil, fmt.Errorf("decode generation versions for %s: %w", studioID, err)
	}
	if tl.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
		return nil, fmt.Errorf("parse generated_at for %s: %w", studioID, err)
	}
	return &tl, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, tl *Timeline) error {
	objectsJSON, err := json.Marshal(tl.Objects)
	if err != nil {
		return fmt.Errorf("encode timeline objects: %w", err)
	}
	versionsJSON, err := json.Marshal(tl.Versions)
	if err != nil {
		return fmt.Errorf("encode generation versions: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO timelines
		   (studio_id, objects, timeline_hash, generation_versions, generation, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tl.StudioID, string(objectsJSON), tl.Hash, string(versionsJSON),
		tl.Generation, tl.GeneratedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save timeline %s: %w", tl.StudioID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, studioID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM timelines WHERE studio_id = ?`, studioID); err != nil {
		return fmt.Errorf("delete timeline %s: %w", studioID, err)
	}
	return nil
}
