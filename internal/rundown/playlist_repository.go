package rundown

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// playlistColumns is the SELECT column list for playlist queries.
const playlistColumns = `id, studio_id, name, activation_id, rehearsal, hold_state,
			current_part_instance_id, current_rundown_id,
			next_part_instance_id, next_rundown_id, next_manually_selected,
			previous_part_instance_id, previous_rundown_id,
			created_at, updated_at`

// GetPlaylist retrieves a playlist by its unique identifier.
func (r *SQLiteRepository) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`

	playlist, err := scanPlaylist(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return playlist, nil
}

// ListPlaylists retrieves all playlists for a studio, ordered by name.
func (r *SQLiteRepository) ListPlaylists(ctx context.Context, studioID string) ([]Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE studio_id = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, studioID)
	if err != nil {
		return nil, fmt.Errorf("querying playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		p, scanErr := scanPlaylist(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning playlist: %w", scanErr)
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playlists: %w", err)
	}
	return playlists, nil
}

// UpsertPlaylists inserts or replaces playlists in a single transaction.
func (r *SQLiteRepository) UpsertPlaylists(ctx context.Context, playlists []Playlist) error {
	if len(playlists) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	// ON CONFLICT rather than REPLACE: REPLACE deletes the existing row
	// first, and the rundown cascade would take the playlist's contents
	// with it.
	query := `
		INSERT INTO playlists (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			studio_id = excluded.studio_id,
			name = excluded.name,
			activation_id = excluded.activation_id,
			rehearsal = excluded.rehearsal,
			hold_state = excluded.hold_state,
			current_part_instance_id = excluded.current_part_instance_id,
			current_rundown_id = excluded.current_rundown_id,
			next_part_instance_id = excluded.next_part_instance_id,
			next_rundown_id = excluded.next_rundown_id,
			next_manually_selected = excluded.next_manually_selected,
			previous_part_instance_id = excluded.previous_part_instance_id,
			previous_rundown_id = excluded.previous_rundown_id,
			updated_at = excluded.updated_at`

	for i := range playlists {
		p := &playlists[i]
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		p.UpdatedAt = time.Now().UTC()

		var curID, curRD, nextID, nextRD, prevID, prevRD *string
		var nextManual bool
		if p.CurrentPart != nil {
			curID, curRD = &p.CurrentPart.PartInstanceID, &p.CurrentPart.RundownID
		}
		if p.NextPart != nil {
			nextID, nextRD = &p.NextPart.PartInstanceID, &p.NextPart.RundownID
			nextManual = p.NextPart.ManuallySelected
		}
		if p.PreviousPart != nil {
			prevID, prevRD = &p.PreviousPart.PartInstanceID, &p.PreviousPart.RundownID
		}

		if _, err := tx.ExecContext(ctx, query,
			p.ID,
			p.StudioID,
			p.Name,
			nullableString(p.ActivationID),
			boolToInt(p.Rehearsal),
			string(p.HoldState),
			nullableString(curID),
			nullableString(curRD),
			nullableString(nextID),
			nullableString(nextRD),
			boolToInt(nextManual),
			nullableString(prevID),
			nullableString(prevRD),
			p.CreatedAt.Format(time.RFC3339Nano),
			p.UpdatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upserting playlist %q: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// DeletePlaylists removes playlists by id.
func (r *SQLiteRepository) DeletePlaylists(ctx context.Context, ids []string) error {
	if err := r.deleteByIDs(ctx, "playlists", ids); err != nil {
		return fmt.Errorf("deleting playlists: %w", err)
	}
	return nil
}

func scanPlaylist(scanner rowScanner) (*Playlist, error) {
	var p Playlist
	var activationID sql.NullString
	var rehearsal, nextManual int
	var holdState string
	var curID, curRD, nextID, nextRD, prevID, prevRD sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&p.ID,
		&p.StudioID,
		&p.Name,
		&activationID,
		&rehearsal,
		&holdState,
		&curID,
		&curRD,
		&nextID,
		&nextRD,
		&nextManual,
		&prevID,
		&prevRD,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if activationID.Valid {
		p.ActivationID = &activationID.String
	}
	p.Rehearsal = rehearsal != 0
	p.HoldState = HoldState(holdState)
	if curID.Valid && curRD.Valid {
		p.CurrentPart = &PartRef{PartInstanceID: curID.String, RundownID: curRD.String}
	}
	if nextID.Valid && nextRD.Valid {
		p.NextPart = &PartRef{
			PartInstanceID:   nextID.String,
			RundownID:        nextRD.String,
			ManuallySelected: nextManual != 0,
		}
	}
	if prevID.Valid && prevRD.Valid {
		p.PreviousPart = &PartRef{PartInstanceID: prevID.String, RundownID: prevRD.String}
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	return &p, nil
}

// ─── Playout Event Log ──────────────────────────────────────────────────────

// CreateEvent inserts a playout event record.
func (r *SQLiteRepository) CreateEvent(ctx context.Context, event *PlayoutEvent) error {
	var detailsJSON sql.NullString
	if len(event.Details) > 0 {
		data, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playout_events (id, playlist_id, event_type, part_instance_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.PlaylistID,
		event.EventType,
		nullableString(event.PartInstanceID),
		detailsJSON,
		event.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting playout event: %w", err)
	}
	return nil
}

// ListEvents retrieves recent playout events for a playlist, newest first.
func (r *SQLiteRepository) ListEvents(ctx context.Context, playlistID string, limit int) ([]PlayoutEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, playlist_id, event_type, part_instance_id, details, created_at
		FROM playout_events
		WHERE playlist_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, playlistID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying playout events: %w", err)
	}
	defer rows.Close()

	var events []PlayoutEvent
	for rows.Next() {
		var e PlayoutEvent
		var partInstanceID, detailsJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.PlaylistID, &e.EventType, &partInstanceID, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning playout event: %w", err)
		}
		if partInstanceID.Valid {
			e.PartInstanceID = &partInstanceID.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if jsonErr := json.Unmarshal([]byte(detailsJSON.String), &e.Details); jsonErr != nil {
				return nil, fmt.Errorf("unmarshalling event details: %w", jsonErr)
			}
		}
		e.CreatedAt = parseTime(createdAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playout events: %w", err)
	}
	return events, nil
}
