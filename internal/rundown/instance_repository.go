package rundown

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

const partInstanceColumns = `id, part_id, segment_id, rundown_id, playlist_activation_id,
			take_count, rehearsal, orphaned, reset, taken_at,
			started_playback, stopped_playback, part_snapshot, notes`

// ListPartInstances retrieves all part instances belonging to the given
// rundowns, ordered by take count. Reset instances are included; the
// playout cache filters them where needed.
func (r *SQLiteRepository) ListPartInstances(ctx context.Context, rundownIDs []string) ([]PartInstance, error) {
	if len(rundownIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(rundownIDs)-1) + "?"
	query := `SELECT ` + partInstanceColumns + `
		FROM part_instances
		WHERE rundown_id IN (` + placeholders + `)
		ORDER BY take_count, id`

	args := make([]any, len(rundownIDs))
	for i, id := range rundownIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying part instances: %w", err)
	}
	defer rows.Close()

	var instances []PartInstance
	for rows.Next() {
		pi, scanErr := scanPartInstance(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning part instance: %w", scanErr)
		}
		instances = append(instances, *pi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating part instances: %w", err)
	}
	return instances, nil
}

// UpsertPartInstances inserts or replaces part instances in a single
// transaction. The part snapshot is serialised whole; it is the frozen copy
// playout reads regardless of later ingest edits.
func (r *SQLiteRepository) UpsertPartInstances(ctx context.Context, instances []PartInstance) error {
	if len(instances) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	// ON CONFLICT rather than REPLACE: a timing update on an existing
	// instance must not cascade-delete its piece instances.
	query := `
		INSERT INTO part_instances (` + partInstanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			part_id = excluded.part_id,
			segment_id = excluded.segment_id,
			rundown_id = excluded.rundown_id,
			playlist_activation_id = excluded.playlist_activation_id,
			take_count = excluded.take_count,
			rehearsal = excluded.rehearsal,
			orphaned = excluded.orphaned,
			reset = excluded.reset,
			taken_at = excluded.taken_at,
			started_playback = excluded.started_playback,
			stopped_playback = excluded.stopped_playback,
			part_snapshot = excluded.part_snapshot,
			notes = excluded.notes`

	for i := range instances {
		pi := &instances[i]
		snapshot, marshalErr := json.Marshal(pi.Part)
		if marshalErr != nil {
			return fmt.Errorf("marshalling part snapshot: %w", marshalErr)
		}
		notes := []byte("[]")
		if len(pi.Notes) > 0 {
			notes, marshalErr = json.Marshal(pi.Notes)
			if marshalErr != nil {
				return fmt.Errorf("marshalling instance notes: %w", marshalErr)
			}
		}

		if _, err := tx.ExecContext(ctx, query,
			pi.ID,
			pi.PartID,
			pi.SegmentID,
			pi.RundownID,
			pi.ActivationID,
			pi.TakeCount,
			boolToInt(pi.Rehearsal),
			nullableOrphaned(pi.Orphaned),
			boolToInt(pi.Reset),
			nullableTime(pi.Timings.TakenAt),
			nullableTime(pi.Timings.StartedPlayback),
			nullableTime(pi.Timings.StoppedPlayback),
			string(snapshot),
			string(notes),
		); err != nil {
			return fmt.Errorf("upserting part instance %q: %w", pi.ID, err)
		}
	}

	return tx.Commit()
}

// DeletePartInstances removes part instances by id. Piece instances follow
// via foreign-key cascade.
func (r *SQLiteRepository) DeletePartInstances(ctx context.Context, ids []string) error {
	if err := r.deleteByIDs(ctx, "part_instances", ids); err != nil {
		return fmt.Errorf("deleting part instances: %w", err)
	}
	return nil
}

func scanPartInstance(scanner rowScanner) (*PartInstance, error) {
	var pi PartInstance
	var rehearsal, reset int
	var orphaned sql.NullString
	var takenAt, startedPlayback, stoppedPlayback sql.NullString
	var snapshot, notes string

	err := scanner.Scan(
		&pi.ID,
		&pi.PartID,
		&pi.SegmentID,
		&pi.RundownID,
		&pi.ActivationID,
		&pi.TakeCount,
		&rehearsal,
		&orphaned,
		&reset,
		&takenAt,
		&startedPlayback,
		&stoppedPlayback,
		&snapshot,
		&notes,
	)
	if err != nil {
		return nil, err
	}

	pi.Rehearsal = rehearsal != 0
	pi.Reset = reset != 0
	if orphaned.Valid {
		pi.Orphaned = Orphaned(orphaned.String)
	}
	pi.Timings.TakenAt = parseNullTime(takenAt)
	pi.Timings.StartedPlayback = parseNullTime(startedPlayback)
	pi.Timings.StoppedPlayback = parseNullTime(stoppedPlayback)
	if err := json.Unmarshal([]byte(snapshot), &pi.Part); err != nil {
		return nil, fmt.Errorf("unmarshalling part snapshot: %w", err)
	}
	if notes != "" && notes != "[]" {
		if err := json.Unmarshal([]byte(notes), &pi.Notes); err != nil {
			return nil, fmt.Errorf("unmarshalling instance notes: %w", err)
		}
	}
	return &pi, nil
}

// ─── Piece Instances ────────────────────────────────────────────────────────

const pieceInstanceColumns = `id, part_instance_id, piece_id, rundown_id,
			infinite_instance_id, infinite_from_previous, reset,
			started_playback, stopped_playback, piece_snapshot`

// ListPieceInstances retrieves all piece instances belonging to the given
// part instances.
func (r *SQLiteRepository) ListPieceInstances(ctx context.Context, partInstanceIDs []string) ([]PieceInstance, error) {
	if len(partInstanceIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(partInstanceIDs)-1) + "?"
	query := `SELECT ` + pieceInstanceColumns + `
		FROM piece_instances
		WHERE part_instance_id IN (` + placeholders + `)
		ORDER BY id`

	args := make([]any, len(partInstanceIDs))
	for i, id := range partInstanceIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying piece instances: %w", err)
	}
	defer rows.Close()

	var instances []PieceInstance
	for rows.Next() {
		pi, scanErr := scanPieceInstance(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning piece instance: %w", scanErr)
		}
		instances = append(instances, *pi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating piece instances: %w", err)
	}
	return instances, nil
}

// UpsertPieceInstances inserts or replaces piece instances in a single
// transaction.
func (r *SQLiteRepository) UpsertPieceInstances(ctx context.Context, instances []PieceInstance) error {
	if len(instances) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `
		INSERT INTO piece_instances (` + pieceInstanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			part_instance_id = excluded.part_instance_id,
			piece_id = excluded.piece_id,
			rundown_id = excluded.rundown_id,
			infinite_instance_id = excluded.infinite_instance_id,
			infinite_from_previous = excluded.infinite_from_previous,
			reset = excluded.reset,
			started_playback = excluded.started_playback,
			stopped_playback = excluded.stopped_playback,
			piece_snapshot = excluded.piece_snapshot`

	for i := range instances {
		pi := &instances[i]
		snapshot, marshalErr := json.Marshal(pi.Piece)
		if marshalErr != nil {
			return fmt.Errorf("marshalling piece snapshot: %w", marshalErr)
		}

		if _, err := tx.ExecContext(ctx, query,
			pi.ID,
			pi.PartInstanceID,
			pi.PieceID,
			pi.RundownID,
			nullableString(pi.InfiniteInstanceID),
			boolToInt(pi.InfiniteFromPrevious),
			boolToInt(pi.Reset),
			nullableTime(pi.StartedPlayback),
			nullableTime(pi.StoppedPlayback),
			string(snapshot),
		); err != nil {
			return fmt.Errorf("upserting piece instance %q: %w", pi.ID, err)
		}
	}

	return tx.Commit()
}

// DeletePieceInstances removes piece instances by id.
func (r *SQLiteRepository) DeletePieceInstances(ctx context.Context, ids []string) error {
	if err := r.deleteByIDs(ctx, "piece_instances", ids); err != nil {
		return fmt.Errorf("deleting piece instances: %w", err)
	}
	return nil
}

func scanPieceInstance(scanner rowScanner) (*PieceInstance, error) {
	var pi PieceInstance
	var infiniteID sql.NullString
	var fromPrevious, reset int
	var startedPlayback, stoppedPlayback sql.NullString
	var snapshot string

	err := scanner.Scan(
		&pi.ID,
		&pi.PartInstanceID,
		&pi.PieceID,
		&pi.RundownID,
		&infiniteID,
		&fromPrevious,
		&reset,
		&startedPlayback,
		&stoppedPlayback,
		&snapshot,
	)
	if err != nil {
		return nil, err
	}

	if infiniteID.Valid {
		pi.InfiniteInstanceID = &infiniteID.String
	}
	pi.InfiniteFromPrevious = fromPrevious != 0
	pi.Reset = reset != 0
	pi.StartedPlayback = parseNullTime(startedPlayback)
	pi.StoppedPlayback = parseNullTime(stoppedPlayback)
	if err := json.Unmarshal([]byte(snapshot), &pi.Piece); err != nil {
		return nil, fmt.Errorf("unmarshalling piece snapshot: %w", err)
	}
	return &pi, nil
}
