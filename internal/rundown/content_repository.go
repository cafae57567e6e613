package rundown

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const rundownColumns = `id, playlist_id, studio_id, external_id, name,
			show_style_base_id, show_style_variant_id, rank, orphaned,
			created_at, updated_at`

// GetRundown retrieves a rundown by its unique identifier.
func (r *SQLiteRepository) GetRundown(ctx context.Context, id string) (*Rundown, error) {
	query := `SELECT ` + rundownColumns + ` FROM rundowns WHERE id = ?`

	rd, err := scanRundown(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRundownNotFound
		}
		return nil, fmt.Errorf("querying rundown: %w", err)
	}
	return rd, nil
}

// GetRundownByExternal retrieves a rundown by its source identifier within
// a studio. The (studio_id, external_id) pair is unique.
func (r *SQLiteRepository) GetRundownByExternal(ctx context.Context, studioID, externalID string) (*Rundown, error) {
	query := `SELECT ` + rundownColumns + ` FROM rundowns WHERE studio_id = ? AND external_id = ?`

	rd, err := scanRundown(r.db.QueryRowContext(ctx, query, studioID, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRundownNotFound
		}
		return nil, fmt.Errorf("querying rundown by external id: %w", err)
	}
	return rd, nil
}

// ListRundownsByPlaylist retrieves a playlist's rundowns in rank order.
func (r *SQLiteRepository) ListRundownsByPlaylist(ctx context.Context, playlistID string) ([]Rundown, error) {
	query := `SELECT ` + rundownColumns + ` FROM rundowns WHERE playlist_id = ? ORDER BY rank, id`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("querying rundowns: %w", err)
	}
	defer rows.Close()

	var rundowns []Rundown
	for rows.Next() {
		rd, scanErr := scanRundown(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning rundown: %w", scanErr)
		}
		rundowns = append(rundowns, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rundowns: %w", err)
	}
	return rundowns, nil
}

// UpsertRundowns inserts or replaces rundowns in a single transaction.
func (r *SQLiteRepository) UpsertRundowns(ctx context.Context, rundowns []Rundown) error {
	if len(rundowns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	// ON CONFLICT rather than REPLACE so a header refresh cannot
	// cascade-delete the rundown's segments.
	query := `
		INSERT INTO rundowns (` + rundownColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			playlist_id = excluded.playlist_id,
			studio_id = excluded.studio_id,
			external_id = excluded.external_id,
			name = excluded.name,
			show_style_base_id = excluded.show_style_base_id,
			show_style_variant_id = excluded.show_style_variant_id,
			rank = excluded.rank,
			orphaned = excluded.orphaned,
			updated_at = excluded.updated_at`

	for i := range rundowns {
		rd := &rundowns[i]
		if rd.CreatedAt.IsZero() {
			rd.CreatedAt = time.Now().UTC()
		}
		rd.UpdatedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx, query,
			rd.ID,
			rd.PlaylistID,
			rd.StudioID,
			rd.ExternalID,
			rd.Name,
			rd.ShowStyleBaseID,
			rd.ShowStyleVariantID,
			rd.Rank,
			nullableOrphaned(rd.Orphaned),
			rd.CreatedAt.Format(time.RFC3339Nano),
			rd.UpdatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upserting rundown %q: %w", rd.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteRundowns removes rundowns by id. Child segments, parts and pieces
// go with them via foreign-key cascade.
func (r *SQLiteRepository) DeleteRundowns(ctx context.Context, ids []string) error {
	if err := r.deleteByIDs(ctx, "rundowns", ids); err != nil {
		return fmt.Errorf("deleting rundowns: %w", err)
	}
	return nil
}

func scanRundown(scanner rowScanner) (*Rundown, error) {
	var rd Rundown
	var orphaned sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&rd.ID,
		&rd.PlaylistID,
		&rd.StudioID,
		&rd.ExternalID,
		&rd.Name,
		&rd.ShowStyleBaseID,
		&rd.ShowStyleVariantID,
		&rd.Rank,
		&orphaned,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orphaned.Valid {
		rd.Orphaned = Orphaned(orphaned.String)
	}
	rd.CreatedAt = parseTime(createdAt)
	rd.UpdatedAt = parseTime(updatedAt)
	return &rd, nil
}

// ─── Segments ───────────────────────────────────────────────────────────────

// ListSegments retrieves a rundown's segments in rank order.
func (r *SQLiteRepository) ListSegments(ctx context.Context, rundownID string) ([]Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rundown_id, external_id, name, rank, orphaned
		FROM segments
		WHERE rundown_id = ?
		ORDER BY rank, id`, rundownID)
	if err != nil {
		return nil, fmt.Errorf("querying segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var s Segment
		var orphaned sql.NullString
		if err := rows.Scan(&s.ID, &s.RundownID, &s.ExternalID, &s.Name, &s.Rank, &orphaned); err != nil {
			return nil, fmt.Errorf("scanning segment: %w", err)
		}
		if orphaned.Valid {
			s.Orphaned = Orphaned(orphaned.String)
		}
		segments = append(segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating segments: %w", err)
	}
	return segments, nil
}

// UpsertSegments inserts or replaces segments in a single transaction.
func (r *SQLiteRepository) UpsertSegments(ctx context.Context, segments []Segment) error {
	if len(segments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `
		INSERT INTO segments (id, rundown_id, external_id, name, rank, orphaned)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rundown_id = excluded.rundown_id,
			external_id = excluded.external_id,
			name = excluded.name,
			rank = excluded.rank,
			orphaned = excluded.orphaned`

	for i := range segments {
		s := &segments[i]
		if _, err := tx.ExecContext(ctx, query,
			s.ID, s.RundownID, s.ExternalID, s.Name, s.Rank, nullableOrphaned(s.Orphaned),
		); err != nil {
			return fmt.Errorf("upserting segment %q: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteSegments removes segments by id.
func (r *SQLiteRepository) DeleteSegments(ctx context.Context, ids []string) error {
	if err := r.deleteByIDs(ctx, "segments", ids); err != nil {
		return fmt.Errorf("deleting segments: %w", err)
	}
	return nil
}

// ─── Parts ──────────────────────────────────────────────────────────────────

const partColumns = `id, segment_id, rundown_id, external_id, title, rank, floated,
			expected_duration_ms, preroll_ms, out_transition_ms,
			in_transition_preroll_ms, in_transition_keepalive_ms, in_transition_duration_ms,
			disable_out_transition, autonext, autonext_overlap_ms`

// ListParts retrieves all parts of a rundown. Ordering within segments is
// by rank; callers group by segment themselves.
func (r *SQLiteRepository) ListParts(ctx context.Context, rundownID string) ([]Part, error) {
	query := `SELECT ` + partColumns + ` FROM parts WHERE rundown_id = ? ORDER BY segment_id, rank, id`

	rows, err := r.db.QueryContext(ctx, query, rundownID)
	if err != nil {
		return nil, fmt.Errorf("querying parts: %w", err)
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		p, scanErr := scanPart(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning part: %w", scanErr)
		}
		parts = append(parts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parts: %w", err)
	}
	return parts, nil
}

// UpsertParts inserts or replaces parts in a single transaction.
func (r *SQLiteRepository) UpsertParts(ctx context.Context, parts []Part) error {
	if len(parts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `
		INSERT INTO parts (` + partColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			segment_id = excluded.segment_id,
			rundown_id = excluded.rundown_id,
			external_id = excluded.external_id,
			title = excluded.title,
			rank = excluded.rank,
			floated = excluded.floated,
			expected_duration_ms = excluded.expected_duration_ms,
			preroll_ms = excluded.preroll_ms,
			out_transition_ms = excluded.out_transition_ms,
			in_transition_preroll_ms = excluded.in_transition_preroll_ms,
			in_transition_keepalive_ms = excluded.in_transition_keepalive_ms,
			in_transition_duration_ms = excluded.in_transition_duration_ms,
			disable_out_transition = excluded.disable_out_transition,
			autonext = excluded.autonext,
			autonext_overlap_ms = excluded.autonext_overlap_ms`

	for i := range parts {
		p := &parts[i]
		if _, err := tx.ExecContext(ctx, query,
			p.ID,
			p.SegmentID,
			p.RundownID,
			p.ExternalID,
			p.Title,
			p.Rank,
			boolToInt(p.Floated),
			nullableInt(p.ExpectedDurationMS),
			p.PrerollMS,
			p.OutTransitionMS,
			p.InTransitionPrerollMS,
			p.InTransitionKeepaliveMS,
			p.InTransitionDurationMS,
			boolToInt(p.DisableOutTransition),
			boolToInt(p.AutoNext),
			p.AutoNextOverlapMS,
		); err != nil {
			return fmt.Errorf("upserting part %q: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteParts removes parts by id.
func (r *SQLiteRepository) DeleteParts(ctx context.Context, ids []string) error {
	if err := r.deleteByIDs(ctx, "parts", ids); err != nil {
		return fmt.Errorf("deleting parts: %w", err)
	}
	return nil
}

func scanPart(scanner rowScanner) (*Part, error) {
	var p Part
	var floated, disableOut, autoNext int
	var expectedDuration sql.NullInt64

	err := scanner.Scan(
		&p.ID,
		&p.SegmentID,
		&p.RundownID,
		&p.ExternalID,
		&p.Title,
		&p.Rank,
		&floated,
		&expectedDuration,
		&p.PrerollMS,
		&p.OutTransitionMS,
		&p.InTransitionPrerollMS,
		&p.InTransitionKeepaliveMS,
		&p.InTransitionDurationMS,
		&disableOut,
		&autoNext,
		&p.AutoNextOverlapMS,
	)
	if err != nil {
		return nil, err
	}

	p.Floated = floated != 0
	p.DisableOutTransition = disableOut != 0
	p.AutoNext = autoNext != 0
	if expectedDuration.Valid {
		v := int(expectedDuration.Int64)
		p.ExpectedDurationMS = &v
	}
	return &p, nil
}

// ─── Pieces ─────────────────────────────────────────────────────────────────

// ListPieces retrieves all pieces of a rundown.
func (r *SQLiteRepository) ListPieces(ctx context.Context, rundownID string) ([]Piece, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, part_id, rundown_id, name, layer, enable_start_ms, duration_ms, lifespan, content
		FROM pieces
		WHERE rundown_id = ?
		ORDER BY part_id, enable_start_ms, id`, rundownID)
	if err != nil {
		return nil, fmt.Errorf("querying pieces: %w", err)
	}
	defer rows.Close()

	var pieces []Piece
	for rows.Next() {
		var p Piece
		var duration sql.NullInt64
		var lifespan, content string
		if err := rows.Scan(&p.ID, &p.PartID, &p.RundownID, &p.Name, &p.Layer,
			&p.EnableStartMS, &duration, &lifespan, &content); err != nil {
			return nil, fmt.Errorf("scanning piece: %w", err)
		}
		if duration.Valid {
			v := int(duration.Int64)
			p.DurationMS = &v
		}
		p.Lifespan = Lifespan(lifespan)
		if content != "" {
			if err := json.Unmarshal([]byte(content), &p.Content); err != nil {
				return nil, fmt.Errorf("unmarshalling piece content: %w", err)
			}
		}
		pieces = append(pieces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pieces: %w", err)
	}
	return pieces, nil
}

// UpsertPieces inserts or replaces pieces in a single transaction.
func (r *SQLiteRepository) UpsertPieces(ctx context.Context, pieces []Piece) error {
	if len(pieces) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	query := `
		INSERT INTO pieces (id, part_id, rundown_id, name, layer, enable_start_ms, duration_ms, lifespan, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			part_id = excluded.part_id,
			rundown_id = excluded.rundown_id,
			name = excluded.name,
			layer = excluded.layer,
			enable_start_ms = excluded.enable_start_ms,
			duration_ms = excluded.duration_ms,
			lifespan = excluded.lifespan,
			content = excluded.content`

	for i := range pieces {
		p := &pieces[i]
		content := "{}"
		if p.Content != nil {
			data, marshalErr := json.Marshal(p.Content)
			if marshalErr != nil {
				return fmt.Errorf("marshalling piece content: %w", marshalErr)
			}
			content = string(data)
		}

		if _, err := tx.ExecContext(ctx, query,
			p.ID,
			p.PartID,
			p.RundownID,
			p.Name,
			p.Layer,
			p.EnableStartMS,
			nullableInt(p.DurationMS),
			string(p.Lifespan),
			content,
		); err != nil {
			return fmt.Errorf("upserting piece %q: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// DeletePieces removes pieces by id.
func (r *SQLiteRepository) DeletePieces(ctx context.Context, ids []string) error {
	if err := r.deleteByIDs(ctx, "pieces", ids); err != nil {
		return fmt.Errorf("deleting pieces: %w", err)
	}
	return nil
}
