package ingest

import (
	"fmt"

	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/rundown"
)

// generateSegment builds the stored segment for an ingest segment.
func generateSegment(rundownID string, seg *blueprint.IngestSegment) rundown.Segment {
	return rundown.Segment{
		ID:         rundown.DeriveSegmentID(rundownID, seg.ExternalID),
		RundownID:  rundownID,
		ExternalID: seg.ExternalID,
		Name:       seg.Name,
		Rank:       seg.Rank,
	}
}

// generatePart builds the stored part for an ingest part. Timing and
// behaviour fields come from well-known payload keys; absent keys fall back
// to zero values.
func generatePart(rundownID, segmentID string, part *blueprint.IngestPart) rundown.Part {
	p := rundown.Part{
		ID:         rundown.DerivePartID(rundownID, part.ExternalID),
		SegmentID:  segmentID,
		RundownID:  rundownID,
		ExternalID: part.ExternalID,
		Title:      part.Name,
		Rank:       part.Rank,
	}

	p.Floated = payloadBool(part.Payload, "floated")
	p.AutoNext = payloadBool(part.Payload, "autonext")
	p.DisableOutTransition = payloadBool(part.Payload, "disable_out_transition")

	if v, ok := payloadInt(part.Payload, "expected_duration_ms"); ok {
		p.ExpectedDurationMS = &v
	}
	p.PrerollMS, _ = payloadInt(part.Payload, "preroll_ms")
	p.OutTransitionMS, _ = payloadInt(part.Payload, "out_transition_ms")
	p.InTransitionPrerollMS, _ = payloadInt(part.Payload, "in_transition_preroll_ms")
	p.InTransitionKeepaliveMS, _ = payloadInt(part.Payload, "in_transition_keepalive_ms")
	p.InTransitionDurationMS, _ = payloadInt(part.Payload, "in_transition_duration_ms")
	p.AutoNextOverlapMS, _ = payloadInt(part.Payload, "autonext_overlap_ms")

	return p
}

// generatePieces builds the stored pieces for an ingest part from its
// payload's "pieces" list. Malformed entries are skipped; ingest carries on
// with what it can interpret.
func generatePieces(rundownID, partID string, part *blueprint.IngestPart) []rundown.Piece {
	raw, ok := part.Payload["pieces"].([]any)
	if !ok {
		return nil
	}

	var pieces []rundown.Piece
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		name, _ := m["name"].(string)
		layer, _ := m["layer"].(string)
		if layer == "" {
			continue
		}

		key, _ := m["id"].(string)
		if key == "" {
			key = fmt.Sprintf("%s/%s/%d", name, layer, i)
		}

		piece := rundown.Piece{
			ID:        rundown.DerivePieceID(partID, key),
			PartID:    partID,
			RundownID: rundownID,
			Name:      name,
			Layer:     layer,
			Lifespan:  rundown.LifespanPart,
		}
		piece.EnableStartMS, _ = payloadInt(m, "enable_start_ms")
		if v, ok := payloadInt(m, "duration_ms"); ok {
			piece.DurationMS = &v
		}
		if ls, ok := m["lifespan"].(string); ok && ls != "" {
			piece.Lifespan = rundown.Lifespan(ls)
		}
		if content, ok := m["content"].(map[string]any); ok {
			piece.Content = content
		}
		pieces = append(pieces, piece)
	}
	return pieces
}

// payloadBool reads a boolean payload key.
func payloadBool(payload map[string]any, key string) bool {
	v, _ := payload[key].(bool)
	return v
}

// payloadInt reads a numeric payload key. JSON decoding yields float64 for
// all numbers; native ints are accepted for payloads built in-process.
func payloadInt(payload map[string]any, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
