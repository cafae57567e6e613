package blueprint

// IngestRundown is the external (NRCS) representation of a rundown: the
// shape ingest diffs and blueprints transform. Identifiers here are the
// source system's own; the core derives its internal ids from them.
type IngestRundown struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`

	// Type identifies the source system ("mos", "ino", "http", ...).
	// Rename detection across partial deletes is honoured for MOS only.
	Type string `json:"type"`

	Segments []IngestSegment `json:"segments"`

	// Payload carries source fields the core does not interpret.
	Payload map[string]any `json:"payload,omitempty"`
}

// IngestSegment is the external representation of a segment.
type IngestSegment struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Rank       float64 `json:"rank"`

	Parts []IngestPart `json:"parts"`

	Payload map[string]any `json:"payload,omitempty"`
}

// IngestPart is the external representation of a part.
type IngestPart struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Rank       float64 `json:"rank"`

	Payload map[string]any `json:"payload,omitempty"`
}

// DeepCopy creates an independent copy of the ingest rundown.
func (r *IngestRundown) DeepCopy() *IngestRundown {
	if r == nil {
		return nil
	}
	cpy := *r
	cpy.Segments = make([]IngestSegment, len(r.Segments))
	for i := range r.Segments {
		s := r.Segments[i]
		s.Parts = append([]IngestPart(nil), s.Parts...)
		for j := range s.Parts {
			s.Parts[j].Payload = copyPayload(s.Parts[j].Payload)
		}
		s.Payload = copyPayload(s.Payload)
		cpy.Segments[i] = s
	}
	cpy.Payload = copyPayload(r.Payload)
	return &cpy
}

func copyPayload(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}
