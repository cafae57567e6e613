package rundown

import "time"

// HoldState is the playlist hold sub-state machine.
// Transitions: None → Active → Complete → None.
type HoldState string

const (
	// HoldNone means no hold is in progress.
	HoldNone HoldState = "none"

	// HoldActive suppresses transition pieces for the pending take.
	HoldActive HoldState = "active"

	// HoldComplete marks a hold that has run its take and awaits clearing.
	HoldComplete HoldState = "complete"
)

// Orphaned marks an entity removed from the upstream source but retained
// because live playout still references it.
type Orphaned string

const (
	// OrphanedNone is the zero value: the entity is present upstream.
	OrphanedNone Orphaned = ""

	// OrphanedDeleted marks an entity deleted upstream but kept on air.
	OrphanedDeleted Orphaned = "deleted"

	// OrphanedScratchpad marks the ad-hoc content segment that has no
	// upstream counterpart at all.
	OrphanedScratchpad Orphaned = "scratchpad"

	// OrphanedAdLib marks a part instance created for ad-lib content.
	OrphanedAdLib Orphaned = "adlib-part"
)

// Lifespan controls how far a piece may outlive the part that started it.
type Lifespan string

const (
	// LifespanPart ends the piece with its part.
	LifespanPart Lifespan = "part"

	// LifespanSegment lets the piece continue across takes within a segment.
	LifespanSegment Lifespan = "segment"

	// LifespanRundown lets the piece continue for the rest of the rundown.
	LifespanRundown Lifespan = "rundown"

	// LifespanInfinite lets the piece continue until explicitly stopped.
	LifespanInfinite Lifespan = "infinite"
)

// PartRef points at one PartInstance and the rundown that owns it.
// The playlist stores three of these: current, next, previous.
type PartRef struct {
	PartInstanceID string `json:"part_instance_id"`
	RundownID      string `json:"rundown_id"`

	// ManuallySelected is meaningful on the next pointer only: a next part
	// chosen by an operator is sticky and survives unrelated ingest churn.
	ManuallySelected bool `json:"manually_selected,omitempty"`
}

// Playlist is an ordered group of rundowns played out together.
type Playlist struct {
	ID       string `json:"id"`
	StudioID string `json:"studio_id"`
	Name     string `json:"name"`

	// ActivationID is set while the playlist is on air; nil means inactive.
	// A non-nil activation id implies the studio timeline is actively
	// generated for this playlist.
	ActivationID *string `json:"activation_id,omitempty"`

	Rehearsal bool      `json:"rehearsal"`
	HoldState HoldState `json:"hold_state"`

	CurrentPart  *PartRef `json:"current_part,omitempty"`
	NextPart     *PartRef `json:"next_part,omitempty"`
	PreviousPart *PartRef `json:"previous_part,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the playlist is on air.
func (p *Playlist) Active() bool {
	return p.ActivationID != nil && *p.ActivationID != ""
}

// DeepCopy creates an independent copy of the Playlist.
func (p *Playlist) DeepCopy() *Playlist {
	if p == nil {
		return nil
	}
	cpy := *p
	cpy.CurrentPart = copyPartRef(p.CurrentPart)
	cpy.NextPart = copyPartRef(p.NextPart)
	cpy.PreviousPart = copyPartRef(p.PreviousPart)
	if p.ActivationID != nil {
		v := *p.ActivationID
		cpy.ActivationID = &v
	}
	return &cpy
}

func copyPartRef(r *PartRef) *PartRef {
	if r == nil {
		return nil
	}
	cpy := *r
	return &cpy
}

// Rundown is one show's worth of segments, owned by exactly one playlist
// and sourced from one external system.
type Rundown struct {
	ID         string `json:"id"`
	PlaylistID string `json:"playlist_id"`
	StudioID   string `json:"studio_id"`

	// ExternalID is the NRCS identifier. The rundown id is derived
	// deterministically from (studio_id, external_id).
	ExternalID string `json:"external_id"`

	Name string `json:"name"`

	// Show style selects the blueprint used to interpret this rundown.
	ShowStyleBaseID    string `json:"show_style_base_id"`
	ShowStyleVariantID string `json:"show_style_variant_id"`

	Rank     float64  `json:"rank"`
	Orphaned Orphaned `json:"orphaned,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates an independent copy of the Rundown.
func (r *Rundown) DeepCopy() *Rundown {
	if r == nil {
		return nil
	}
	cpy := *r
	return &cpy
}

// Segment is an ordered, named grouping of parts within a rundown.
type Segment struct {
	ID         string   `json:"id"`
	RundownID  string   `json:"rundown_id"`
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Rank       float64  `json:"rank"`
	Orphaned   Orphaned `json:"orphaned,omitempty"`
}

// DeepCopy creates an independent copy of the Segment.
func (s *Segment) DeepCopy() *Segment {
	if s == nil {
		return nil
	}
	cpy := *s
	return &cpy
}

// Part is a schedulable unit within a segment.
type Part struct {
	ID         string `json:"id"`
	SegmentID  string `json:"segment_id"`
	RundownID  string `json:"rundown_id"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`

	// Rank orders parts within their segment.
	Rank float64 `json:"rank"`

	// Floated parts are present in the rundown but excluded from playout.
	Floated bool `json:"floated"`

	ExpectedDurationMS *int `json:"expected_duration_ms,omitempty"`

	// PrerollMS is how long this part's content needs before its on-air time.
	PrerollMS int `json:"preroll_ms"`

	// OutTransitionMS is how long the previous part must be kept alive
	// after this part becomes current.
	OutTransitionMS int `json:"out_transition_ms"`

	// In-transition timing, used when a transition piece runs on the take
	// into this part.
	InTransitionPrerollMS   int `json:"in_transition_preroll_ms"`
	InTransitionKeepaliveMS int `json:"in_transition_keepalive_ms"`
	InTransitionDurationMS  int `json:"in_transition_duration_ms"`

	// DisableOutTransition suppresses the outgoing transition when taking
	// out of this part.
	DisableOutTransition bool `json:"disable_out_transition"`

	AutoNext          bool `json:"autonext"`
	AutoNextOverlapMS int  `json:"autonext_overlap_ms"`
}

// Playable reports whether the part can be taken.
func (p *Part) Playable() bool {
	return !p.Floated
}

// DeepCopy creates an independent copy of the Part.
func (p *Part) DeepCopy() *Part {
	if p == nil {
		return nil
	}
	cpy := *p
	if p.ExpectedDurationMS != nil {
		v := *p.ExpectedDurationMS
		cpy.ExpectedDurationMS = &v
	}
	return &cpy
}

// Piece is playable content attached to a part.
type Piece struct {
	ID        string `json:"id"`
	PartID    string `json:"part_id"`
	RundownID string `json:"rundown_id"`
	Name      string `json:"name"`

	// Layer is the output layer the piece plays on; one piece per layer
	// is active at a time.
	Layer string `json:"layer"`

	// EnableStartMS is the piece start offset relative to its part.
	EnableStartMS int  `json:"enable_start_ms"`
	DurationMS    *int `json:"duration_ms,omitempty"`

	Lifespan Lifespan `json:"lifespan"`

	// Content is the gateway-interpreted payload; opaque to the core.
	Content map[string]any `json:"content"`
}

// Infinite reports whether the piece may span multiple parts.
func (p *Piece) Infinite() bool {
	return p.Lifespan != LifespanPart
}

// DeepCopy creates an independent copy of the Piece.
func (p *Piece) DeepCopy() *Piece {
	if p == nil {
		return nil
	}
	cpy := *p
	if p.DurationMS != nil {
		v := *p.DurationMS
		cpy.DurationMS = &v
	}
	cpy.Content = deepCopyMap(p.Content)
	return &cpy
}

// PlaybackTimings holds reported playback timestamps.
// Writes are first-write-wins: a duplicate device callback must not
// corrupt timing history.
type PlaybackTimings struct {
	TakenAt         *time.Time `json:"taken_at,omitempty"`
	StartedPlayback *time.Time `json:"started_playback,omitempty"`
	StoppedPlayback *time.Time `json:"stopped_playback,omitempty"`
}

func (t PlaybackTimings) deepCopy() PlaybackTimings {
	cpy := t
	if t.TakenAt != nil {
		v := *t.TakenAt
		cpy.TakenAt = &v
	}
	if t.StartedPlayback != nil {
		v := *t.StartedPlayback
		cpy.StartedPlayback = &v
	}
	if t.StoppedPlayback != nil {
		v := *t.StoppedPlayback
		cpy.StoppedPlayback = &v
	}
	return cpy
}

// PartNote is a persisted annotation on a part instance, typically left by
// a blueprint decision hook. Notes survive with the instance so operators
// can see why playout treated it the way it did.
type PartNote struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// PartInstance is a playout-time instantiation of a Part. One part may have
// many instances across takes and rehearsals. Identity is immutable once
// created; only timing/state fields are mutated afterwards.
type PartInstance struct {
	ID           string `json:"id"`
	PartID       string `json:"part_id"`
	SegmentID    string `json:"segment_id"`
	RundownID    string `json:"rundown_id"`
	ActivationID string `json:"activation_id"`

	// TakeCount orders instances within one activation.
	TakeCount int  `json:"take_count"`
	Rehearsal bool `json:"rehearsal"`

	Orphaned Orphaned `json:"orphaned,omitempty"`

	// Reset marks an instance no longer reachable from the playlist's part
	// pointers; reset instances are ignored by playout and timeline output.
	Reset bool `json:"reset"`

	Timings PlaybackTimings `json:"timings"`

	Notes []PartNote `json:"notes,omitempty"`

	// Part is the frozen snapshot taken at instantiation.
	Part Part `json:"part"`
}

// DeepCopy creates an independent copy of the PartInstance.
func (pi *PartInstance) DeepCopy() *PartInstance {
	if pi == nil {
		return nil
	}
	cpy := *pi
	cpy.Timings = pi.Timings.deepCopy()
	cpy.Notes = append([]PartNote(nil), pi.Notes...)
	cpy.Part = *pi.Part.DeepCopy()
	return &cpy
}

// PieceInstance is a playout-time instantiation of a Piece.
type PieceInstance struct {
	ID             string `json:"id"`
	PartInstanceID string `json:"part_instance_id"`
	PieceID        string `json:"piece_id"`
	RundownID      string `json:"rundown_id"`

	// InfiniteInstanceID groups the piece instances that represent a single
	// continuous on-air presence spanning multiple parts. Continuations
	// share the id of the instance that first started the content.
	InfiniteInstanceID *string `json:"infinite_instance_id,omitempty"`

	// InfiniteFromPrevious marks a continuation: the content was already
	// playing before this part instance started and must not re-trigger.
	InfiniteFromPrevious bool `json:"infinite_from_previous"`

	Reset bool `json:"reset"`

	StartedPlayback *time.Time `json:"started_playback,omitempty"`
	StoppedPlayback *time.Time `json:"stopped_playback,omitempty"`

	// Piece is the frozen snapshot taken at instantiation.
	Piece Piece `json:"piece"`
}

// DeepCopy creates an independent copy of the PieceInstance.
func (pi *PieceInstance) DeepCopy() *PieceInstance {
	if pi == nil {
		return nil
	}
	cpy := *pi
	if pi.InfiniteInstanceID != nil {
		v := *pi.InfiniteInstanceID
		cpy.InfiniteInstanceID = &v
	}
	if pi.StartedPlayback != nil {
		v := *pi.StartedPlayback
		cpy.StartedPlayback = &v
	}
	if pi.StoppedPlayback != nil {
		v := *pi.StoppedPlayback
		cpy.StoppedPlayback = &v
	}
	cpy.Piece = *pi.Piece.DeepCopy()
	return &cpy
}

// PlayoutEvent is an audit record of a playout action (activate, take,
// hold, deactivate) on one playlist.
type PlayoutEvent struct {
	ID             string         `json:"id"`
	PlaylistID     string         `json:"playlist_id"`
	EventType      string         `json:"event_type"`
	PartInstanceID *string        `json:"part_instance_id,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives are safe to copy by value.
		return v
	}
}
