package timeline

import "time"

// TriggerType discriminates the three ways an object's start can be
// expressed.
type TriggerType string

const (
	// TriggerAbsolute starts the object at a concrete wall-clock time.
	TriggerAbsolute TriggerType = "absolute"

	// TriggerRelative starts the object relative to another object's
	// start or end.
	TriggerRelative TriggerType = "relative"

	// TriggerNow starts the object at whatever time the gateway resolves
	// as "now". Resolution happens once; see reconcileNow.
	TriggerNow TriggerType = "now"
)

// Anchor selects which edge of the referenced object a relative trigger
// hangs off.
type Anchor string

const (
	AnchorStart Anchor = "start"
	AnchorEnd   Anchor = "end"
)

// Trigger expresses when an object starts.
type Trigger struct {
	Type TriggerType `json:"type"`

	// TimeMS is the absolute start in unix milliseconds. Used when Type
	// is TriggerAbsolute, and set on a formerly-"now" trigger once its
	// concrete time is known.
	TimeMS int64 `json:"time_ms,omitempty"`

	// ObjectID and Anchor reference another timeline object. Used when
	// Type is TriggerRelative.
	ObjectID string `json:"object_id,omitempty"`
	Anchor   Anchor `json:"anchor,omitempty"`

	// OffsetMS shifts a relative trigger. May be negative.
	OffsetMS int64 `json:"offset_ms,omitempty"`

	// SetFromNow marks an absolute time that was concretised from a
	// "now" trigger. Such values are carried forward across
	// regenerations instead of being re-evaluated.
	SetFromNow bool `json:"set_from_now,omitempty"`
}

// Absolute builds an absolute trigger.
func Absolute(timeMS int64) Trigger {
	return Trigger{Type: TriggerAbsolute, TimeMS: timeMS}
}

// RelativeTo builds a relative trigger.
func RelativeTo(objectID string, anchor Anchor, offsetMS int64) Trigger {
	return Trigger{Type: TriggerRelative, ObjectID: objectID, Anchor: anchor, OffsetMS: offsetMS}
}

// Now builds a "now" trigger.
func Now() Trigger {
	return Trigger{Type: TriggerNow}
}

// Obj is one timeline object: a group or a leaf piece of gateway content.
// Input objects may nest children; Flatten produces the wire form where
// membership is expressed by GroupID alone.
type Obj struct {
	ID    string `json:"id"`
	Layer string `json:"layer,omitempty"`

	Trigger Trigger `json:"trigger"`

	// DurationMS is the object's length; nil means open-ended (runs until
	// something else on the layer replaces it or its group ends).
	DurationMS *int64 `json:"duration_ms,omitempty"`

	// GroupID names the parent group in the flattened form.
	GroupID string `json:"group_id,omitempty"`

	IsGroup  bool  `json:"is_group,omitempty"`
	Children []Obj `json:"children,omitempty"`

	// Priority breaks ties between objects on the same layer.
	Priority int `json:"priority,omitempty"`

	// Content is the gateway-interpreted payload; opaque to the core.
	Content map[string]any `json:"content,omitempty"`
}

// DeepCopy creates an independent copy of the object and its children.
func (o *Obj) DeepCopy() *Obj {
	if o == nil {
		return nil
	}
	cpy := *o
	if o.DurationMS != nil {
		v := *o.DurationMS
		cpy.DurationMS = &v
	}
	if o.Children != nil {
		cpy.Children = make([]Obj, len(o.Children))
		for i := range o.Children {
			cpy.Children[i] = *o.Children[i].DeepCopy()
		}
	}
	if o.Content != nil {
		cpy.Content = make(map[string]any, len(o.Content))
		for k, v := range o.Content {
			cpy.Content[k] = v
		}
	}
	return &cpy
}

// GenerationVersions fingerprints the code and configuration that produced
// a timeline. Gateways compare these to decide whether a regeneration can
// change anything at all.
type GenerationVersions struct {
	Core       string `json:"core"`
	Blueprint  string `json:"blueprint"`
	StudioName string `json:"studio_name"`
}

// Timeline is the published artifact for one studio: the flattened object
// graph plus the hash and version stamp gateways diff against.
type Timeline struct {
	StudioID string `json:"studio_id"`
	Objects  []Obj  `json:"objects"`

	// Hash covers object content and count; identical state regenerates
	// to an identical hash.
	Hash string `json:"timeline_hash"`

	Versions GenerationVersions `json:"generation_versions"`

	// Generation counts regenerations since activation; informational.
	Generation  int64     `json:"generation"`
	GeneratedAt time.Time `json:"generated_at"`
}
