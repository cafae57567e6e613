package timeline

import (
	"errors"
	"fmt"
)

// Validation errors for the flattened object graph.
var (
	ErrDuplicateObjectID = errors.New("timeline: duplicate object id")
	ErrMissingObjectID   = errors.New("timeline: object without id")
	ErrDanglingGroupRef  = errors.New("timeline: group reference to unknown object")
	ErrDanglingTrigger   = errors.New("timeline: relative trigger references unknown object")
)

// Flatten promotes nested group children to a flat list, stamping each
// child with its parent's id, then validates the result. The returned
// slice preserves document order: a group precedes its children.
func Flatten(objs []Obj) ([]Obj, error) {
	var flat []Obj
	var walk func(objs []Obj, parent string)
	walk = func(objs []Obj, parent string) {
		for i := range objs {
			o := *objs[i].DeepCopy()
			if parent != "" {
				o.GroupID = parent
			}
			children := o.Children
			o.Children = nil
			flat = append(flat, o)
			if len(children) > 0 {
				walk(children, o.ID)
			}
		}
	}
	walk(objs, "")

	if err := validate(flat); err != nil {
		return nil, err
	}
	return flat, nil
}

// validate checks the flattened list for structural soundness.
func validate(objs []Obj) error {
	ids := make(map[string]bool, len(objs))
	for i := range objs {
		if objs[i].ID == "" {
			return ErrMissingObjectID
		}
		if ids[objs[i].ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateObjectID, objs[i].ID)
		}
		ids[objs[i].ID] = true
	}

	for i := range objs {
		o := &objs[i]
		if o.GroupID != "" && !ids[o.GroupID] {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingGroupRef, o.ID, o.GroupID)
		}
		if o.Trigger.Type == TriggerRelative && !ids[o.Trigger.ObjectID] {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingTrigger, o.ID, o.Trigger.ObjectID)
		}
	}
	return nil
}
