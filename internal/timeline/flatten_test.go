package timeline

import (
	"errors"
	"testing"
)

func TestFlatten_PromotesChildren(t *testing.T) {
	objs := []Obj{
		{
			ID:      "grp",
			IsGroup: true,
			Trigger: Now(),
			Children: []Obj{
				{ID: "a", Layer: "video", Trigger: RelativeTo("grp", AnchorStart, 0)},
				{ID: "b", Layer: "gfx", Trigger: RelativeTo("grp", AnchorStart, 250)},
			},
		},
		{ID: "standalone", Trigger: Absolute(1000)},
	}

	flat, err := Flatten(objs)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(flat) != 4 {
		t.Fatalf("got %d objects, want 4", len(flat))
	}

	// Document order: group first, then its children.
	wantOrder := []string{"grp", "a", "b", "standalone"}
	for i, id := range wantOrder {
		if flat[i].ID != id {
			t.Errorf("flat[%d].ID = %s, want %s", i, flat[i].ID, id)
		}
	}
	if flat[1].GroupID != "grp" || flat[2].GroupID != "grp" {
		t.Error("children must carry parent group id")
	}
	for i := range flat {
		if flat[i].Children != nil {
			t.Errorf("flat[%d] still carries children", i)
		}
	}
}

func TestFlatten_InputNotMutated(t *testing.T) {
	objs := []Obj{
		{ID: "grp", IsGroup: true, Trigger: Now(), Children: []Obj{
			{ID: "a", Trigger: RelativeTo("grp", AnchorStart, 0)},
		}},
	}

	if _, err := Flatten(objs); err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(objs[0].Children) != 1 {
		t.Error("input object graph was mutated")
	}
}

func TestFlatten_RejectsMissingID(t *testing.T) {
	_, err := Flatten([]Obj{{Trigger: Now()}})
	if !errors.Is(err, ErrMissingObjectID) {
		t.Fatalf("err = %v, want ErrMissingObjectID", err)
	}
}

func TestFlatten_RejectsDuplicateID(t *testing.T) {
	_, err := Flatten([]Obj{
		{ID: "x", Trigger: Now()},
		{ID: "x", Trigger: Now()},
	})
	if !errors.Is(err, ErrDuplicateObjectID) {
		t.Fatalf("err = %v, want ErrDuplicateObjectID", err)
	}
}

func TestFlatten_RejectsDanglingTrigger(t *testing.T) {
	_, err := Flatten([]Obj{
		{ID: "x", Trigger: RelativeTo("nope", AnchorEnd, 0)},
	})
	if !errors.Is(err, ErrDanglingTrigger) {
		t.Fatalf("err = %v, want ErrDanglingTrigger", err)
	}
}

func TestFlatten_RejectsDanglingGroupRef(t *testing.T) {
	_, err := Flatten([]Obj{
		{ID: "x", GroupID: "nope", Trigger: Now()},
	})
	if !errors.Is(err, ErrDanglingGroupRef) {
		t.Fatalf("err = %v, want ErrDanglingGroupRef", err)
	}
}
