package timeline

import "time"

// reconcileNow carries previously concretised "now" values forward.
// An object whose trigger is still "now" inherits the absolute value the
// previous timeline recorded for the same object id, if any. Re-evaluating
// a "now" mid-playback would visibly jump content that is already on air.
func reconcileNow(objs []Obj, previous *Timeline) []Obj {
	if previous == nil {
		return objs
	}

	concrete := make(map[string]int64)
	for i := range previous.Objects {
		t := &previous.Objects[i].Trigger
		if t.Type == TriggerAbsolute && t.SetFromNow {
			concrete[previous.Objects[i].ID] = t.TimeMS
		}
	}
	if len(concrete) == 0 {
		return objs
	}

	for i := range objs {
		if objs[i].Trigger.Type != TriggerNow {
			continue
		}
		if timeMS, ok := concrete[objs[i].ID]; ok {
			objs[i].Trigger = Trigger{
				Type:       TriggerAbsolute,
				TimeMS:     timeMS,
				SetFromNow: true,
			}
		}
	}
	return objs
}

// denowify concretises every remaining "now" trigger against the given
// wall-clock time. Required in multi-gateway mode: a literal "now" cannot
// be interpreted consistently by more than one independent resolver.
func denowify(objs []Obj, now time.Time) []Obj {
	nowMS := now.UnixMilli()
	for i := range objs {
		if objs[i].Trigger.Type == TriggerNow {
			objs[i].Trigger = Trigger{
				Type:       TriggerAbsolute,
				TimeMS:     nowMS,
				SetFromNow: true,
			}
		}
	}
	return objs
}
