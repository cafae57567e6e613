package timeline

import "github.com/nerrad567/onair-core/internal/rundown"

// PartTimings is the offset set governing one part-to-part switch.
// All values are milliseconds relative to the take time.
type PartTimings struct {
	// ToPartDelayMS is how long after the take the incoming part's
	// content starts.
	ToPartDelayMS int

	// FromPartRemainingMS is how long after the take the outgoing part
	// stays alive.
	FromPartRemainingMS int

	// TransitionUsed reports whether an in-transition piece runs on this
	// take.
	TransitionUsed bool

	// InTransitionStartMS is when the transition piece starts, relative
	// to the take. Meaningful only when TransitionUsed.
	InTransitionStartMS int
}

// CalculatePartTimings computes the switch offsets for taking into toPart
// out of fromPart. fromPart is nil on the first take of an activation.
//
// Without a transition piece the switch is delayed by the largest of the
// outgoing part's out-transition and the incoming part's preroll; the
// outgoing part is kept alive for exactly that delay.
//
// With a transition piece, the incoming content additionally waits for the
// transition's own preroll, and the outgoing part is kept alive for the
// transition's keepalive. Both are folded in whole so neither is truncated.
//
// A transition is suppressed while a hold is active and when the outgoing
// part disables its out transition.
func CalculatePartTimings(fromPart, toPart *rundown.Part, holdActive bool) PartTimings {
	outTransitionMS := 0
	transitionAllowed := !holdActive
	if fromPart != nil {
		outTransitionMS = fromPart.OutTransitionMS
		if fromPart.DisableOutTransition {
			transitionAllowed = false
		}
	} else {
		// Nothing to transition from.
		transitionAllowed = false
	}

	hasInTransition := toPart.InTransitionDurationMS > 0 ||
		toPart.InTransitionPrerollMS > 0 ||
		toPart.InTransitionKeepaliveMS > 0

	if !transitionAllowed || !hasInTransition {
		delay := maxInt(0, outTransitionMS, toPart.PrerollMS)
		return PartTimings{
			ToPartDelayMS:       delay,
			FromPartRemainingMS: delay,
		}
	}

	return PartTimings{
		ToPartDelayMS:       maxInt(0, toPart.InTransitionPrerollMS, toPart.PrerollMS),
		FromPartRemainingMS: maxInt(outTransitionMS, toPart.InTransitionKeepaliveMS),
		TransitionUsed:      true,
		InTransitionStartMS: 0,
	}
}

func maxInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
