package timeline

import (
	"testing"

	"github.com/nerrad567/onair-core/internal/rundown"
)

func TestCalculatePartTimings_NoTransition(t *testing.T) {
	from := &rundown.Part{OutTransitionMS: 300}
	to := &rundown.Part{PrerollMS: 500}

	got := CalculatePartTimings(from, to, false)

	if got.TransitionUsed {
		t.Fatal("expected no transition")
	}
	if got.ToPartDelayMS != 500 {
		t.Errorf("ToPartDelayMS = %d, want 500", got.ToPartDelayMS)
	}
	if got.FromPartRemainingMS != 500 {
		t.Errorf("FromPartRemainingMS = %d, want 500", got.FromPartRemainingMS)
	}
}

func TestCalculatePartTimings_OutTransitionDominates(t *testing.T) {
	from := &rundown.Part{OutTransitionMS: 800}
	to := &rundown.Part{PrerollMS: 200}

	got := CalculatePartTimings(from, to, false)

	if got.ToPartDelayMS != 800 || got.FromPartRemainingMS != 800 {
		t.Errorf("got %+v, want delay and remaining both 800", got)
	}
}

func TestCalculatePartTimings_WithTransitionPiece(t *testing.T) {
	from := &rundown.Part{OutTransitionMS: 400}
	to := &rundown.Part{
		PrerollMS:               100,
		InTransitionDurationMS:  1000,
		InTransitionPrerollMS:   250,
		InTransitionKeepaliveMS: 600,
	}

	got := CalculatePartTimings(from, to, false)

	if !got.TransitionUsed {
		t.Fatal("expected transition to be used")
	}
	if got.ToPartDelayMS != 250 {
		t.Errorf("ToPartDelayMS = %d, want 250", got.ToPartDelayMS)
	}
	if got.FromPartRemainingMS != 600 {
		t.Errorf("FromPartRemainingMS = %d, want 600", got.FromPartRemainingMS)
	}
	if got.InTransitionStartMS != 0 {
		t.Errorf("InTransitionStartMS = %d, want 0", got.InTransitionStartMS)
	}
}

func TestCalculatePartTimings_HoldSuppressesTransition(t *testing.T) {
	from := &rundown.Part{}
	to := &rundown.Part{InTransitionDurationMS: 1000, PrerollMS: 150}

	got := CalculatePartTimings(from, to, true)

	if got.TransitionUsed {
		t.Fatal("transition must be suppressed during hold")
	}
	if got.ToPartDelayMS != 150 {
		t.Errorf("ToPartDelayMS = %d, want 150", got.ToPartDelayMS)
	}
}

func TestCalculatePartTimings_DisabledOutTransition(t *testing.T) {
	from := &rundown.Part{OutTransitionMS: 400, DisableOutTransition: true}
	to := &rundown.Part{InTransitionDurationMS: 1000, InTransitionPrerollMS: 250}

	got := CalculatePartTimings(from, to, false)

	if got.TransitionUsed {
		t.Fatal("outgoing part disabled its transition")
	}
	// The out-transition duration still delays the switch even though the
	// transition piece is skipped.
	if got.ToPartDelayMS != 400 {
		t.Errorf("ToPartDelayMS = %d, want 400", got.ToPartDelayMS)
	}
}

func TestCalculatePartTimings_FirstTake(t *testing.T) {
	to := &rundown.Part{PrerollMS: 120, InTransitionDurationMS: 500}

	got := CalculatePartTimings(nil, to, false)

	if got.TransitionUsed {
		t.Fatal("no transition possible on the first take")
	}
	if got.ToPartDelayMS != 120 || got.FromPartRemainingMS != 120 {
		t.Errorf("got %+v, want delay and remaining both 120", got)
	}
}
