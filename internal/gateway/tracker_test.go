package gateway

import (
	"testing"
	"time"
)

func TestObserve_TracksOnlineAndOffline(t *testing.T) {
	tr := NewTracker()

	tr.Observe("gw-1", []byte(`{"status":"online","version":"1.2.0"}`))
	st, ok := tr.Get("gw-1")
	if !ok {
		t.Fatal("gateway not tracked after Observe")
	}
	if !st.Online || st.Version != "1.2.0" {
		t.Errorf("status = %+v, want online with version 1.2.0", st)
	}

	tr.Observe("gw-1", []byte(`{"status":"offline"}`))
	st, _ = tr.Get("gw-1")
	if st.Online {
		t.Error("gateway still online after offline publication")
	}
}

func TestObserve_MalformedPayloadCountsAsHeartbeat(t *testing.T) {
	tr := NewTracker()
	tr.Observe("gw-1", []byte("not json"))

	st, ok := tr.Get("gw-1")
	if !ok || !st.Online {
		t.Errorf("malformed payload should register an online heartbeat, got %+v", st)
	}
}

func TestOnlineCount_AppliesStaleness(t *testing.T) {
	tr := NewTracker()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.Observe("gw-1", []byte(`{"status":"online"}`))
	tr.Observe("gw-2", []byte(`{"status":"online"}`))

	if got := tr.OnlineCount(30 * time.Second); got != 2 {
		t.Fatalf("OnlineCount = %d, want 2", got)
	}

	// gw-2 keeps publishing, gw-1 goes quiet.
	tr.now = func() time.Time { return base.Add(45 * time.Second) }
	tr.Observe("gw-2", []byte(`{"status":"online"}`))

	if got := tr.OnlineCount(30 * time.Second); got != 1 {
		t.Errorf("OnlineCount after staleness = %d, want 1", got)
	}
}

func TestSnapshot_Ordered(t *testing.T) {
	tr := NewTracker()
	tr.Observe("gw-b", []byte(`{"status":"online"}`))
	tr.Observe("gw-a", []byte(`{"status":"online"}`))

	snap := tr.Snapshot()
	if len(snap) != 2 || snap[0].GatewayID != "gw-a" || snap[1].GatewayID != "gw-b" {
		t.Errorf("Snapshot order = %v", snap)
	}
}

func TestOnChangeCallback(t *testing.T) {
	tr := NewTracker()
	var seen []Status
	tr.SetOnChange(func(st Status) { seen = append(seen, st) })

	tr.Observe("gw-1", []byte(`{"status":"online"}`))
	tr.Observe("gw-1", []byte(`{"status":"offline"}`))

	if len(seen) != 2 {
		t.Fatalf("callback fired %d times, want 2", len(seen))
	}
	if !seen[0].Online || seen[1].Online {
		t.Errorf("callback sequence = %+v", seen)
	}
}
