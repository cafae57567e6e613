// Package gateway tracks the liveness of playout gateways from their
// retained MQTT status publications.
//
// Gateways publish JSON status payloads on onair/status/{gatewayID} and an
// MQTT last-will marks them offline on an unclean disconnect. The tracker
// folds those publications into a last-seen table the health endpoint and
// WebSocket clients read.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package gateway

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Status is the tracked state of one gateway.
type Status struct {
	GatewayID string    `json:"gateway_id"`
	Online    bool      `json:"online"`
	Version   string    `json:"version,omitempty"`
	LastSeen  time.Time `json:"last_seen"`
}

// statusPayload is the wire shape gateways publish.
type statusPayload struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Tracker maintains the last-seen table for all gateways of one studio.
type Tracker struct {
	mu       sync.RWMutex
	gateways map[string]Status
	now      func() time.Time

	// onChange, when set, is called after every state transition with the
	// updated status. Used to relay gateway state to WebSocket clients.
	onChange func(Status)
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		gateways: make(map[string]Status),
		now:      time.Now,
	}
}

// SetOnChange registers a callback invoked after each observed transition.
// The callback must not block.
func (t *Tracker) SetOnChange(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Observe records one status publication for a gateway. Malformed payloads
// are treated as an online heartbeat with no version.
func (t *Tracker) Observe(gatewayID string, payload []byte) {
	if gatewayID == "" {
		return
	}

	var p statusPayload
	online := true
	if err := json.Unmarshal(payload, &p); err == nil {
		online = p.Status != "offline"
	}

	st := Status{
		GatewayID: gatewayID,
		Online:    online,
		Version:   p.Version,
		LastSeen:  t.now(),
	}

	t.mu.Lock()
	t.gateways[gatewayID] = st
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

// Get returns the tracked status for one gateway.
func (t *Tracker) Get(gatewayID string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.gateways[gatewayID]
	return st, ok
}

// Snapshot returns all tracked gateways ordered by id.
func (t *Tracker) Snapshot() []Status {
	t.mu.RLock()
	out := make([]Status, 0, len(t.gateways))
	for _, st := range t.gateways {
		out = append(out, st)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].GatewayID < out[j].GatewayID })
	return out
}

// OnlineCount returns how many gateways are currently marked online after
// applying the staleness timeout. A gateway that stopped publishing is not
// online no matter what its last payload said.
func (t *Tracker) OnlineCount(staleAfter time.Duration) int {
	cutoff := t.now().Add(-staleAfter)

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, st := range t.gateways {
		if st.Online && st.LastSeen.After(cutoff) {
			n++
		}
	}
	return n
}
