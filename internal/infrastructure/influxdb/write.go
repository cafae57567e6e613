package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// TakeDuration records the wall-clock cost of one take operation, from
// lock acquisition through timeline publish.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) TakeDuration(playlistID string, d time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"playout_take",
		map[string]string{
			"playlist_id": playlistID,
		},
		map[string]interface{}{
			"duration_ms": float64(d.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// TimelineGeneration records one timeline build and publish cycle.
//
// Parameters:
//   - studioID: Studio whose timeline was regenerated
//   - d: Generation duration including persistence and publish
//   - objects: Flattened object count of the published timeline
func (c *Client) TimelineGeneration(studioID string, d time.Duration, objects int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"timeline_generation",
		map[string]string{
			"studio_id": studioID,
		},
		map[string]interface{}{
			"duration_ms": float64(d.Milliseconds()),
			"objects":     objects,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// IngestReconciliation records one NRCS reconciliation pass.
//
// structural marks passes that changed rundown structure and therefore
// triggered a playout revalidation.
func (c *Client) IngestReconciliation(studioID, externalID string, d time.Duration, structural bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"ingest_reconciliation",
		map[string]string{
			"studio_id":   studioID,
			"external_id": externalID,
		},
		map[string]interface{}{
			"duration_ms": float64(d.Milliseconds()),
			"structural":  structural,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
// Use this when the timestamp is not "now" (e.g., replayed gateway data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
