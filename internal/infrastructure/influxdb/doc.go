// Package influxdb provides InfluxDB connectivity for playout telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched metric writing, and health monitoring.
//
// # Purpose
//
// This package stores time-series data for:
//   - Take latency (lock to publish)
//   - Timeline generation cost and object counts
//   - Ingest reconciliation timings
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "onair",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.TakeDuration("pl_morning", 12*time.Millisecond)
//
// The domain-facing methods satisfy the playout and ingest services'
// metrics interfaces, so a *Client can be passed to both directly.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
