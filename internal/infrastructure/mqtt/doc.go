// Package mqtt provides MQTT client connectivity for the core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Timeline publication with QoS guarantees and retained state
//   - Playback and gateway-status subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the gateway boundary: the core publishes each studio's timeline
// on a retained topic, and playout gateways report playback timing and
// their own heartbeats back over the same broker.
//
//	Core ──▶ onair/timeline/{studio}   (retained, hash-diffed by gateways)
//	Core ◀── onair/playback/{studio}   (timing reports)
//	Core ◀── onair/status/{gateway}    (heartbeats)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllGatewayStatuses(), 1,
//	    func(topic string, payload []byte) error {
//	        gw := mqtt.GatewayIDFromStatusTopic(topic)
//	        log.Printf("gateway %s: %s", gw, payload)
//	        return nil
//	    })
package mqtt
