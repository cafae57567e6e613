package mqtt

import "fmt"

// Topic prefixes for the gateway boundary. Gateways diff published
// timelines by hash and report playback progress back on the playback
// topic.
const (
	// TopicPrefix is the base for all core topics.
	TopicPrefix = "onair"

	// TopicPrefixSystem is the base for system status topics.
	TopicPrefixSystem = "onair/system"
)

// Topics provides builders for the MQTT topic hierarchy. Using these
// helpers keeps topic naming consistent across core and gateways.
type Topics struct{}

// Timeline returns the topic a studio's timeline is published on.
// Retained, so a freshly connected gateway sees the current timeline.
//
// Example: onair/timeline/studio0
func (Topics) Timeline(studioID string) string {
	return fmt.Sprintf("%s/timeline/%s", TopicPrefix, studioID)
}

// Playback returns the topic gateways report playback timing on.
//
// Example: onair/playback/studio0
func (Topics) Playback(studioID string) string {
	return fmt.Sprintf("%s/playback/%s", TopicPrefix, studioID)
}

// GatewayStatus returns the heartbeat topic for one gateway.
//
// Example: onair/status/caspar-gw-1
func (Topics) GatewayStatus(gatewayID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, gatewayID)
}

// AllGatewayStatuses returns the wildcard pattern covering every gateway
// heartbeat.
func (Topics) AllGatewayStatuses() string {
	return TopicPrefix + "/status/#"
}

// SystemStatus returns the core's own online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// GatewayIDFromStatusTopic extracts the gateway id from a status topic.
// Returns "" when the topic does not match the status hierarchy.
func GatewayIDFromStatusTopic(topic string) string {
	prefix := TopicPrefix + "/status/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	return topic[len(prefix):]
}
