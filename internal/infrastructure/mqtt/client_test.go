package mqtt

import (
	"strings"
	"testing"

	"github.com/nerrad567/onair-core/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "onair-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	cases := []struct {
		got  string
		want string
	}{
		{topics.Timeline("studio0"), "onair/timeline/studio0"},
		{topics.Playback("studio0"), "onair/playback/studio0"},
		{topics.GatewayStatus("caspar-1"), "onair/status/caspar-1"},
		{topics.AllGatewayStatuses(), "onair/status/#"},
		{topics.SystemStatus(), "onair/system/status"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("topic = %q, want %q", tc.got, tc.want)
		}
	}
}

func TestGatewayIDFromStatusTopic(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{"onair/status/caspar-1", "caspar-1"},
		{"onair/status/", ""},
		{"onair/timeline/studio0", ""},
		{"other/status/x", ""},
	}
	for _, tc := range cases {
		if got := GatewayIDFromStatusTopic(tc.topic); got != tc.want {
			t.Errorf("GatewayIDFromStatusTopic(%q) = %q, want %q", tc.topic, got, tc.want)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if got := opts.ClientID; got != "onair-test" {
		t.Errorf("ClientID = %q, want onair-test", got)
	}
	if len(opts.Servers) != 1 {
		t.Fatalf("Servers = %v, want one broker", opts.Servers)
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want tcp://127.0.0.1:1883", got)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect not enabled")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS config not set")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("onair-test")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, "onair-test") {
		t.Errorf("online payload = %s", online)
	}

	offline := buildOfflinePayload("onair-test")
	if !strings.Contains(offline, `"status":"offline"`) || !strings.Contains(offline, "graceful_shutdown") {
		t.Errorf("offline payload = %s", offline)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("empty topic err = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("onair/timeline/studio0", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("bad qos err = %v, want ErrInvalidQoS", err)
	}
}

func TestCloseNilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v, want nil", err)
	}
}
