package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validJWTSecret meets the 32-character minimum requirement.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
studio:
  id: "studio-a"
  multi_gateway: true
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 3005
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
playout:
  autonext_guard_ms: 750
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Studio.ID != "studio-a" {
		t.Errorf("Studio.ID = %q, want %q", cfg.Studio.ID, "studio-a")
	}
	if !cfg.Studio.MultiGateway {
		t.Error("Studio.MultiGateway = false, want true")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if got := cfg.AutoNextGuard(); got != 750*time.Millisecond {
		t.Errorf("AutoNextGuard() = %v, want 750ms", got)
	}
	// Defaults survive a partial file.
	if got := cfg.TimingDebounce(); got != 500*time.Millisecond {
		t.Errorf("TimingDebounce() = %v, want 500ms", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	content := `
studio:
  id: "studio-a"
database:
  path: "/tmp/test.db"
api:
  port: 3005
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	t.Setenv("ONAIR_STUDIO_ID", "studio-env")
	t.Setenv("ONAIR_MQTT_HOST", "broker.local")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Studio.ID != "studio-env" {
		t.Errorf("Studio.ID = %q, want env override %q", cfg.Studio.ID, "studio-env")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		c.API.JWT.Secret = validJWTSecret
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing studio id", mutate: func(c *Config) { c.Studio.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid api port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "missing jwt secret", mutate: func(c *Config) { c.API.JWT.Secret = "" }, wantErr: true},
		{name: "short jwt secret", mutate: func(c *Config) { c.API.JWT.Secret = "short" }, wantErr: true},
		{name: "negative guard window", mutate: func(c *Config) { c.Playout.AutoNextGuardMS = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
