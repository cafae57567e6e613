package main

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("ONAIR_CONFIG")
	defer os.Setenv("ONAIR_CONFIG", originalEnv)

	os.Setenv("ONAIR_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("ONAIR_CONFIG")
	defer os.Setenv("ONAIR_CONFIG", originalEnv)

	os.Unsetenv("ONAIR_CONFIG")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	os.Setenv("ONAIR_CONFIG", "/etc/onair/config.yaml")
	if got := getConfigPath(); got != "/etc/onair/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}
