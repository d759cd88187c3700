package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func runWithTimeout(t *testing.T) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return run(ctx)
}

func TestRun_InvalidConfigPath(t *testing.T) {
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	err := runWithTimeout(t)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want loading config failure", err)
	}
}

func TestRun_InvalidConfigValues(t *testing.T) {
	t.Setenv(configEnvVar, writeConfig(t, `
database:
  path: ""
logging:
  level: error
  format: text
  output: stderr
`))

	err := runWithTimeout(t)
	if err == nil {
		t.Fatal("run() should fail when database.path is empty")
	}
	if !strings.Contains(err.Error(), "database.path is required") {
		t.Errorf("error = %v, want database.path validation failure", err)
	}
}

func TestRun_MissingClimateConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configEnvVar, writeConfig(t, `
database:
  path: "`+filepath.Join(dir, "irclimate.db")+`"
logging:
  level: error
  format: text
  output: stderr
climate:
  config_file: "`+filepath.Join(dir, "missing.yaml")+`"
`))

	err := runWithTimeout(t)
	if err == nil {
		t.Fatal("run() should fail when the climate config is missing")
	}
	if !strings.Contains(err.Error(), "loading climate config") {
		t.Errorf("error = %v, want climate config failure", err)
	}

	// The device table is checked before the database is opened.
	if _, statErr := os.Stat(filepath.Join(dir, "irclimate.db")); !os.IsNotExist(statErr) {
		t.Errorf("database file should not exist, stat error = %v", statErr)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(configEnvVar, "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv(configEnvVar, "/etc/irclimate/config.yaml")
		if got := getConfigPath(); got != "/etc/irclimate/config.yaml" {
			t.Errorf("getConfigPath() = %q", got)
		}
	})
}

func TestVersionDefaults(t *testing.T) {
	if version == "" || commit == "" || date == "" {
		t.Error("build variables must have non-empty defaults")
	}
}
