package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/playback-core/internal/auth"
	"github.com/nerrad567/playback-core/internal/infrastructure/config"
	"github.com/nerrad567/playback-core/internal/infrastructure/logging"
)

const testSecret = "test-secret-for-development-only-0123456789"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("PLAYBACK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when the database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("PLAYBACK_CONFIG", writeConfig(t, `
database:
  path: ""
security:
  jwt:
    secret: "`+testSecret+`"
`))
	t.Setenv("PLAYBACK_DATABASE_PATH", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("run() error = %v, want database.path validation error", err)
	}
}

// TestRun_StartupAndShutdown runs the daemon with MQTT and InfluxDB disabled
// and cancels it once started.
func TestRun_StartupAndShutdown(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLAYBACK_CONFIG", writeConfig(t, `
backends:
  video: ["gl", "vulkan"]
  audio: ["alsa"]
drivers:
  video: vulkan
database:
  path: "`+filepath.Join(dir, "test.db")+`"
  wal_mode: true
  busy_timeout: 5
record:
  enabled: true
  output_dir: "`+filepath.Join(dir, "recordings")+`"
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
api:
  host: "127.0.0.1"
  port: 18931
security:
  jwt:
    secret: "`+testSecret+`"
`))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("PLAYBACK_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("PLAYBACK_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestCoordinatorOptions(t *testing.T) {
	cfg := &config.Config{
		Video: config.VideoConfig{VSync: true, RefreshRate: 59.94, ForceNonblock: true},
		Audio: config.AudioConfig{MaxTimingSkew: 0.05},
		AV:    config.AVConfig{BaseWidth: 256, BaseHeight: 224, FPS: 60.0988, SampleRate: 32040},
	}
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")

	opts := coordinatorOptions(cfg, nil, nil, nil, nil, log)

	if !opts.Settings.VSync || !opts.Settings.ForceNonblock {
		t.Errorf("Settings = %+v", opts.Settings)
	}
	if opts.Settings.RefreshRate != 59.94 || opts.Settings.MaxTimingSkew != 0.05 {
		t.Errorf("Settings rates = %+v", opts.Settings)
	}
	if opts.AVInfo.Geometry.BaseWidth != 256 || opts.AVInfo.Timing.SampleRate != 32040 {
		t.Errorf("AVInfo = %+v", opts.AVInfo)
	}
	if opts.Notifier == nil {
		t.Error("Notifier is nil")
	}
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"with newline", "hunter2\n", false},
		{"without newline", "hunter2", false},
		{"crlf", "hunter2\r\n", false},
		{"empty", "\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := hashPassword(strings.NewReader(tt.input), &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("hashPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			ok, err := auth.VerifyPassword("hunter2", strings.TrimSpace(out.String()))
			if err != nil || !ok {
				t.Errorf("VerifyPassword() = %v, %v", ok, err)
			}
		})
	}
}
