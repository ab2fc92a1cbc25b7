package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
drivers:
  video: vulkan
  audio: pulse
  input_joypad: udev
backends:
  video: [vulkan, gl]
video:
  vsync: false
  refresh_rate: 59.94
audio:
  max_timing_skew: 0.02
catalog:
  active_core: snes9x
  system_dir: /srv/system
  cores:
    - name: snes9x
      display_name: "Nintendo - SNES (Snes9x)"
      supported_extensions: [sfc, smc]
      permissions: [camera]
      firmware:
        - path: BS-X.bin
          description: BS-X BIOS
          optional: true
database:
  path: /tmp/playback.db
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Drivers["video"] != "vulkan" || cfg.Drivers["input_joypad"] != "udev" {
		t.Errorf("Drivers = %v", cfg.Drivers)
	}
	if got := cfg.Backends["video"]; len(got) != 2 || got[0] != "vulkan" {
		t.Errorf("Backends[video] = %v", got)
	}
	if cfg.Video.VSync || cfg.Video.RefreshRate != 59.94 {
		t.Errorf("Video = %+v", cfg.Video)
	}
	if cfg.Audio.MaxTimingSkew != 0.02 {
		t.Errorf("Audio.MaxTimingSkew = %v, want 0.02", cfg.Audio.MaxTimingSkew)
	}
	if len(cfg.Catalog.Cores) != 1 || !cfg.Catalog.Cores[0].Firmware[0].Optional {
		t.Errorf("Catalog.Cores = %+v", cfg.Catalog.Cores)
	}
	// Defaults survive for sections the file omits.
	if cfg.MQTT.Broker.Port != 1883 || cfg.AV.SampleRate != 48000 {
		t.Errorf("defaults lost: mqtt port %d, sample rate %v", cfg.MQTT.Broker.Port, cfg.AV.SampleRate)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file")
	}

	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}

	if _, err := Load(writeConfig(t, "database:\n  path: /tmp/x.db\n")); err == nil {
		t.Error("Load() expected validation error for missing JWT secret")
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = validJWTSecret
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver category", func(c *Config) { c.Drivers["teleport"] = "x" }, "drivers.teleport"},
		{"driver label spelled out", func(c *Config) { c.Drivers["Video Driver"] = "gl" }, ""},
		{"unknown backend category", func(c *Config) { c.Backends = map[string][]string{"radio": {"fm"}} }, "backends.radio"},
		{"empty backend name", func(c *Config) { c.Backends = map[string][]string{"video": {"gl", " "}} }, "backends.video[1]"},
		{"zero refresh rate", func(c *Config) { c.Video.RefreshRate = 0 }, "video.refresh_rate"},
		{"skew out of range", func(c *Config) { c.Audio.MaxTimingSkew = 2 }, "max_timing_skew"},
		{"negative fps", func(c *Config) { c.AV.FPS = -1 }, "av.fps"},
		{"unknown active core", func(c *Config) { c.Catalog.ActiveCore = "ghost" }, "catalog.active_core"},
		{"duplicate core", func(c *Config) {
			c.Catalog.Cores = []CoreConfig{{Name: "a"}, {Name: "a"}}
		}, "duplicated"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"invalid port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"missing JWT secret", func(c *Config) { c.Security.JWT.Secret = "" }, "security.jwt.secret is required"},
		{"short JWT secret", func(c *Config) { c.Security.JWT.Secret = "short" }, "at least 32"},
		{"operator without hash", func(c *Config) {
			c.Security.Operators = []OperatorConfig{{Username: "ops", Role: "operator"}}
		}, "password_hash"},
		{"operator bad role", func(c *Config) {
			c.Security.Operators = []OperatorConfig{{Username: "ops", PasswordHash: "$argon2id$x", Role: "root"}}
		}, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""
	cfg.API.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"database.path", "api.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{API: APIConfig{Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60}}}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("PLAYBACK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PLAYBACK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PLAYBACK_MQTT_PASSWORD", "testpass")
	t.Setenv("PLAYBACK_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("PLAYBACK_JWT_SECRET", "jwt-secret")
	t.Setenv("PLAYBACK_REFRESH_RATE", "144")
	t.Setenv("PLAYBACK_DRIVER_VIDEO", "vulkan")
	t.Setenv("PLAYBACK_DRIVER_AUDIO_RESAMPLER", "sinc")

	applyEnvOverrides(cfg)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"database path", cfg.Database.Path, "/custom/path.db"},
		{"mqtt host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"mqtt password", cfg.MQTT.Auth.Password, "testpass"},
		{"influx token", cfg.InfluxDB.Token, "secret-token"},
		{"jwt secret", cfg.Security.JWT.Secret, "jwt-secret"},
		{"refresh rate", cfg.Video.RefreshRate, 144.0},
		{"video driver", cfg.Drivers["video"], "vulkan"},
		{"resampler driver", cfg.Drivers["audio_resampler"], "sinc"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Video.RefreshRate != 60 || !cfg.Video.VSync {
		t.Errorf("Video defaults = %+v", cfg.Video)
	}
	if cfg.Audio.MaxTimingSkew != 0.05 {
		t.Errorf("MaxTimingSkew default = %v, want 0.05", cfg.Audio.MaxTimingSkew)
	}
	if cfg.Database.Path == "" {
		t.Error("default Database.Path is empty")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("default API.Port = %d, want 8090", cfg.API.Port)
	}
}
