package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/playback-core/internal/driver"
)

// envPrefix prefixes every environment override.
const envPrefix = "PLAYBACK_"

// Config is the root configuration of the playback daemon.
// It is loaded from YAML and can be overridden by environment variables.
type Config struct {
	// Drivers maps a category label ("video", "audio", ...) to the
	// backend name selected by default. The persisted selection wins once
	// a user has cycled a category.
	Drivers map[string]string `yaml:"drivers"`

	// Backends lists the backend names registered per category, in
	// enumeration order. The "null" backend is always appended.
	Backends map[string][]string `yaml:"backends"`

	Video     VideoConfig     `yaml:"video"`
	Audio     AudioConfig     `yaml:"audio"`
	AV        AVConfig        `yaml:"av"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Record    RecordConfig    `yaml:"record"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// VideoConfig contains video timing settings.
type VideoConfig struct {
	VSync         bool    `yaml:"vsync"`
	RefreshRate   float64 `yaml:"refresh_rate"`
	ForceNonblock bool    `yaml:"force_nonblock"`
}

// AudioConfig contains audio timing settings.
type AudioConfig struct {
	// MaxTimingSkew is the largest relative content/monitor rate difference
	// bridged by resampling.
	MaxTimingSkew float64 `yaml:"max_timing_skew"`
}

// AVConfig is the initial system A/V info used until a core reports its own.
type AVConfig struct {
	BaseWidth   int     `yaml:"base_width"`
	BaseHeight  int     `yaml:"base_height"`
	MaxWidth    int     `yaml:"max_width"`
	MaxHeight   int     `yaml:"max_height"`
	AspectRatio float64 `yaml:"aspect_ratio"`
	FPS         float64 `yaml:"fps"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// CatalogConfig describes the installed plugin cores.
type CatalogConfig struct {
	// ActiveCore names the loaded core. Empty means none.
	ActiveCore string       `yaml:"active_core"`
	SystemDir  string       `yaml:"system_dir"`
	Cores      []CoreConfig `yaml:"cores"`
}

// CoreConfig is the declared metadata of one plugin core.
type CoreConfig struct {
	Name        string           `yaml:"name"`
	DisplayName string           `yaml:"display_name"`
	Path        string           `yaml:"path"`
	SystemName  string           `yaml:"system_name"`
	Extensions  []string         `yaml:"supported_extensions"`
	Firmware    []FirmwareConfig `yaml:"firmware"`
	// Permissions lists optional subsystems the core uses, such as
	// "camera" and "location".
	Permissions []string `yaml:"permissions"`
}

// FirmwareConfig is one firmware file a core expects under the system dir.
type FirmwareConfig struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
	Optional    bool   `yaml:"optional"`
}

// RecordConfig contains recording settings.
type RecordConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains reconnection delays in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket settings. Intervals are in seconds.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig        `yaml:"jwt"`
	Operators []OperatorConfig `yaml:"operators"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// OperatorConfig is one account allowed to use the API.
type OperatorConfig struct {
	Username string `yaml:"username"`
	// PasswordHash is an Argon2id PHC string.
	PasswordHash string `yaml:"password_hash"`
	// Role is "viewer" or "operator".
	Role string `yaml:"role"`
}

// Load reads configuration from a YAML file and applies environment
// overrides.
//
// Order: hard-coded defaults, then the file, then PLAYBACK_* variables.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Drivers: map[string]string{},
		Video: VideoConfig{
			VSync:       true,
			RefreshRate: 60,
		},
		Audio: AudioConfig{
			MaxTimingSkew: 0.05,
		},
		AV: AVConfig{
			BaseWidth:   320,
			BaseHeight:  240,
			MaxWidth:    640,
			MaxHeight:   480,
			AspectRatio: 4.0 / 3.0,
			FPS:         60,
			SampleRate:  48000,
		},
		Catalog: CatalogConfig{
			SystemDir: "./system",
		},
		Record: RecordConfig{
			OutputDir: "./recordings",
		},
		Database: DatabaseConfig{
			Path:        "./data/playback.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "playbackd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
		},
	}
}

// applyEnvOverrides applies PLAYBACK_* variables. Driver selections use
// PLAYBACK_DRIVER_<CATEGORY>, e.g. PLAYBACK_DRIVER_VIDEO=vulkan.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	setString("DATABASE_PATH", &cfg.Database.Path)
	setString("MQTT_HOST", &cfg.MQTT.Broker.Host)
	setString("MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("MQTT_PASSWORD", &cfg.MQTT.Auth.Password)
	setString("API_HOST", &cfg.API.Host)
	setString("INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	setString("JWT_SECRET", &cfg.Security.JWT.Secret)
	setString("CATALOG_ACTIVE_CORE", &cfg.Catalog.ActiveCore)
	setString("LOG_LEVEL", &cfg.Logging.Level)

	if v := os.Getenv(envPrefix + "REFRESH_RATE"); v != "" {
		if hz, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Video.RefreshRate = hz
		}
	}

	if cfg.Drivers == nil {
		cfg.Drivers = map[string]string{}
	}
	for _, c := range driver.AllCategories() {
		key := envPrefix + "DRIVER_" + strings.ToUpper(c.String())
		if v := os.Getenv(key); v != "" {
			cfg.Drivers[c.String()] = v
		}
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	labels := make([]string, 0, len(c.Drivers))
	for label := range c.Drivers {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if _, err := driver.ParseCategory(label); err != nil {
			errs = append(errs, fmt.Sprintf("drivers.%s: unknown category", label))
		}
	}

	labels = labels[:0]
	for label := range c.Backends {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if _, err := driver.ParseCategory(label); err != nil {
			errs = append(errs, fmt.Sprintf("backends.%s: unknown category", label))
			continue
		}
		for i, name := range c.Backends[label] {
			if strings.TrimSpace(name) == "" {
				errs = append(errs, fmt.Sprintf("backends.%s[%d]: name is required", label, i))
			}
		}
	}

	if hz := c.Video.RefreshRate; hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		errs = append(errs, "video.refresh_rate must be a positive number")
	}
	if s := c.Audio.MaxTimingSkew; s < 0 || s > 1 {
		errs = append(errs, "audio.max_timing_skew must be between 0 and 1")
	}
	if c.AV.FPS < 0 || c.AV.SampleRate < 0 {
		errs = append(errs, "av.fps and av.sample_rate must not be negative")
	}

	if c.Catalog.ActiveCore != "" && !c.hasCore(c.Catalog.ActiveCore) {
		errs = append(errs, fmt.Sprintf("catalog.active_core %q is not listed in catalog.cores", c.Catalog.ActiveCore))
	}
	seen := make(map[string]bool, len(c.Catalog.Cores))
	for i, core := range c.Catalog.Cores {
		if core.Name == "" {
			errs = append(errs, fmt.Sprintf("catalog.cores[%d].name is required", i))
			continue
		}
		if seen[core.Name] {
			errs = append(errs, fmt.Sprintf("catalog.cores[%d].name %q is duplicated", i, core.Name))
		}
		seen[core.Name] = true
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set PLAYBACK_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}
	for i, op := range c.Security.Operators {
		if op.Username == "" || op.PasswordHash == "" {
			errs = append(errs, fmt.Sprintf("security.operators[%d] needs username and password_hash", i))
		}
		if op.Role != "viewer" && op.Role != "operator" {
			errs = append(errs, fmt.Sprintf("security.operators[%d].role must be viewer or operator", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) hasCore(name string) bool {
	for _, core := range c.Catalog.Cores {
		if core.Name == name {
			return true
		}
	}
	return false
}

// GetReadTimeout returns the API read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
