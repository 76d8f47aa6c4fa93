// Package config loads the service configuration from file, environment,
// and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/blob"
	"github.com/hashbeam/cidhub/pkg/store"
)

// Config is the full service configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (CIDHUB_*; a few legacy names below)
//  2. Configuration file (YAML)
//  3. Defaults
type Config struct {
	// Logging controls log output behavior.
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls tracing and continuous profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server holds the HTTP surface settings.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Database configures entity and CID row persistence.
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Blob configures the CID directory mirror and its backends.
	Blob BlobConfig `mapstructure:"blob" yaml:"blob"`

	// Metrics configures Prometheus metrics exposure.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Boot configures workspace bring-up from a single CID.
	Boot BootConfig `mapstructure:"boot" yaml:"boot"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// ListenAddress is the host:port the service binds.
	ListenAddress string `mapstructure:"listen_address" validate:"required" yaml:"listen_address"`

	// SessionSecret signs session tokens. Startup refuses to run without
	// it. Override: CIDHUB_SERVER_SESSION_SECRET or SESSION_SECRET.
	SessionSecret string `mapstructure:"session_secret" validate:"required" yaml:"session_secret"`

	// MaxBodyBytes caps upload and import request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"gt=0" yaml:"max_body_bytes"`

	// ForwardTimeout bounds outbound HTTP performed by forward servers.
	// Default: 60s.
	ForwardTimeout time.Duration `mapstructure:"forward_timeout" validate:"gt=0" yaml:"forward_timeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`
}

// BlobConfig selects and configures the content mirror backend.
type BlobConfig struct {
	// Backend is "fs" or "s3".
	Backend string `mapstructure:"backend" validate:"oneof=fs s3" yaml:"backend"`

	// CIDDirectory is the fs mirror location. Override: CID_DIRECTORY.
	CIDDirectory string `mapstructure:"cid_directory" yaml:"cid_directory"`

	// LoadCIDs controls the boot-time directory scan. Tests disable it
	// via LOAD_CIDS_IN_TESTS=false.
	LoadCIDs bool `mapstructure:"load_cids" yaml:"load_cids"`

	// S3 configures the s3 backend.
	S3 blob.S3Config `mapstructure:"s3" yaml:"s3"`

	// Cache configures the read-through cache over the backend.
	Cache blob.CacheConfig `mapstructure:"cache" yaml:"cache"`
}

// BootConfig configures workspace bring-up from a CID.
type BootConfig struct {
	// CID is the boot snapshot. Empty skips boot import.
	CID string `mapstructure:"cid" yaml:"cid,omitempty"`

	// SecretKey decrypts imported secrets and the execution context.
	// Override: BOOT_SECRET_KEY.
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
}

// MetricsConfig configures Prometheus metrics. When disabled no
// collectors are registered.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// TelemetryConfig controls OpenTelemetry tracing and Pyroscope
// profiling.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// Load reads configuration from configPath (or the default location when
// empty), layers environment variables, applies defaults, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		applyEnvOnly(v, cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration with instructions when the file is
// missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  cidhub init\n\n"+
				"Or specify a custom config file:\n"+
				"  cidhub <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  cidhub init --config %s",
			configPath, configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration as YAML. Permissions are
// restricted because the file carries secrets.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CIDHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("blob.load_cids", true)

	// Legacy environment names kept for operational compatibility.
	v.BindEnv("server.session_secret", "CIDHUB_SERVER_SESSION_SECRET", "SESSION_SECRET")
	v.BindEnv("blob.cid_directory", "CIDHUB_BLOB_CID_DIRECTORY", "CID_DIRECTORY")
	v.BindEnv("blob.load_cids", "CIDHUB_BLOB_LOAD_CIDS", "LOAD_CIDS_IN_TESTS")
	v.BindEnv("boot.secret_key", "CIDHUB_BOOT_SECRET_KEY", "BOOT_SECRET_KEY")
	v.BindEnv("boot.cid", "CIDHUB_BOOT_CID", "BOOT_CID")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// applyEnvOnly overlays the bound environment variables on a default
// config when no file exists.
func applyEnvOnly(v *viper.Viper, cfg *Config) {
	if s := v.GetString("server.session_secret"); s != "" {
		cfg.Server.SessionSecret = s
	}
	if s := v.GetString("blob.cid_directory"); s != "" {
		cfg.Blob.CIDDirectory = s
	}
	if v.IsSet("blob.load_cids") {
		cfg.Blob.LoadCIDs = v.GetBool("blob.load_cids")
	}
	if s := v.GetString("boot.secret_key"); s != "" {
		cfg.Boot.SecretKey = s
	}
	if s := v.GetString("boot.cid"); s != "" {
		cfg.Boot.CID = s
	}
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// Validate checks struct tags and cross-field constraints.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if err := cfg.Database.Validate(); err != nil {
		return err
	}
	if cfg.Blob.Backend == "s3" && cfg.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob.s3.bucket is required with the s3 backend")
	}
	return nil
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cidhub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "cidhub")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks for a config file at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory (for the init
// command).
func GetConfigDir() string {
	return getConfigDir()
}
