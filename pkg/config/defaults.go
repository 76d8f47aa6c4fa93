package config

import (
	"strings"
	"time"

	"github.com/hashbeam/cidhub/internal/logger"
)

// GetDefaultConfig returns a configuration with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{Blob: BlobConfig{LoadCIDs: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in missing configuration with default values.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	cfg.Database.ApplyDefaults()
	applyBlobDefaults(&cfg.Blob)
}

func applyLoggingDefaults(cfg *logger.Config) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if cfg.ForwardTimeout == 0 {
		cfg.ForwardTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyBlobDefaults(cfg *BlobConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "fs"
	}
	if cfg.CIDDirectory == "" {
		cfg.CIDDirectory = "cids"
	}
	if cfg.Cache.Enabled && cfg.Cache.Path == "" {
		cfg.Cache.Path = "cids-cache"
	}
}
