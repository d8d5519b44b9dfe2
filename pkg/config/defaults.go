package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.Host == "" {
		cfg.Host = "lazyhost"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	for i := range cfg.Members {
		applyMemberDefaults(&cfg.Members[i])
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)

	if cfg.Output == "" {
		cfg.Output = "stderr"
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
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyMemberDefaults(m *MemberConfig) {
	m.Kind = strings.ToLower(strings.TrimSpace(m.Kind))
	if m.Options == nil {
		m.Options = map[string]any{}
	}
}

// GetDefaultConfig returns a Config with all default values applied and a
// small set of example members: a scratch directory and an in-memory
// key-value store read eagerly, plus an HTTP server reporting their health.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Members: []MemberConfig{
			{
				Name: "scratch",
				Kind: "tempdir",
				Options: map[string]any{
					"pattern": "lazyhost-*",
				},
			},
			{
				Name: "kv",
				Kind: "badger",
				Warm: true,
				Options: map[string]any{
					"in_memory": true,
				},
			},
			{
				Name: "http",
				Kind: "http",
				Options: map[string]any{
					"address":   "127.0.0.1:8080",
					"health_of": []any{"kv", "scratch"},
				},
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
