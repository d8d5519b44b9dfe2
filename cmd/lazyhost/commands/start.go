package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/lazyhost/internal/logger"
	"github.com/marmos91/lazyhost/internal/telemetry"
	"github.com/marmos91/lazyhost/pkg/runtime"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the lazyhost runtime",
	Long: `Start the lazyhost runtime in the foreground.

Members are declared from the configuration file and opened on first read.
Members marked warm are opened immediately. On SIGINT or SIGTERM every
opened member is cleaned up in registration order before the process exits.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/lazyhost/config.yaml.

Examples:
  # Start with the default config
  lazyhost start

  # Start with custom config file
  lazyhost start --config /etc/lazyhost/config.yaml

  # Start with environment variable overrides
  LAZYHOST_LOGGING_LEVEL=DEBUG lazyhost start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "lazyhost",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		HostName:       cfg.Host,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// The signal context is already done here.
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "lazyhost",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		HostName:       cfg.Host,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", logger.KeyConfig, getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", logger.KeyEndpoint, cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", logger.KeyEndpoint, cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}
	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}

	logger.Info("Runtime initialized",
		logger.KeyRunID, rt.RunID(),
		logger.KeyHost, cfg.Host,
		"members", len(cfg.Members))
	logger.Info("Runtime is starting. Press Ctrl+C to stop.")

	if err := rt.Serve(ctx); err != nil {
		logger.Error("Runtime stopped with an error", logger.KeyError, err)
		return err
	}
	logger.Info("Runtime stopped gracefully")
	return nil
}
