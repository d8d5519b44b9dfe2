package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/lazyhost/internal/cli/output"
	"github.com/marmos91/lazyhost/pkg/config"
	"github.com/marmos91/lazyhost/pkg/resources"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the lazyhost configuration file.

Checks for syntax errors, missing required fields, unknown resource kinds
and invalid values.

Examples:
  # Validate default config
  lazyhost config validate

  # Validate specific config file
  lazyhost config validate --config /etc/lazyhost/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}

	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	var warm []string
	for _, m := range cfg.Members {
		if m.Warm {
			warm = append(warm, m.Name)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	return output.KeyValueTable(out, [][2]string{
		{"  Host", cfg.Host},
		{"  Members", fmt.Sprintf("%d", len(cfg.Members))},
		{"  Warm", strings.Join(warm, ", ")},
		{"  Shutdown timeout", cfg.ShutdownTimeout.String()},
		{"  Log level", cfg.Logging.Level},
	})
}

// configWarnings reports settings that are valid but probably not intended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if len(cfg.Members) == 0 {
		warnings = append(warnings, "No members declared")
	}
	for _, m := range cfg.Members {
		kind, ok := resources.Lookup(m.Kind)
		if !ok {
			continue
		}
		if _, register := resources.CleanupFor(kind, m.Cleanup); !register {
			warnings = append(warnings, fmt.Sprintf("Member %q registers no cleanup", m.Name))
		}
		if m.Cleanup.Async && m.Cleanup.Method == "" {
			warnings = append(warnings, fmt.Sprintf("Member %q sets cleanup.async without a method; the kind default is used", m.Name))
		}
	}
	return warnings
}
