package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/lazyhost/internal/cli/prompt"
	"github.com/marmos91/lazyhost/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample lazyhost configuration file.

The sample declares a scratch directory, an in-memory key-value store
opened at start, and an HTTP server reporting the health of both.

By default, the configuration file is created at $XDG_CONFIG_HOME/lazyhost/config.yaml.
Use --config to specify a custom path. An existing file is only replaced
after confirmation, or with --force.

Examples:
  # Initialize with default location
  lazyhost config init

  # Initialize with custom path
  lazyhost config init --config /etc/lazyhost/config.yaml

  # Overwrite without asking
  lazyhost config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists. Overwrite", path), initForce)
		if err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("configuration file left unchanged: %w", err)
			}
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration file left unchanged.")
			return nil
		}
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the members to describe your resources")
	_, _ = fmt.Fprintln(out, "  2. Check them with: lazyhost members")
	_, _ = fmt.Fprintf(out, "  3. Start the runtime with: lazyhost start --config %s\n", path)
	return nil
}
