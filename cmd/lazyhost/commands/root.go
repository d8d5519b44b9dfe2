// Package commands implements the lazyhost CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/lazyhost/cmd/lazyhost/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "lazyhost",
	Short: "lazyhost - lazily initialized resources with ordered cleanup",
	Long: `lazyhost declares a set of named resources (key-value stores, databases,
object storage clients, HTTP servers, scratch directories) on a host. Each
resource is opened the first time something reads it, and every opened
resource is torn down in registration order when the host shuts down.

Use "lazyhost [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/lazyhost/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(kindsCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
