package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/lazyhost/internal/cli/output"
	"github.com/marmos91/lazyhost/internal/logger"
	"github.com/marmos91/lazyhost/pkg/runtime"
)

var (
	membersOutput string
	membersWarm   bool
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List the members declared by the configuration",
	Long: `List the members the configuration declares, in declaration order,
with their kind, warm flag, cleanup and current state.

Without --warm nothing is opened and every member is reported as pending.
With --warm the warm members are opened, their state is reported, and
everything opened is cleaned up before the command returns.

Examples:
  # List members as a table
  lazyhost members

  # Open warm members and report their state as JSON
  lazyhost members --warm --output json`,
	RunE: runMembers,
}

func init() {
	membersCmd.Flags().StringVarP(&membersOutput, "output", "o", "table", "Output format (table|json|yaml)")
	membersCmd.Flags().BoolVar(&membersWarm, "warm", false, "Open warm members before listing")
}

// memberList renders runtime members as a table.
type memberList []runtime.MemberInfo

func (l memberList) Headers() []string {
	return []string{"NAME", "KIND", "WARM", "CLEANUP", "STATE"}
}

func (l memberList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, m := range l {
		rows = append(rows, []string{m.Name, m.Kind, strconv.FormatBool(m.Warm), m.Cleanup, m.State})
	}
	return rows
}

func runMembers(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(membersOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}

	var warmErr error
	if membersWarm {
		warmErr = rt.Warm(ctx)
	}
	members := memberList(rt.Members())

	if err := rt.Shutdown(); err != nil {
		logger.Warn("Cleanup after listing failed", logger.KeyError, err)
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if len(members) == 0 && format == output.FormatTable {
		printer.Printf("No members declared.\n")
		return warmErr
	}
	if err := printer.Print(members); err != nil {
		return err
	}
	return warmErr
}
