package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/lazyhost/internal/cli/output"
	"github.com/marmos91/lazyhost/pkg/resources"
)

var kindsOutput string

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the available resource kinds",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(kindsOutput)
		if err != nil {
			return err
		}

		type kindInfo struct {
			Name        string `json:"name" yaml:"name"`
			Description string `json:"description" yaml:"description"`
			Cleanup     string `json:"cleanup" yaml:"cleanup"`
		}

		table := output.NewTableData("KIND", "CLEANUP", "DESCRIPTION")
		var list []kindInfo
		for _, k := range resources.Kinds() {
			cleanup := resources.CleanupLabel(k.Cleanup, true)
			table.AddRow(k.Name, cleanup, k.Description)
			list = append(list, kindInfo{Name: k.Name, Description: k.Description, Cleanup: cleanup})
		}

		printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
		if format == output.FormatTable {
			return printer.Print(table)
		}
		return printer.Print(list)
	},
}

func init() {
	kindsCmd.Flags().StringVarP(&kindsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}
