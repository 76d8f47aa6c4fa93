package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a workspace summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dash, err := client().GetDashboard()
		if err != nil {
			return err
		}

		format, err := outputFormat()
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			return output.Print(os.Stdout, format, dash)
		}
		return output.SimpleTable(os.Stdout, [][2]string{
			{"Aliases", fmt.Sprintf("%d", dash.Aliases)},
			{"Servers", fmt.Sprintf("%d", dash.Servers)},
			{"Variables", fmt.Sprintf("%d", dash.Variables)},
			{"Secrets", fmt.Sprintf("%d", dash.Secrets)},
			{"CIDs", fmt.Sprintf("%d", dash.CIDs)},
			{"Exports", fmt.Sprintf("%d", dash.Exports)},
		})
	},
}
