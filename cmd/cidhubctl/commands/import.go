package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/internal/cli/output"
	"github.com/hashbeam/cidhub/internal/cli/prompt"
)

var (
	importSecretKey string
	importPromptKey bool
)

var importCmd = &cobra.Command{
	Use:   "import <cid>",
	Short: "Import a stored export payload",
	Long: `Apply an export payload already present in the server's CID pool.

The secret key must match the one the payload was exported with,
otherwise the secrets section is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importPromptKey {
			key, err := prompt.Password("Import secret key")
			if err != nil {
				return err
			}
			importSecretKey = key
		}

		report, err := client().ImportCID(args[0], importSecretKey)
		if err != nil {
			return err
		}

		format, err := outputFormat()
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			return output.Print(os.Stdout, format, report)
		}

		table := output.NewTableData("SECTION", "APPLIED")
		for _, section := range []string{"aliases", "servers", "variables", "secrets", "cid_values", "change_history"} {
			if n, ok := report.Applied[section]; ok {
				table.AddRow(section, fmt.Sprintf("%d", n))
			}
		}
		if err := output.PrintTable(os.Stdout, table); err != nil {
			return err
		}
		for _, skipped := range report.SkippedCIDs {
			fmt.Fprintf(os.Stderr, "skipped missing CID: %s\n", skipped)
		}
		for _, sectionErr := range report.SectionErrors {
			fmt.Fprintf(os.Stderr, "section error: %s\n", sectionErr)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSecretKey, "secret-key", "", "Secret key the payload was exported with")
	importCmd.Flags().BoolVar(&importPromptKey, "prompt-key", false, "Prompt for the secret key")
}
