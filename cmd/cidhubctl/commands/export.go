package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/internal/cli/output"
	"github.com/hashbeam/cidhub/internal/cli/prompt"
	"github.com/hashbeam/cidhub/pkg/apiclient"
)

var (
	exportSizeOnly  bool
	exportPromptKey bool
	exportSecretKey string
	exportSelection = apiclient.ExportSelection{}
	exportFull      bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the workspace to a single CID",
	Long: `Export workspace entities into one content-addressed payload.

With --all the whole workspace is exported, including the CID map, so
the payload boots an empty server. Individual sections can be picked
with the section flags instead. Secrets travel re-encrypted under the
key given with --secret-key or prompted with --prompt-key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportPromptKey {
			key, err := prompt.PasswordWithValidation("Export secret key", 8)
			if err != nil {
				return err
			}
			exportSecretKey = key
		}

		sel := exportSelection
		if exportFull {
			sel = apiclient.ExportSelection{
				Aliases: true, Servers: true, Variables: true, Secrets: true,
				ChangeHistory: true, CIDMap: true, UnreferencedCIDData: true,
				IncludeDisabled: true,
			}
		}
		sel.SecretKey = exportSecretKey

		var (
			result *apiclient.ExportResult
			err    error
		)
		if exportSizeOnly {
			result, err = client().ExportSize(sel)
		} else {
			result, err = client().Export(sel)
		}
		if err != nil {
			return err
		}

		format, err := outputFormat()
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			return output.Print(os.Stdout, format, result)
		}
		pairs := [][2]string{
			{"Size", fmt.Sprintf("%d", result.Size)},
		}
		if !exportSizeOnly {
			pairs = [][2]string{
				{"CID", result.CID},
				{"Path", result.Path},
				{"Size", fmt.Sprintf("%d", result.Size)},
			}
		}
		return output.SimpleTable(os.Stdout, pairs)
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportFull, "all", false, "Export everything, including the CID map")
	exportCmd.Flags().BoolVar(&exportSelection.Aliases, "aliases", false, "Include aliases")
	exportCmd.Flags().BoolVar(&exportSelection.Servers, "servers", false, "Include servers")
	exportCmd.Flags().BoolVar(&exportSelection.Variables, "variables", false, "Include variables")
	exportCmd.Flags().BoolVar(&exportSelection.Secrets, "secrets", false, "Include secrets")
	exportCmd.Flags().BoolVar(&exportSelection.ChangeHistory, "history", false, "Include change history")
	exportCmd.Flags().BoolVar(&exportSelection.CIDMap, "cid-map", false, "Inline referenced CID content")
	exportCmd.Flags().BoolVar(&exportSelection.IncludeDisabled, "include-disabled", false, "Include disabled entities")
	exportCmd.Flags().BoolVar(&exportSizeOnly, "size", false, "Preview the payload size without storing it")
	exportCmd.Flags().StringVar(&exportSecretKey, "secret-key", "", "Re-encrypt exported secrets under this key")
	exportCmd.Flags().BoolVar(&exportPromptKey, "prompt-key", false, "Prompt for the export secret key")
}
