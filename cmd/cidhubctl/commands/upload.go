package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/internal/cli/output"
	"github.com/hashbeam/cidhub/pkg/apiclient"
)

var uploadText string

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Store content in the CID pool",
	Long: `Upload a file, or a text snippet with --text, to the server.

The server responds with the CID and the path that serves it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (uploadText != "") {
			return fmt.Errorf("provide exactly one of a file argument or --text")
		}

		var (
			result *apiclient.UploadResult
			err    error
		)
		if uploadText != "" {
			result, err = client().UploadText(uploadText)
		} else {
			f, openErr := os.Open(args[0])
			if openErr != nil {
				return openErr
			}
			defer func() { _ = f.Close() }()
			result, err = client().UploadFile(filepath.Base(args[0]), f)
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
		return output.SimpleTable(os.Stdout, [][2]string{
			{"CID", result.CID},
			{"Path", result.Path},
			{"Size", fmt.Sprintf("%d", result.Size)},
		})
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadText, "text", "", "Upload a text snippet instead of a file")
}
