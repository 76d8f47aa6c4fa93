package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/internal/cli/output"
	"github.com/hashbeam/cidhub/pkg/cid"
)

var cidCmd = &cobra.Command{
	Use:   "cid [file]",
	Short: "Compute the CID of a file or stdin",
	Long: `Compute the content identifier of a file without contacting a server.

Reads from stdin when no file is given. The printed path serves the
content once it is uploaded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		id := cid.Generate(data)

		format, err := outputFormat()
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			return output.Print(os.Stdout, format, map[string]any{
				"cid":     id,
				"path":    "/" + id,
				"size":    len(data),
				"literal": cid.IsLiteral(id),
			})
		}
		return output.SimpleTable(os.Stdout, [][2]string{
			{"CID", id},
			{"Path", "/" + id},
			{"Size", fmt.Sprintf("%d", len(data))},
			{"Literal", fmt.Sprintf("%t", cid.IsLiteral(id))},
		})
	},
}
