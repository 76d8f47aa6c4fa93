package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Fetch a path through the resolution pipeline",
	Long: `Fetch a path from the server and write the body to stdout.

The path resolves exactly as a browser request would: aliases,
servers, and raw CIDs all work.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		body, contentType, err := client().Fetch(path)
		if err != nil {
			return err
		}
		if _, err := os.Stdout.Write(body); err != nil {
			return err
		}
		if contentType != "" {
			fmt.Fprintf(os.Stderr, "\ncontent-type: %s\n", contentType)
		}
		return nil
	},
}
