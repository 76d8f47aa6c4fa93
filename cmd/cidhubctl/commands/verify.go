package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/pkg/blob"
	"github.com/hashbeam/cidhub/pkg/config"
	"github.com/hashbeam/cidhub/pkg/store"
)

var verifyConfigFile string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the local CID directory",
	Long: `Check every file in the configured CID directory against its name.

A file whose content does not hash to its CID is reported. Exits with
code 2 when any mismatch is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.MustLoad(verifyConfigFile)
		if err != nil {
			return err
		}
		if cfg.Blob.Backend != "fs" {
			return fmt.Errorf("verify only supports the fs backend, configured backend is %q", cfg.Blob.Backend)
		}

		backend, err := blob.NewFSBackend(cfg.Blob.CIDDirectory, false)
		if err != nil {
			return err
		}

		mismatches := store.VerifyMirror(context.Background(), backend)
		if len(mismatches) == 0 {
			fmt.Printf("CID directory %s is consistent\n", cfg.Blob.CIDDirectory)
			return nil
		}
		for _, err := range mismatches {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprintf(os.Stderr, "%d corrupt entries in %s\n", len(mismatches), cfg.Blob.CIDDirectory)
		os.Exit(2)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyConfigFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/cidhub/config.yaml)")
}
