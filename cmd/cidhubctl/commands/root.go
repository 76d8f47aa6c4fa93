// Package commands implements the CLI commands for the cidhubctl client.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/internal/cli/output"
	"github.com/hashbeam/cidhub/pkg/apiclient"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	flagServer string
	flagToken  string
	flagOutput string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cidhubctl",
	Short: "cidhub control - workspace management client",
	Long: `cidhubctl is the command-line client for managing a cidhub workspace.

Use this tool to compute CIDs, upload content, manage aliases and
servers, and export or import workspaces through the cidhub REST API.

Use "cidhubctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "cidhub server URL")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token for authenticated requests")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format (table|json|yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cidCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// client builds an API client from the global flags.
func client() *apiclient.Client {
	c := apiclient.New(flagServer)
	if flagToken != "" {
		c = c.WithToken(flagToken)
	}
	return c
}

// outputFormat parses the --output flag.
func outputFormat() (output.Format, error) {
	return output.ParseFormat(flagOutput)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cidhubctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}
