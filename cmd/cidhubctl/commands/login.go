package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hashbeam/cidhub/internal/cli/prompt"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain a session token",
	Long: `Authenticate against the server and print a session token.

Pass the token to later invocations with --token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username := loginUsername
		if username == "" {
			var err error
			username, err = prompt.Input("Username")
			if err != nil {
				return err
			}
		}
		password, err := prompt.Password("Password")
		if err != nil {
			return err
		}

		token, err := client().Login(username, password)
		if err != nil {
			return err
		}

		fmt.Println(token.AccessToken)
		fmt.Fprintf(cmd.ErrOrStderr(), "Token expires at %s\n", token.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username to authenticate as")
}
