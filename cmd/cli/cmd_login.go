package main

import (
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cmdLogin = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the Teleport cluster",
	Long: `Check the current Teleport session and, when it is expired or absent, run
the interactive browser login via tsh. The command waits until the session
certificate is valid before returning.`,
	Example: `# Sign in (no-op if the session is still valid)
th login`,
	Args:      cobra.ExactArgs(0),
	ValidArgs: []string{},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newAppSession()
		defer sess.supervisor.TerminateAll()

		if err := sess.client.CheckInstalled(cmd.Context()); err != nil {
			return err
		}

		status, err := sess.ensureLoggedIn(cmd.Context())
		if err != nil {
			return err
		}

		if !viper.GetBool("output.quiet") {
			pretty_print.PrintSessionInfo(status.Username, status.Cluster, status.ValidUntil)
		}
		return nil
	},
}
