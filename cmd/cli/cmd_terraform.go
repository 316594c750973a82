package main

import (
	"fmt"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/pkg/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cmdTerraform = &cobra.Command{
	Use:     "terraform",
	Aliases: []string{"t", "tf"},
	Short:   "Open the Terraform admin session",
	Long: `Log in to the AWS app and role configured for Terraform work
(terraform.app and terraform.role in the config) and materialize its
credentials, skipping the interactive selection.`,
	Example: `# credentials for terraform plan/apply
th terraform`,
	Args:      cobra.ExactArgs(0),
	ValidArgs: []string{},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := viper.GetString("terraform.app")
		role := viper.GetString("terraform.role")
		if app == "" || role == "" {
			return humane.New("terraform app or role not configured",
				"set terraform.app and terraform.role in $HOME/.config/th/config.yaml",
			)
		}

		sess := newAppSession()
		ctx := cmd.Context()
		defer sess.supervisor.TerminateAll()

		if _, err := sess.ensureLoggedIn(ctx); err != nil {
			return err
		}

		if _, err := sess.client.Invoke(ctx, "apps", "login", app, "--aws-role", role); err != nil {
			return humane.Wrap(err.Cause(), fmt.Sprintf("failed to log in to app %q", app),
				"check the terraform.app and terraform.role settings",
			)
		}

		artifact, err := sess.materializer.MaterializeAWS(ctx, session.Target{App: app, Role: role})
		if err != nil {
			return err
		}

		if !viper.GetBool("output.quiet") {
			pretty_print.PrintCredentialInfo(app, role, sess.materializer.RegionFor(app), artifact, sourceHint(artifact))
		}
		return nil
	},
}
