package main

import (
	"fmt"
	"strings"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/internal/cli/selection"
	"github.com/spechtlabs/th/pkg/session"
	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var awsSudo bool

var cmdAws = &cobra.Command{
	Use:     "aws [env] [--sudo]",
	Aliases: []string{"a"},
	Short:   "Open an AWS session and materialize credentials",
	Long: `Log in to a Teleport AWS app and write its temporary credentials to a file
your shell can source.

With an environment argument the app is resolved through the aws.accounts
map in the config; without one an interactive menu lists the apps your
session can reach. Elevated (sudo) roles are separate menu entries and are
never picked automatically unless --sudo is given.`,
	Example: `# interactive account and role selection
th aws

# quick login into the dev account
th a dev

# take the elevated role directly
th aws dev --sudo`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newAppSession()
		ctx := cmd.Context()

		// The credential proxy detaches itself from the supervisor on
		// success, so this only reaps children from failed attempts.
		defer sess.supervisor.TerminateAll()

		if _, err := sess.ensureLoggedIn(ctx); err != nil {
			return err
		}

		quick := ""
		if len(args) == 1 {
			quick = resolveAlias(viper.GetStringMapString("aws.accounts"), args[0])
		}

		app, err := sess.pickResource(ctx, tsh.KindAccount, "Available AWS accounts", quick)
		if err != nil {
			return err
		}

		role, err := pickAWSRole(cmd, sess, app.Entry.Name)
		if err != nil {
			return err
		}

		if _, err := sess.client.Invoke(ctx, "apps", "login", app.Entry.Name, "--aws-role", role); err != nil {
			return humane.Wrap(err.Cause(), fmt.Sprintf("failed to log in to app %q", app.Entry.Name),
				"check the role assignment with 'tsh apps ls'",
			)
		}

		artifact, err := sess.materializer.MaterializeAWS(ctx, session.Target{App: app.Entry.Name, Role: role})
		if err != nil {
			return err
		}

		if !viper.GetBool("output.quiet") {
			pretty_print.PrintCredentialInfo(
				app.Entry.Name,
				role,
				sess.materializer.RegionFor(app.Entry.Name),
				artifact,
				sourceHint(artifact),
			)
		}
		return nil
	},
}

func init() {
	cmdAws.Flags().BoolVar(&awsSudo, "sudo", false, "assume the elevated role without the menu")
}

// pickAWSRole discovers the roles available on an app and picks one, either
// via the menu or straight to the sudo_ role when --sudo is set. Choosing an
// elevated role from the menu still needs a confirmation.
func pickAWSRole(cmd *cobra.Command, sess *appSession, app string) (string, humane.Error) {
	ctx := cmd.Context()

	roles, err := sess.catalog.Roles(ctx, app)
	if err != nil {
		return "", err
	}
	if len(roles) == 0 {
		return "", humane.New(fmt.Sprintf("no AWS roles available on app %q", app),
			"check your role assignments with your Teleport administrator",
		)
	}

	if awsSudo {
		for _, r := range roles {
			if strings.HasPrefix(r.Name, selection.ElevatedRolePrefix) {
				return r.Name, nil
			}
		}
		return "", humane.New(fmt.Sprintf("no elevated role on app %q", app),
			"drop --sudo to pick a regular role",
			"raise a privilege request if you need elevated access",
		)
	}

	if len(roles) == 1 {
		return roles[0].Name, nil
	}

	choice, err := sess.menu.Select(ctx, "Available AWS roles", roles)
	if err != nil {
		return "", err
	}

	if choice.Elevated {
		ok, err := sess.menu.Confirm(ctx, fmt.Sprintf("%q is an elevated role. Continue?", choice.Entry.Name))
		if err != nil {
			return "", err
		}
		if !ok {
			return "", humane.Wrap(tsh.ErrCancelled, "elevated role not confirmed")
		}
	}

	return choice.Entry.Name, nil
}

// resolveAlias maps a short environment name through a config map, passing
// unknown names through untouched so full app names keep working.
func resolveAlias(aliases map[string]string, name string) string {
	if full, ok := aliases[strings.ToLower(name)]; ok {
		return full
	}
	return name
}
