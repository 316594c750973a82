package main

import (
	"fmt"
	"strings"

	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cmdLogout = &cobra.Command{
	Use:     "logout",
	Aliases: []string{"l", "kill"},
	Short:   "End every session and clean up",
	Long: `Tear down everything th has set up: remove credential artifacts, drop the
source line from your shell profile, stop stray tsh proxies and tunnels,
log out of all apps and the Teleport cluster, and prune the kubectl
contexts tsh created.

The unset statements for the credential variables are printed so the
current shell can clear them too:

    eval "$(th logout)"`,
	Example: `# full cleanup
th logout

# clear the variables from the running shell as well
eval "$(th logout --quiet)"`,
	Args:      cobra.ExactArgs(0),
	ValidArgs: []string{},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newAppSession()
		ctx := cmd.Context()
		defer sess.supervisor.TerminateAll()

		unsets, err := sess.materializer.Logout(ctx)
		if err != nil {
			return err
		}

		pruneKubeContexts(cmd, sess)

		for _, stmt := range unsets {
			fmt.Println(stmt)
		}

		if !viper.GetBool("output.quiet") {
			pretty_print.PrintOk("All sessions closed")
		}
		return nil
	},
}

// pruneKubeContexts removes the kubectl contexts tsh created. Best effort:
// a missing kubectl or an empty context list is not an error.
func pruneKubeContexts(cmd *cobra.Command, sess *appSession) {
	ctx := cmd.Context()
	kubectl := tsh.New(tsh.WithPath("kubectl"))

	out, err := kubectl.Invoke(ctx, "config", "get-contexts", "-o", "name")
	if err != nil {
		return
	}

	for _, name := range strings.Split(out.Stdout, "\n") {
		name = strings.TrimSpace(name)
		if name == "" || !teleportContext(name) {
			continue
		}
		_, _ = kubectl.Invoke(ctx, "config", "delete-context", name)
	}
}

func teleportContext(name string) bool {
	return strings.Contains(name, "teleport") || strings.HasPrefix(name, "tsh-")
}
