package main

import (
	"errors"
	"fmt"
	"strings"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cmdKube = &cobra.Command{
	Use:     "kube [env]",
	Aliases: []string{"k"},
	Short:   "Log in to a Kubernetes cluster",
	Long: `Log in to a Teleport-managed Kubernetes cluster and make it the current
kubectl context.

With an environment argument the cluster is resolved through the
kube.clusters map in the config; without one an interactive menu lists the
clusters, dimming the ones your session cannot write to. Picking a dimmed
production cluster offers to raise a privilege request; declining still logs
you in read-only.`,
	Example: `# interactive cluster menu
th kube

# quick login into the dev cluster
th k dev`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newAppSession()
		ctx := cmd.Context()
		defer sess.supervisor.TerminateAll()

		if _, err := sess.ensureLoggedIn(ctx); err != nil {
			return err
		}

		if len(args) == 1 {
			cluster := resolveAlias(viper.GetStringMapString("kube.clusters"), args[0])
			return kubeLogin(cmd, sess, cluster)
		}

		if err := requireInteractive(); err != nil {
			return err
		}

		entries, err := sess.catalog.List(ctx, tsh.KindCluster)
		if err != nil {
			return err
		}
		entries = sess.catalog.AnnotateClusterAccess(ctx, entries)

		choice, err := sess.menu.Select(ctx, "Available Kubernetes clusters", entries)
		if err != nil {
			return err
		}

		if !choice.Entry.Accessible && tsh.IsProduction(choice.Entry) {
			if err := sess.requestPrivilege(ctx, clusterWriteRole(choice.Entry.Name)); err != nil {
				// An interrupt also reads as cancelled; only a declined
				// prompt downgrades to read-only.
				if !isCancelled(err) || ctx.Err() != nil {
					return err
				}
				// Declined: fall through to a read-only login.
				pretty_print.PrintInfo("Continuing with read-only access")
			} else {
				return nil
			}
		}

		return kubeLogin(cmd, sess, choice.Entry.Name)
	},
}

func kubeLogin(cmd *cobra.Command, sess *appSession, cluster string) humane.Error {
	if _, err := sess.client.Invoke(cmd.Context(), "kube", "login", cluster); err != nil {
		return humane.Wrap(err.Cause(), fmt.Sprintf("failed to log in to cluster %q", cluster),
			"check the cluster name with 'tsh kube ls'",
		)
	}

	if !viper.GetBool("output.quiet") {
		pretty_print.PrintOk(fmt.Sprintf("kubectl context now points at %s", cluster))
	}
	return nil
}

// clusterWriteRole resolves the role to request for write access to a
// cluster through the kube.requestRoles config map, falling back to a sudo_
// variant of the cluster name.
func clusterWriteRole(cluster string) string {
	if role, ok := viper.GetStringMapString("kube.requestRoles")[strings.ToLower(cluster)]; ok {
		return role
	}
	return "sudo_" + strings.ReplaceAll(cluster, "-", "_")
}

func isCancelled(err humane.Error) bool {
	return err != nil && err.Cause() != nil && errors.Is(err.Cause(), tsh.ErrCancelled)
}
