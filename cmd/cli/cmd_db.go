package main

import (
	"fmt"
	"net"
	"strconv"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cmdDatabase = &cobra.Command{
	Use:     "database [target]",
	Aliases: []string{"d", "db"},
	Short:   "Connect to an RDS or MongoDB database",
	Long: `Log in to a Teleport-managed database and connect to it, either with an
interactive shell session or through a background tunnel for GUI clients
like DBeaver.

With a target argument the database is logged into directly; without one the
menu walks RDS/MongoDB and the individual databases, dimming the ones your
session cannot reach. Picking a dimmed database offers to raise a privilege
request.`,
	Example: `# interactive database selection
th database

# connect straight to a known database
th d prod-rds-replica`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newAppSession()
		ctx := cmd.Context()

		// A GUI tunnel detaches itself before the command returns, so this
		// only reaps children from failed attempts.
		defer sess.supervisor.TerminateAll()

		if _, err := sess.ensureLoggedIn(ctx); err != nil {
			return err
		}

		if len(args) == 1 {
			return connectDatabase(cmd, sess, lookupDatabase(cmd, sess, args[0]))
		}

		if err := requireInteractive(); err != nil {
			return err
		}

		entries, err := sess.catalog.List(ctx, tsh.KindDatabase)
		if err != nil {
			return err
		}
		entries, err = sess.catalog.AnnotateDatabaseAccess(ctx, entries)
		if err != nil {
			return err
		}

		choice, err := sess.menu.Select(ctx, "Available databases", entries)
		if err != nil {
			return err
		}

		if !choice.Entry.Accessible {
			return sess.requestPrivilege(ctx, databaseRequestRole(choice.Entry))
		}

		return connectDatabase(cmd, sess, choice.Entry)
	},
}

// connectDatabase logs in to a database and either opens an interactive
// session or leaves a background tunnel up for a GUI client.
func connectDatabase(cmd *cobra.Command, sess *appSession, entry tsh.ResourceEntry) humane.Error {
	ctx := cmd.Context()
	user := viper.GetString("db.user")
	name := viper.GetString("db.name")

	loginArgs := []string{"db", "login", entry.Name}
	if user != "" {
		loginArgs = append(loginArgs, "--db-user="+user)
	}
	if name != "" {
		loginArgs = append(loginArgs, "--db-name="+name)
	}
	if _, err := sess.client.Invoke(ctx, loginArgs...); err != nil {
		return humane.Wrap(err.Cause(), fmt.Sprintf("failed to log in to database %q", entry.Name),
			"check the database name with 'tsh db ls'",
		)
	}

	tunnel, err := sess.menu.Confirm(ctx, "Open a background tunnel for a GUI client instead of a shell?")
	if err != nil {
		return err
	}

	if !tunnel {
		return sess.client.RunInteractive(ctx, "db", "connect", entry.Name)
	}

	port, perr := freePort()
	if perr != nil {
		return humane.Wrap(perr, "no free local port for the tunnel")
	}

	handle, err := sess.supervisor.SpawnBackground(ctx, nil, sess.client.Path(),
		"proxy", "db", entry.Name, "--tunnel", "--port", strconv.Itoa(port))
	if err != nil {
		return err
	}
	// The tunnel stays up after th exits; `th logout` tears it down.
	sess.supervisor.Detach(handle)

	if !viper.GetBool("output.quiet") {
		pretty_print.PrintOk(fmt.Sprintf("Tunnel to %s listening on localhost:%d", entry.Name, port))
		pretty_print.PrintInfo("Point your GUI client at it", tunnelHint(entry, user, name, port))
	}
	return nil
}

// lookupDatabase resolves a named target against the catalog so its metadata
// (the RDS/Atlas type) is known. A listing failure falls back to a bare
// entry; the login itself will surface a real error.
func lookupDatabase(cmd *cobra.Command, sess *appSession, name string) tsh.ResourceEntry {
	if entries, err := sess.catalog.List(cmd.Context(), tsh.KindDatabase); err == nil {
		for _, e := range entries {
			if e.Name == name {
				e.Accessible = true
				return e
			}
		}
	}
	return tsh.ResourceEntry{Name: name, Kind: tsh.KindDatabase, Accessible: true}
}

// tunnelHint renders a connection string matching the database flavor behind
// the tunnel.
func tunnelHint(entry tsh.ResourceEntry, user, name string, port int) string {
	if tsh.IsRDS(entry) {
		return fmt.Sprintf("postgres://%s@localhost:%d/%s", user, port, name)
	}
	return fmt.Sprintf("mongodb://localhost:%d", port)
}

// databaseRequestRole resolves the role to request when a database is out of
// reach: RDS and Atlas each have a fixed read role, both overridable in the
// config.
func databaseRequestRole(entry tsh.ResourceEntry) string {
	if tsh.IsRDS(entry) {
		return viper.GetString("db.rdsRequestRole")
	}
	return viper.GetString("db.atlasRequestRole")
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}
