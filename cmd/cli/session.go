package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/internal/cli/async_operation"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/internal/cli/selection"
	"github.com/spechtlabs/th/pkg/proc"
	"github.com/spechtlabs/th/pkg/session"
	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/spf13/viper"
)

// appSession bundles the pieces every command needs: the tsh client, the
// resource catalog, the process supervisor and the credential materializer.
// It is built per command invocation, after viper has read the config.
type appSession struct {
	client       *tsh.Client
	catalog      *tsh.Catalog
	supervisor   *proc.Supervisor
	materializer *session.Materializer
	menu         *selection.Menu
}

func newAppSession() *appSession {
	client := tsh.New(
		tsh.WithPath(viper.GetString("paths.tsh")),
		tsh.WithTimeout(viper.GetDuration("teleport.timeout")),
	)
	supervisor := proc.NewSupervisor()

	return &appSession{
		client:     client,
		catalog:    tsh.NewCatalog(client),
		supervisor: supervisor,
		materializer: session.NewMaterializer(client, supervisor,
			session.WithRegions(
				viper.GetStringMapString("aws.regions"),
				viper.GetString("aws.defaultRegion"),
			),
		),
		menu: selection.NewMenu(),
	}
}

// ensureLoggedIn checks the current Teleport session and, when it is expired
// or absent, runs the interactive `tsh login` flow and waits for the session
// certificate to become valid.
func (s *appSession) ensureLoggedIn(ctx context.Context) (*tsh.Status, humane.Error) {
	status, err := s.catalog.Status(ctx)
	if err != nil {
		return nil, err
	}
	if status.LoggedIn() {
		return status, nil
	}

	args := []string{"login"}
	if auth := viper.GetString("teleport.auth"); auth != "" {
		args = append(args, "--auth="+auth)
	}
	if proxy := viper.GetString("teleport.proxy"); proxy != "" {
		args = append(args, "--proxy="+proxy)
	}
	if err := s.client.RunInteractive(ctx, args...); err != nil {
		return nil, humane.Wrap(err.Cause(), "Teleport login failed",
			"check your network connection",
			"verify the teleport.proxy and teleport.auth settings",
		)
	}

	spinner := async_operation.NewSpinner(func() (tsh.Status, humane.Error) {
		st, serr := s.catalog.Status(ctx)
		if serr != nil {
			return tsh.Status{}, serr
		}
		if !st.LoggedIn() {
			return tsh.Status{}, humane.New("session not ready yet", "wait for the browser login to complete")
		}
		return *st, nil
	},
		async_operation.WithInProgressMessage("Waiting for Teleport session"),
		async_operation.WithDoneMessage("Logged in"),
		async_operation.WithFailedMessage("Teleport session did not become ready"),
		async_operation.WithDelay(time.Second),
		async_operation.WithMaxAttempts(int(waitTimeout()/time.Second)),
		async_operation.WithQuiet(viper.GetBool("output.quiet")),
	)

	ready, serr := spinner.Run(ctx)
	if serr != nil {
		return nil, serr
	}
	return ready, nil
}

// pickResource lists resources of the given kind behind a spinner and lets
// the operator choose one. A quick name short-circuits the menu.
func (s *appSession) pickResource(ctx context.Context, kind tsh.ResourceKind, title, quick string) (*selection.Result, humane.Error) {
	if quick != "" {
		return &selection.Result{
			Entry:    tsh.ResourceEntry{Name: quick, Kind: kind, Accessible: true},
			Elevated: strings.HasPrefix(quick, selection.ElevatedRolePrefix),
		}, nil
	}

	if err := requireInteractive(); err != nil {
		return nil, err
	}

	spinner := async_operation.NewSpinner(func() ([]tsh.ResourceEntry, humane.Error) {
		return s.catalog.List(ctx, kind)
	},
		async_operation.WithInProgressMessage(fmt.Sprintf("Fetching %s", strings.ToLower(title))),
		async_operation.WithKeepProgressAfter(0),
		async_operation.WithQuiet(viper.GetBool("output.quiet")),
	)
	entries, err := spinner.Run(ctx)
	if err != nil {
		return nil, err
	}

	return s.menu.Select(ctx, title, *entries)
}

// requestPrivilege runs the access-request flow for a role the operator does
// not currently hold: confirm, ask for a reason, create the request and
// surface its ID so an approver can find it.
func (s *appSession) requestPrivilege(ctx context.Context, role string) humane.Error {
	ok, err := s.menu.Confirm(ctx, fmt.Sprintf("You do not have access to %q. Raise a privilege request?", role))
	if err != nil {
		return err
	}
	if !ok {
		return humane.Wrap(tsh.ErrCancelled, "no privilege request raised", "re-run the command once access has been granted")
	}

	reason, err := s.menu.ReadLine(ctx, "Reason for the request: ")
	if err != nil {
		return err
	}

	out, err := s.client.Invoke(ctx, "request", "create", "--roles", role, "--reason", reason)
	if err != nil {
		return humane.Wrap(err.Cause(), "failed to create access request",
			"check that the role name is requestable in your Teleport cluster",
		)
	}

	if id := parseRequestID(out.Combined()); id != "" {
		pretty_print.PrintOk("Access request created", fmt.Sprintf("request ID: %s", id))
		pretty_print.PrintInfo("Once approved, assume it with", fmt.Sprintf("tsh login --request-id %s", id))
	} else {
		pretty_print.PrintOk("Access request created")
	}

	return nil
}

func parseRequestID(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if rest, found := strings.CutPrefix(line, "Request ID:"); found {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// requireInteractive rejects menu flows when stdin is not a terminal, so
// scripted runs fail fast instead of hanging on a prompt.
func requireInteractive() humane.Error {
	if selection.Interactive() {
		return nil
	}
	return humane.New("interactive selection needs a terminal",
		"pass the target as an argument when running non-interactively",
	)
}

// sourceHint is the line the operator pastes to load a credential artifact
// into the current shell.
func sourceHint(artifact string) string {
	return fmt.Sprintf("source %s", artifact)
}

func waitTimeout() time.Duration {
	if d := viper.GetDuration("teleport.timeout"); d > 0 {
		return d
	}
	return 60 * time.Second
}
