package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spechtlabs/th/internal/cli/cmd"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/pkg/update"
	"github.com/spechtlabs/th/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cmdRoot = cmd.NewRootCmd()

	updateChecker *update.Checker
	updateDone    <-chan struct{}
)

func main() {
	cmdRoot.AddCommand(cmdLogin)
	cmdRoot.AddCommand(cmdAws)
	cmdRoot.AddCommand(cmdKube)
	cmdRoot.AddCommand(cmdDatabase)
	cmdRoot.AddCommand(cmdTerraform)
	cmdRoot.AddCommand(cmdLogout)
	cmdRoot.AddCommand(cmdUpdate)
	cmdRoot.AddCommand(cmdChangelog)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	utils.InterruptHandler(ctx, cancel)

	// The release check needs the config, so it starts after initConfig has
	// run, piggybacked on the root PersistentPreRunE.
	preRun := cmdRoot.PersistentPreRunE
	cmdRoot.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := preRun(c, args); err != nil {
			return err
		}
		updateChecker = newConfiguredChecker()
		updateDone = updateChecker.CheckBackground(c.Context())
		return nil
	}

	err := cmdRoot.ExecuteContext(ctx)

	printUpdateNotice()

	if err != nil {
		fmt.Println(err)
		os.Exit(cmd.ExitCode(err))
	}
}

func printUpdateNotice() {
	if updateChecker == nil || viper.GetBool("output.quiet") {
		return
	}

	select {
	case <-updateDone:
	case <-time.After(200 * time.Millisecond):
		return
	}

	if notice := updateChecker.Notice(); notice != "" {
		pretty_print.PrintInfo(notice)
	}
}
