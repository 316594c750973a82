package main

import (
	"fmt"

	"github.com/spechtlabs/th/internal/cli/cmd"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/pkg/update"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cmdUpdate = &cobra.Command{
	Use:   "update",
	Short: "Update th to the latest release",
	Long: `Fetch the latest GitHub release, download the binary for this platform and
replace the running executable in place. A no-op when the installed version
is already the latest.`,
	Example: `# update in place
th update`,
	Args:      cobra.ExactArgs(0),
	ValidArgs: []string{},
	RunE: func(c *cobra.Command, args []string) error {
		checker := newConfiguredChecker()

		tag, err := checker.Install(c.Context())
		if err != nil {
			return err
		}

		if tag == "" {
			pretty_print.PrintOk("Already up to date", fmt.Sprintf("version %s", cmd.Version))
			return nil
		}

		pretty_print.PrintOk(fmt.Sprintf("Updated to %s", tag))
		return nil
	},
}

var cmdChangelog = &cobra.Command{
	Use:   "changelog",
	Short: "Show the release notes of the latest version",
	Example: `# what changed since my version
th changelog`,
	Args:      cobra.ExactArgs(0),
	ValidArgs: []string{},
	RunE: func(c *cobra.Command, args []string) error {
		checker := newConfiguredChecker()

		md, err := checker.Changelog(c.Context())
		if err != nil {
			return err
		}

		pretty_print.PrintMarkdown(md)
		return nil
	},
}

func newConfiguredChecker() *update.Checker {
	return update.NewChecker(cmd.Version,
		update.WithRepo(viper.GetString("update.repo")),
		update.WithInterval(viper.GetDuration("update.interval")),
	)
}
