package cmd

import (
	"fmt"
	"slices"

	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the base `th` command. Subcommands are attached by the
// cmd/cli wiring.
func NewRootCmd() *cobra.Command {
	cobra.OnInitialize(initConfig)

	cmdRoot := cobra.Command{
		Use:   "th [--config|-c <string>] [--debug] [--quiet|-q] [--theme|-t <string>]",
		Short: "th is a session helper for Teleport-managed infrastructure",
	}

	addRootFlags(&cmdRoot)

	cmdRoot.Long = `th wraps the Teleport CLI (tsh) with short, memorable commands for the
sessions you open every day: AWS credentials, Kubernetes clusters, databases
and Terraform admin access. It drives tsh for you, materializes credentials
into files your shell can source, and cleans everything up again on logout.

### Theming

Control the CLI's look and feel using one of the following:

- Flag: ` + "`--theme`" + ` or ` + "`-t`" + `
- Config: ` + "`output.theme`" + ` (in config file)
- Environment: ` + "`TH_OUTPUT_THEME`" + `

**Accepted themes**: ascii, dark, dracula, *tokyo-night*, light

### Notes

- Global flags like ` + "`--theme`" + ` are available to subcommands`

	cmdRoot.Example = `# open an AWS session interactively
$ th aws

# quick login into the dev Kubernetes cluster
$ th kube dev

# light theme
TH_OUTPUT_THEME=light th aws`

	cmdRoot.AddCommand(newVersionCmd())
	errPrefix := pretty_print.FormatWithOptions(pretty_print.ErrLvl, "Error:", []string{}, pretty_print.WithoutNewline())
	cmdRoot.SetErrPrefix(errPrefix)

	cmdRoot.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		initConfig()
		pretty_print.PrintHelpText(cmd, args)
	})
	cmdRoot.SetUsageFunc(func(cmd *cobra.Command) error {
		initConfig()
		fmt.Println("")
		pretty_print.PrintUsageText(cmd, []string{})
		return nil
	})
	cmdRoot.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		initConfig()
		pretty_print.PrintErrorMessage(err.Error())
		fmt.Println("")
		pretty_print.PrintHelpText(cmd, []string{})
		return nil
	})

	cmdRoot.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		utils.InitObservability()

		theme := viper.GetString("output.theme")
		if theme == "" {
			theme = "tokyo-night"
		}
		if !slices.Contains(pretty_print.AllThemeNames(), theme) {
			viper.Set("output.theme", pretty_print.TokyoNightStyle)
			return fmt.Errorf("invalid theme: %s", theme)
		}
		return nil
	}

	return &cmdRoot
}
