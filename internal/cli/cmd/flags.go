package cmd

import (
	"time"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFileName string

func addRootFlags(cmd *cobra.Command) {
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("teleport.proxy", "")
	viper.SetDefault("teleport.auth", "")
	viper.SetDefault("teleport.timeout", 60*time.Second)
	viper.SetDefault("paths.tsh", "tsh")
	viper.SetDefault("aws.accounts", map[string]string{})
	viper.SetDefault("aws.regions", map[string]string{"yl-us": "us-east-2"})
	viper.SetDefault("aws.defaultRegion", "eu-west-1")
	viper.SetDefault("kube.clusters", map[string]string{})
	viper.SetDefault("kube.requestRoles", map[string]string{})
	viper.SetDefault("db.user", "tf_teleport_rds_read_user")
	viper.SetDefault("db.name", "postgres")
	viper.SetDefault("db.rdsRequestRole", "sudo_teleport_rds_read_role")
	viper.SetDefault("db.atlasRequestRole", "atlas-read-only")
	viper.SetDefault("terraform.app", "")
	viper.SetDefault("terraform.role", "")
	viper.SetDefault("update.repo", "YouLend/th")
	viper.SetDefault("update.interval", 24*time.Hour)

	cmd.PersistentFlags().StringVarP(&configFileName, "config", "c", "", "Name of the config file")
	_ = cmd.RegisterFlagCompletionFunc("config", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml", "yaml"}, cobra.ShellCompDirectiveDefault
	})

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	viper.SetDefault("debug", false)
	if err := viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(humane.Wrap(err, "fatal binding flag", "check that the flag name matches the viper key"))
	}

	cmd.PersistentFlags().BoolP("long", "l", false, "Show long output (where available)")
	viper.SetDefault("output.long", false)
	if err := viper.BindPFlag("output.long", cmd.PersistentFlags().Lookup("long")); err != nil {
		panic(humane.Wrap(err, "fatal binding flag", "check that the flag name matches the viper key"))
	}

	cmd.PersistentFlags().BoolP("quiet", "q", false, "Show no output (where available)")
	viper.SetDefault("output.quiet", false)
	if err := viper.BindPFlag("output.quiet", cmd.PersistentFlags().Lookup("quiet")); err != nil {
		panic(humane.Wrap(err, "fatal binding flag", "check that the flag name matches the viper key"))
	}

	cmd.PersistentFlags().StringP("theme", "t", "tokyo-night", "theme to use for the CLI")
	viper.SetDefault("output.theme", "tokyo-night")
	if err := viper.BindPFlag("output.theme", cmd.PersistentFlags().Lookup("theme")); err != nil {
		panic(humane.Wrap(err, "fatal binding flag", "check that the flag name matches the viper key"))
	}
	_ = cmd.RegisterFlagCompletionFunc("theme", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return pretty_print.AllThemeNames(), cobra.ShellCompDirectiveDefault
	})
}
