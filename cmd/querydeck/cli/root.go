package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/querydeck/querydeck/internal/config"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "querydeck",
		Short: "Ad-hoc query builder core for migration analytics",
		Long: `Querydeck is the server-side core of the Smart Analytics query builder:
it loads a project's uploaded tables, infers join relationships from
column naming, turns user query specs into deterministic SQL, executes
them against the analytics backend, and reduces results into chart series.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./querydeck.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newRelationsCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("querydeck")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.querydeck")
	}

	viper.SetEnvPrefix("QUERYDECK")
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())
	viper.ReadInConfig() // config file is optional
}
