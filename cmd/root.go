package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tagwise/tagwise/cmd/learn"
	"github.com/tagwise/tagwise/cmd/serve"
	"github.com/tagwise/tagwise/internal/app"
	"github.com/tagwise/tagwise/internal/conf"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which are loaded before any of them runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "tagwise",
		Short:         "Annotation queue service with active-learning re-ranking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: search config.yaml in standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		learn.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(configPath, settings)
	}

	return rootCmd
}

// initialize loads configuration and sets up logging and error telemetry.
func initialize(configPath string, settings *conf.Settings) error {
	loaded, err := conf.Load(configPath)
	if err != nil {
		return err
	}
	*settings = *loaded

	if err := app.InitLogging(settings); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return app.InitSentry(settings)
}
