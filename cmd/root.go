package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// standaloneAnnotation marks commands that run without loading config or the
// account store.
const standaloneAnnotation = "yk/standalone"

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var configPath string
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "yk",
		Short:         "Yuuki launcher core (yk): manage game accounts and profiles",
		Long:          "yk drives the yuuki launcher account core from the terminal. Accounts live in a TOML store under the user config directory.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, standalone := cmd.Annotations[standaloneAnnotation]; standalone {
				return nil
			}
			return app.wire(configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <user config dir>/yuuki/config.toml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(app),
		newAccountCmd(app),
		newLoginCmd(app),
		newTokenCmd(app),
		newProfileCmd(),
	)

	return rootCmd
}
