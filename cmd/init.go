package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the account store",
		Long:  "init loads the account store, restores the default offline account when needed and writes the store back.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.Initialize(cmd.Context()); err != nil {
				return reportUnavailable(cmd, "core", err)
			}

			accounts, err := app.service.ListAccounts(cmd.Context())
			if err != nil {
				return reportUnavailable(cmd, "core", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Core initialized: %d account(s) in %s\n", len(accounts), app.accountsPath)
			return err
		},
	}
}
