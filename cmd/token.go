package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

func newTokenCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage account tokens",
	}

	cmd.AddCommand(newTokenRefreshCmd(app))

	return cmd
}

func newTokenRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id>",
		Short: "Rotate the token of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(strings.TrimSpace(args[0]))

			token, err := app.service.RefreshToken(cmd.Context(), id)
			if errors.Is(err, domain.ErrTokenNotFound) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "no token for account %s\n", id)
				return err
			}
			if err != nil {
				return reportUnavailable(cmd, "token refresh", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "access_token: %s\nrefresh_token: %s\nexpires_in: %d\n",
				token.AccessToken, token.RefreshToken, token.ExpiresIn)
			return err
		},
	}
}
