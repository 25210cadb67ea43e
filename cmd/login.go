package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	accountsrender "github.com/yuuki-launcher/yuuki-core/internal/adapters/render/accounts"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

const defaultLoginProvider = "microsoft"

func newLoginCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start account login flows",
	}

	cmd.AddCommand(newLoginDeviceCmd(app))

	return cmd
}

func newLoginDeviceCmd(app *app) *cobra.Command {
	var provider string
	var wait bool

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Start device code login flow",
		Long:  "device opens a device code login and registers a pending account for it. With --wait it polls the provider until the login is confirmed or expires.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.service.StartDeviceLogin(cmd.Context(), provider)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidProvider) {
					return err
				}
				return reportUnavailable(cmd, "device login", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), accountsrender.RenderDeviceLogin(session))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pending account: %s\n", session.AccountID)
			if !wait {
				return nil
			}

			var account domain.Account
			label := fmt.Sprintf("Waiting for %s to confirm %s...", session.Provider, session.UserCode)
			deadline := session.Expiry(app.now())
			err = runLoginWaitSpinner(cmd.Context(), cmd.ErrOrStderr(), label, deadline, app.now, func(ctx context.Context) error {
				var completeErr error
				account, completeErr = app.service.CompleteDeviceLogin(ctx, session.DeviceCode)
				return completeErr
			})
			if account.ID != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Linked account %s (%s)\n", account.ID, account.Username)
			}
			switch {
			case err == nil:
				return nil
			case errors.Is(err, domain.ErrDeviceLoginExpired):
				return fmt.Errorf("device login for %s expired before it was confirmed: %w", session.AccountID, err)
			case errors.Is(err, context.Canceled):
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Login aborted, %s stays pending until it expires\n", session.AccountID)
				return err
			default:
				return reportUnavailable(cmd, "device login", err)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", defaultLoginProvider, "Identity provider name")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the login to be confirmed")

	return cmd
}
