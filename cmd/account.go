package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	accountsrender "github.com/yuuki-launcher/yuuki-core/internal/adapters/render/accounts"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddOfflineCmd(app),
		newAccountRemoveCmd(app),
		newAccountPruneCmd(app),
	)

	return cmd
}

type accountOutput struct {
	ID           domain.AccountID     `json:"id"`
	Username     string               `json:"username"`
	AccountType  domain.AccountType   `json:"account_type"`
	Provider     string               `json:"provider"`
	Status       domain.AccountStatus `json:"status"`
	PendingUntil *time.Time           `json:"pending_until,omitempty"`
}

func newAccountOutput(account domain.Account) accountOutput {
	out := accountOutput{
		ID:          account.ID,
		Username:    account.Username,
		AccountType: account.Type,
		Provider:    account.Provider,
		Status:      account.Status,
	}
	if !account.PendingUntil.IsZero() {
		until := account.PendingUntil.UTC()
		out.PendingUntil = &until
	}
	return out
}

func newAccountListCmd(app *app) *cobra.Command {
	var (
		asJSON bool
		width  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.service.ListAccounts(cmd.Context())
			if err != nil {
				return reportUnavailable(cmd, "account list", err)
			}

			if asJSON {
				out := make([]accountOutput, 0, len(accounts))
				for _, account := range accounts {
					out = append(out, newAccountOutput(account))
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			rendered, err := app.renderAccounts(accounts, accountsrender.RenderOptions{Now: app.now(), Width: width})
			if err != nil {
				return fmt.Errorf("render accounts: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().IntVar(&width, "width", 0, "Clip rendered lines to this many columns (0 disables)")

	return cmd
}

func newAccountAddOfflineCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-offline <username>",
		Short: "Add an offline account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.service.AddOfflineAccount(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrInvalidUsername) {
				return err
			}
			if account.ID != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added offline account %s (%s)\n", account.ID, account.Username)
			}
			if err != nil {
				return reportUnavailable(cmd, "account store", err)
			}
			return nil
		},
	}
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account and its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(strings.TrimSpace(args[0]))
			if err := app.service.RemoveAccount(cmd.Context(), id); err != nil {
				if errors.Is(err, domain.ErrAccountNotFound) {
					return err
				}
				return reportUnavailable(cmd, "account store", err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed account %s\n", id)
			return err
		},
	}
}

func newAccountPruneCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove pending accounts whose device login expired",
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := app.service.ExpirePendingLogins(cmd.Context())
			if err != nil {
				return reportUnavailable(cmd, "account store", err)
			}

			if len(removed) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No expired device logins")
				return err
			}
			for _, id := range removed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s\n", id)
			}
			return nil
		},
	}
}
