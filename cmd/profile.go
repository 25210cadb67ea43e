package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuuki-launcher/yuuki-core/internal/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect launch profiles",
	}

	cmd.AddCommand(newProfilePreviewCmd(), newProfileDefaultCmd())

	return cmd
}

func newProfilePreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "preview <path>",
		Short:       "Summarize a profile file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{standaloneAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			preview, err := profile.Preview(args[0])
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Failed to load profile: %v\n", err)
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), preview)
			return err
		},
	}
}

func newProfileDefaultCmd() *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:         "default",
		Short:       "Print the default profile name",
		Annotations: map[string]string{standaloneAnnotation: ""},
		RunE: func(cmd *cobra.Command, _ []string) error {
			defaults := profile.Default()
			if writePath != "" {
				if err := profile.Save(writePath, defaults); err != nil {
					return fmt.Errorf("write default profile: %w", err)
				}
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), defaults.Name)
			return err
		},
	}

	cmd.Flags().StringVar(&writePath, "write", "", "Also save the default profile as YAML to this path")

	return cmd
}
