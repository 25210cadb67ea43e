package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuuki-launcher/yuuki-core/internal/version"
)

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{standaloneAnnotation: ""},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return err
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include commit and build date")

	return cmd
}
