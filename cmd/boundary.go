package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// reportUnavailable prints the degraded-state line a front end shows when the
// core fails, then hands the error back so the exit status stays non-zero.
func reportUnavailable(cmd *cobra.Command, operation string, err error) error {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s temporarily unavailable: %v\n", operation, err)
	return err
}
