package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trn-tools/trn-cli/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version of trn",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trn %s (commit %s)\n", version.GetVersion(), version.GetCommit())
		},
	}
}
