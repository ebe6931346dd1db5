package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRemarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remark <message...>",
		Short:   "Echo a message to the console",
		Example: "  trn remark hello",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(args, " "))
			return nil
		},
	}
}
