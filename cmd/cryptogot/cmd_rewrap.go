package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRewrapCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rewrap",
		Short: "Give newly added recipients access to existing history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			stop := opts.startSpinner("Wrapping keys...")
			n, err := r.Rewrap()
			stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrapped %d key(s)\n", n)
			return nil
		},
	}
}
