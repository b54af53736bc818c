package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommitCmd(opts *globalOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record and encrypt a snapshot of the working tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}

			stop := opts.startSpinner("Encrypting snapshot...")
			res, err := r.Commit(message)
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[v%d %s] %s\n", res.Version, shortHash(string(res.Hash)), message)
			fmt.Fprintf(out, " %d object(s) sealed, %d unchanged, %d key(s) wrapped\n",
				res.Stats.Objects, res.Stats.Skipped, res.Stats.Wrapped)
			if res.Rewrapped > 0 {
				fmt.Fprintf(out, " %d key(s) wrapped for new recipients\n", res.Rewrapped)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}
