package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List recorded versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			entries, err := r.Versions()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no versions recorded")
				return nil
			}
			for _, e := range entries {
				note := ""
				if !e.HasKey {
					note = " (not sealed)"
				}
				fmt.Fprintf(out, "v%d %s%s\n", e.Version, e.Commit, note)
			}
			return nil
		},
	}
}
