package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newAddCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <paths...>",
		Short: "Stage files for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			paths := make([]string, len(args))
			for i, a := range args {
				paths[i] = a
				if opts.dir != "." && !filepath.IsAbs(a) {
					paths[i] = filepath.Join(opts.dir, a)
				}
			}
			staged, err := r.Add(paths)
			if err != nil {
				return err
			}
			r.Log.Infof("staged %d file(s)", len(staged))
			if opts.verbose {
				for _, e := range staged {
					fmt.Fprintf(cmd.OutOrStdout(), "add %s\n", e.Path)
				}
			}
			return nil
		},
	}
}
