package main

import (
	"errors"
	"fmt"

	"github.com/odvcencio/cryptogot/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd(opts *globalOptions) *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			head, err := r.Head()
			if errors.Is(err, repo.ErrNoHead) {
				fmt.Fprintln(out, "no commits yet")
				return nil
			}
			if err != nil {
				return err
			}

			entries, err := r.History(head, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				c := e.Commit
				decoration := ""
				if e.Hash == head {
					decoration = " (HEAD)"
				}
				if oneline {
					fmt.Fprintf(out, "%s%s %s\n", shortHash(string(e.Hash)), decoration, c.Message)
					continue
				}
				fmt.Fprintf(out, "commit %s%s\n", e.Hash, decoration)
				fmt.Fprintf(out, "Author: %s\n", c.Author)
				fmt.Fprintf(out, "Date:   %s\n", c.Date.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", c.Message)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show (0 for all)")
	return cmd
}
