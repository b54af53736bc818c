package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUnlockCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Recover history from the locked pool with the local private key",
		Long: "Recover every object and version the local private key can open from\n" +
			"the locked pool, then write the newest version into the working tree.\n" +
			"Files outside that version are left alone.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}

			stop := opts.startSpinner("Unlocking...")
			rep, err := r.Unlock()
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "recovered %d key(s), %d object(s), %d version(s)\n",
				rep.KeysRecovered, rep.ObjectsRecovered, rep.Versions)
			if rep.Unmatched > 0 {
				fmt.Fprintf(out, "%d pool file(s) could not be opened with this key\n", rep.Unmatched)
			}
			if rep.LeftoverKeys > 0 {
				r.Log.Warnf("%d recovered key(s) matched no pool file", rep.LeftoverKeys)
			}
			if rep.Commit == "" {
				fmt.Fprintln(out, "no version to restore")
				return nil
			}
			fmt.Fprintf(out, "restored v%d (%s): %d file(s)\n", rep.Version, shortHash(string(rep.Commit)), rep.Restored)
			return nil
		},
	}
}
