package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/spf13/cobra"
)

func newCollabCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collab",
		Short: "Manage the recipients history is encrypted for",
	}
	cmd.AddCommand(newCollabAddCmd(opts))
	cmd.AddCommand(newCollabListCmd(opts))
	return cmd
}

func newCollabAddCmd(opts *globalOptions) *cobra.Command {
	var rewrap bool

	cmd := &cobra.Command{
		Use:   "add <public-key-file | ->",
		Short: "Add a collaborator's public key",
		Long: "Add a collaborator's public key (PEM or OpenSSH format). Existing\n" +
			"history becomes readable to them at the next commit, or immediately\n" +
			"with --rewrap.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read public key: %w", err)
			}

			rc, added, err := r.Keys.Import(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !added {
				fmt.Fprintf(out, "%s already present as %s\n", rc.Fingerprint, rc.Name)
				return nil
			}
			fmt.Fprintf(out, "added %s as %s\n", rc.Fingerprint, rc.Name)

			if rewrap {
				n, err := r.Rewrap()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "wrapped %d key(s)\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rewrap, "rewrap", false, "wrap existing keys for the new recipient now")
	return cmd
}

func newCollabListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recipient public keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			recipients, err := r.Keys.PublicKeys()
			if errors.Is(err, keys.ErrNoPublicKeys) {
				fmt.Fprintln(cmd.OutOrStdout(), "no recipients")
				return nil
			}
			if err != nil {
				return err
			}
			for _, rc := range recipients {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rc.Fingerprint, rc.Name)
			}
			return nil
		},
	}
}
