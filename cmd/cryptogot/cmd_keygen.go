package main

import (
	"fmt"

	"github.com/odvcencio/cryptogot/pkg/keys"
	"github.com/spf13/cobra"
)

func newKeygenCmd(opts *globalOptions) *cobra.Command {
	var bits int
	var printPub bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the local RSA key pair",
		Long: "Generate the local RSA key pair in the repository key directory.\n" +
			"The public half is also a recipient: everything committed afterwards\n" +
			"is encrypted for it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if printPub {
				pem, err := r.Keys.PublicPEM()
				if err != nil {
					return err
				}
				_, err = out.Write(pem)
				return err
			}

			rc, err := r.Keys.Generate(bits)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "generated %d-bit key pair in %s\n", rc.Key.N.BitLen(), r.Keys.Dir)
			fmt.Fprintf(out, "fingerprint %s\n", rc.Fingerprint)
			return nil
		},
	}

	cmd.Flags().IntVar(&bits, "bits", keys.DefaultBits, "RSA modulus size")
	cmd.Flags().BoolVar(&printPub, "print", false, "print the existing public key instead of generating one")
	return cmd
}
