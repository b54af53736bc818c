package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newBundleCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Move the locked pool between machines as a single file",
	}
	cmd.AddCommand(newBundlePackCmd(opts))
	cmd.AddCommand(newBundleUnpackCmd(opts))
	return cmd
}

func newBundlePackCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Write every locked pool file into a bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			data, err := r.PackBundle()
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write bundle: %w", err)
			}
			r.Log.Infof("wrote %d bytes to %s", len(data), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "bundle file (default stdout)")
	return cmd
}

func newBundleUnpackCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <bundle | ->",
		Short: "Add the files of a bundle to the locked pool",
		Args:  cobra.ExactArgs(1),
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
				return fmt.Errorf("read bundle: %w", err)
			}
			n, err := r.UnpackBundle(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d file(s) to the locked pool\n", n)
			return nil
		},
	}
}
