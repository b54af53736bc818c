package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/cryptogot/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *globalOptions) *cobra.Command {
	var name string
	var keygen bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty cryptogot repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.dir
			if len(args) > 0 {
				path = args[0]
				if !filepath.IsAbs(path) {
					path = filepath.Join(opts.dir, path)
				}
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			r, err := repo.Init(abs)
			if err != nil {
				return err
			}
			r.Log = opts.logger(cmd)
			if name != "" {
				if err := r.WriteConfig(&repo.Config{User: repo.UserConfig{Name: name}}); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "initialized empty cryptogot repository in %s\n", r.MetaDir+string(filepath.Separator))
			if keygen {
				rc, err := r.Keys.Generate(0)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "generated key pair %s\n", rc.Fingerprint)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "author name recorded in commits")
	cmd.Flags().BoolVar(&keygen, "keygen", false, "also generate a key pair")
	return cmd
}
