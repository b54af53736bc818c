package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is the release string printed by "cryptogot version".
var Version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "cryptogot",
		Short:         "Version control with end-to-end encrypted history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print progress messages")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "print debug messages")
	root.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "run as if started in this directory")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newKeygenCmd(opts))
	root.AddCommand(newAddCmd(opts))
	root.AddCommand(newCommitCmd(opts))
	root.AddCommand(newLogCmd(opts))
	root.AddCommand(newShowCmd(opts))
	root.AddCommand(newVersionsCmd(opts))
	root.AddCommand(newUnlockCmd(opts))
	root.AddCommand(newRewrapCmd(opts))
	root.AddCommand(newCollabCmd(opts))
	root.AddCommand(newBundleCmd(opts))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cryptogot %s\n", Version)
		},
	}
}
