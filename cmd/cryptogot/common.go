package main

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/odvcencio/cryptogot/pkg/logger"
	"github.com/odvcencio/cryptogot/pkg/repo"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type globalOptions struct {
	verbose bool
	debug   bool
	dir     string
}

func (o *globalOptions) logger(cmd *cobra.Command) logger.Logger {
	return logger.Logger{
		Verbose: o.verbose,
		Debug:   o.debug,
		Out:     cmd.OutOrStdout(),
		Err:     cmd.ErrOrStderr(),
	}
}

// openRepo opens the repository containing --dir and attaches the
// command's logger.
func (o *globalOptions) openRepo(cmd *cobra.Command) (*repo.Repo, error) {
	r, err := repo.Open(o.dir)
	if err != nil {
		return nil, err
	}
	r.Log = o.logger(cmd)
	return r, nil
}

// startSpinner shows a spinner on an interactive stdout while a slow
// operation runs. The spinner stays off in verbose mode so it does not
// interleave with log lines. The returned func stops it.
func (o *globalOptions) startSpinner(message string) func() {
	if o.verbose || o.debug || !term.IsTerminal(int(os.Stdout.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
