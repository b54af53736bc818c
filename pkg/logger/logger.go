// Package logger is the leveled console logger shared by the engines and
// the command line.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger writes prefixed messages. Info and debug output is only emitted
// when the matching flag is set; warnings and errors always go to Err.
// A nil Out or Err falls back to stdout or stderr.
type Logger struct {
	Verbose bool
	Debug   bool
	Out     io.Writer
	Err     io.Writer
}

// Discard returns a Logger that drops every message.
func Discard() Logger {
	return Logger{Out: io.Discard, Err: io.Discard}
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(l.out(), color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.out(), color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	fmt.Fprintf(l.err(), color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...any) {
	fmt.Fprintf(l.err(), color.RedString("[error] ")+msg+"\n", args...)
}

func (l Logger) out() io.Writer {
	if l.Out == nil {
		return os.Stdout
	}
	return l.Out
}

func (l Logger) err() io.Writer {
	if l.Err == nil {
		return os.Stderr
	}
	return l.Err
}
