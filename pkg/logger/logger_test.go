package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLoggerLevels(t *testing.T) {
	color.NoColor = true

	var out, errOut bytes.Buffer
	l := Logger{Out: &out, Err: &errOut}
	l.Infof("hidden %d", 1)
	l.Debugf("hidden %d", 2)
	if out.Len() != 0 {
		t.Fatalf("quiet logger wrote %q", out.String())
	}

	l.Verbose = true
	l.Infof("shown %d", 3)
	l.Debugf("still hidden")
	if got := out.String(); got != "[info] shown 3\n" {
		t.Errorf("info output = %q", got)
	}

	out.Reset()
	l.Debug = true
	l.Debugf("trace %s", "x")
	if !strings.Contains(out.String(), "[debug] trace x") {
		t.Errorf("debug output = %q", out.String())
	}

	l.Warnf("careful")
	l.Errorf("broken")
	if got := errOut.String(); got != "[warn] careful\n[error] broken\n" {
		t.Errorf("stderr output = %q", got)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Verbose = true
	l.Infof("nothing")
	l.Warnf("nothing")
}
