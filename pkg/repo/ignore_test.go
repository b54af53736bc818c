package repo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnore_MetaDirAlwaysIgnored(t *testing.T) {
	ic := NewIgnoreChecker(t.TempDir())

	for _, p := range []string{".cryptogot", ".cryptogot/HEAD", ".cryptogot/objects/ab/cdef", ".git/config"} {
		if !ic.IsIgnored(p) {
			t.Errorf("expected %s to be ignored", p)
		}
	}
	for _, p := range []string{"main.go", "src/util.go", ".env"} {
		if ic.IsIgnored(p) {
			t.Errorf("expected %s to NOT be ignored", p)
		}
	}
}

func TestIgnore_SimpleGlobPattern(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, "*.log\n")

	ic := NewIgnoreChecker(dir)

	if !ic.IsIgnored("debug.log") {
		t.Error("expected debug.log to be ignored")
	}
	if !ic.IsIgnored("logs/deep/debug.log") {
		t.Error("expected nested debug.log to be ignored")
	}
	if ic.IsIgnored("debug.txt") {
		t.Error("expected debug.txt to NOT be ignored")
	}
}

func TestIgnore_DirectoryPattern(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, "build/\n")

	ic := NewIgnoreChecker(dir)

	if !ic.IsIgnored("build") {
		t.Error("expected build to be ignored")
	}
	if !ic.IsIgnored("build/sub/file.txt") {
		t.Error("expected build/sub/file.txt to be ignored")
	}
	if !ic.IsIgnored("pkg/build/out.o") {
		t.Error("expected nested build dir to be ignored")
	}
	if ic.IsIgnored("builder.go") {
		t.Error("expected builder.go to NOT be ignored")
	}
}

func TestIgnore_NegationAndComments(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, "# secrets stay local\n*.log\n!important.log\n")

	ic := NewIgnoreChecker(dir)

	if !ic.IsIgnored("debug.log") {
		t.Error("expected debug.log to be ignored")
	}
	if ic.IsIgnored("important.log") {
		t.Error("expected important.log to NOT be ignored (negation)")
	}
	if ic.IsIgnored("# secrets stay local") {
		t.Error("comment treated as a pattern")
	}
}

func TestIgnore_Globstar(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, "docs/**/*.pdf\n/tmp/cache.bin\n")

	ic := NewIgnoreChecker(dir)

	for _, p := range []string{"docs/a.pdf", "docs/x/y/b.pdf", "tmp/cache.bin"} {
		if !ic.IsIgnored(p) {
			t.Errorf("expected %s to be ignored", p)
		}
	}
	if ic.IsIgnored("other/a.pdf") {
		t.Error("expected other/a.pdf to NOT be ignored")
	}
}

func writeIgnoreFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, IgnoreFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", IgnoreFile, err)
	}
}
