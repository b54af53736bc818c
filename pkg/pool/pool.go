// Package pool is the locked pool: a flat directory of ciphertexts and
// wrapped keys whose names reveal nothing about their contents.
package pool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrBadName reports a pool file name that would escape the pool directory.
var ErrBadName = errors.New("invalid pool file name")

// Pool is a flat directory of opaque files.
type Pool struct {
	dir string
}

// New returns a Pool over dir.
func New(dir string) *Pool {
	return &Pool{dir: dir}
}

// Dir returns the pool directory.
func (p *Pool) Dir() string { return p.dir }

// ValidName reports whether name is a plain file name inside the pool.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return !strings.HasPrefix(name, ".tmp-")
}

// Path returns the filesystem path of a pool file.
func (p *Pool) Path(name string) string {
	return filepath.Join(p.dir, name)
}

// Has reports whether a file called name exists in the pool.
func (p *Pool) Has(name string) bool {
	_, err := os.Stat(p.Path(name))
	return err == nil
}

// Write stores data under name via temp file and rename.
func (p *Pool) Write(name string, data []byte) error {
	if !ValidName(name) {
		return fmt.Errorf("pool write: %w: %q", ErrBadName, name)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("pool mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(p.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("pool write tmpfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("pool write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("pool write close: %w", err)
	}
	if err := os.Rename(tmpName, p.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("pool write rename: %w", err)
	}
	return nil
}

// Read returns the contents of a pool file.
func (p *Pool) Read(name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("pool read: %w: %q", ErrBadName, name)
	}
	data, err := os.ReadFile(p.Path(name))
	if err != nil {
		return nil, fmt.Errorf("pool read %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes a pool file. Removing a missing file is not an error.
func (p *Pool) Remove(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("pool remove: %w: %q", ErrBadName, name)
	}
	if err := os.Remove(p.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pool remove %s: %w", name, err)
	}
	return nil
}

// Names lists the regular files directly in the pool, sorted. A missing
// pool directory is empty.
func (p *Pool) Names() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("pool list: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !ValidName(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}
