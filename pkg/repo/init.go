package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/cryptogot/pkg/object"
)

// Init creates a new repository at path. It creates the .cryptogot/
// directory structure: objects/, keys/, locked/, versions/, an empty index
// and a default config. Returns an error if the directory already exists.
func Init(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	meta := filepath.Join(abs, MetaDirName)

	if _, err := os.Stat(meta); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", meta)
	}

	r := newRepo(abs, meta)
	dirs := []string{
		r.objectsDir(),
		r.Keys.Dir,
		r.Pool.Dir(),
		r.Ledger.Dir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}
	if err := os.Chmod(r.Keys.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("init: chmod keys: %w", err)
	}
	if err := os.WriteFile(r.indexPath(), nil, 0o644); err != nil {
		return nil, fmt.Errorf("init: write index: %w", err)
	}
	if err := r.WriteConfig(&Config{}); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return r, nil
}

// Open searches upward from path for a .cryptogot/ directory and opens the
// repository.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		meta := filepath.Join(cur, MetaDirName)
		info, err := os.Stat(meta)
		if err == nil && info.IsDir() {
			r := newRepo(cur, meta)
			cfg, err := r.ReadConfig()
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			r.applyConfig(cfg)
			return r, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: %w", ErrNotRepository)
		}
		cur = parent
	}
}

// Head returns the commit HEAD points at, or ErrNoHead before the first
// commit.
func (r *Repo) Head() (object.Hash, error) {
	data, err := os.ReadFile(r.headPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoHead
		}
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", ErrNoHead
	}
	h, err := object.ParseHash(s)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	return h, nil
}

// SetHead atomically points HEAD at h.
func (r *Repo) SetHead(h object.Hash) error {
	if !object.IsHash(string(h)) {
		return fmt.Errorf("set HEAD: %w: %q", object.ErrInvalidHash, h)
	}
	tmp := r.headPath() + ".lock"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("set HEAD: lock: %w", err)
	}
	if _, err := f.WriteString(string(h) + "\n"); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("set HEAD: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("set HEAD: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("set HEAD: close: %w", err)
	}
	if err := os.Rename(tmp, r.headPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("set HEAD: rename: %w", err)
	}
	return nil
}
