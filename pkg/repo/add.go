package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Add stages files. Each argument may be:
//   - "." to stage every file in the working tree,
//   - a file or directory path (absolute, or relative to the current
//     directory or the repository root),
//   - a bare file name, which is looked up anywhere in the working tree.
//
// Each file's blob is written to the object store and an entry appended to
// the index. Hidden directories and paths matched by .cryptogotignore are
// skipped. It returns the staged entries.
func (r *Repo) Add(paths []string) ([]IndexEntry, error) {
	ic := NewIgnoreChecker(r.RootDir)
	var staged []IndexEntry

	for _, p := range paths {
		if p == "" {
			p = "."
		}
		rel, err := r.repoRelPath(p)
		if err != nil {
			return nil, fmt.Errorf("add: resolve path %q: %w", p, err)
		}

		abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
		info, statErr := os.Stat(abs)
		switch {
		case statErr == nil && info.IsDir():
			entries, err := r.stageDir(abs, ic)
			if err != nil {
				return nil, err
			}
			staged = append(staged, entries...)
			continue
		case statErr == nil:
		case os.IsNotExist(statErr):
			rel, err = r.findByName(filepath.Base(p), ic)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("add: stat %q: %w", rel, statErr)
		}

		e, err := r.stageFile(rel)
		if err != nil {
			return nil, err
		}
		staged = append(staged, e)
	}

	if err := r.appendIndex(staged); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	for _, e := range staged {
		r.Log.Debugf("staged %s %s", e.Hash, e.Path)
	}
	return staged, nil
}

func (r *Repo) stageFile(rel string) (IndexEntry, error) {
	rel = cleanRelPath(rel)
	if rel == "" || rel == MetaDirName || strings.HasPrefix(rel, MetaDirName+"/") {
		return IndexEntry{}, fmt.Errorf("add: %q is not a working-tree file", rel)
	}
	content, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(rel)))
	if err != nil {
		return IndexEntry{}, fmt.Errorf("add: read %q: %w", rel, err)
	}
	h, err := r.Store.Write(content)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("add: write blob %q: %w", rel, err)
	}
	return IndexEntry{Hash: h, Path: rel}, nil
}

// stageDir stages every regular file below dir.
func (r *Repo) stageDir(dir string, ic *IgnoreChecker) ([]IndexEntry, error) {
	var out []IndexEntry
	err := r.walkWorkTree(dir, ic, func(rel string) error {
		e, err := r.stageFile(rel)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// findByName looks for a file called name anywhere in the working tree.
func (r *Repo) findByName(name string, ic *IgnoreChecker) (string, error) {
	var matches []string
	err := r.walkWorkTree(r.RootDir, ic, func(rel string) error {
		if filepath.Base(filepath.FromSlash(rel)) == name {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("add: %q: %w", name, os.ErrNotExist)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("add: %q is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// walkWorkTree calls fn with the slash path of every regular file below
// dir, skipping hidden directories and ignored paths.
func (r *Repo) walkWorkTree(dir string, ic *IgnoreChecker, fn func(rel string) error) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if p != dir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			if rel != "." && ic.IsIgnored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ic.IsIgnored(rel) {
			return nil
		}
		return fn(rel)
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// repoRelPath converts a path (absolute, or relative to CWD) into a path
// relative to the repository root. A relative path that does not resolve
// inside the repository from CWD is taken as already repo-relative.
func (r *Repo) repoRelPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
		if strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("%q is outside the repository", p)
		}
		return cleanRelPath(filepath.ToSlash(rel)), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return cleanRelPath(filepath.ToSlash(p)), nil
	}
	rel, err := filepath.Rel(r.RootDir, filepath.Join(cwd, p))
	if err != nil || strings.HasPrefix(rel, "..") {
		return cleanRelPath(filepath.ToSlash(p)), nil
	}
	if _, statErr := os.Stat(filepath.Join(r.RootDir, rel)); statErr != nil {
		// Not found from CWD; fall back to repo-relative.
		if _, err := os.Stat(filepath.Join(r.RootDir, filepath.FromSlash(p))); err == nil {
			return cleanRelPath(filepath.ToSlash(p)), nil
		}
	}
	return cleanRelPath(filepath.ToSlash(rel)), nil
}
