package unlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/cryptogot/pkg/object"
)

// RestoreTree writes every blob reachable from tree under dir, creating
// subdirectories for tree entries. Files outside the tree are left alone.
// It returns the number of files written.
func RestoreTree(s *object.Store, tree object.Hash, dir string) (int, error) {
	t, err := s.ReadTree(tree)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("restore mkdir %s: %w", dir, err)
	}
	written := 0
	for _, e := range t.Entries {
		if !safeEntryName(e.Name) {
			return written, fmt.Errorf("restore: unsafe entry name %q in tree %s", e.Name, tree)
		}
		path := filepath.Join(dir, e.Name)
		switch e.Kind {
		case object.KindTree:
			n, err := RestoreTree(s, e.Hash, path)
			written += n
			if err != nil {
				return written, err
			}
		case object.KindBlob:
			data, err := s.Read(e.Hash)
			if err != nil {
				return written, err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return written, fmt.Errorf("restore %s: %w", path, err)
			}
			written++
		}
	}
	return written, nil
}

func safeEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
